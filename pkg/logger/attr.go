package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
// If id is nil, it returns an empty Attr.
func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

// SessionID records the session identifier under the key "session_id".
func SessionID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("session_id", id)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// IP records the client IP address under the key "ip".
func IP(ip string) slog.Attr {
	return slog.String("ip", ip)
}

// Reason records a structured reason code under the key "reason".
// Used for security signals (lockouts, fingerprint mismatches) so that
// downstream alerting can match on stable codes.
func Reason(code string) slog.Attr {
	return slog.String("reason", code)
}
