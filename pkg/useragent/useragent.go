// Package useragent classifies HTTP User-Agent strings into best-effort
// display metadata: device type, browser, and operating system.
//
// The classification is heuristic keyword matching with no claimed
// precision. It exists to annotate session listings for users ("Chrome on
// macOS, desktop") and to feed the new-device anomaly signal; it is never a
// security control.
package useragent

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Device types represent the category of device that made the request.
const (
	DeviceTypeMobile  = "mobile"
	DeviceTypeTablet  = "tablet"
	DeviceTypeDesktop = "desktop"
	DeviceTypeBot     = "bot"
	DeviceTypeUnknown = "Unknown"
)

// Unknown is the fallback value for any field the parser cannot classify.
const Unknown = "Unknown"

// Info holds the parsed display metadata for a User-Agent string.
type Info struct {
	DeviceType string
	Browser    string
	OS         string
}

var titleCaser = cases.Title(language.English)

// keywordSet supports substring matching over a set of keywords.
type keywordSet []string

func (k keywordSet) contains(s string) bool {
	for _, keyword := range k {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}

var (
	botKeywords    = keywordSet{"bot", "spider", "crawler", "slurp", "scraper", "fetcher", "monitor", "validator"}
	tabletKeywords = keywordSet{"tablet", "kindle", "silk"}
	mobileKeywords = keywordSet{"mobile", "iphone", "android", "windows phone", "blackberry"}

	// Ordered: more specific identifiers first so "Edg" doesn't classify as Chrome.
	browserChecks = []struct {
		keyword string
		name    string
	}{
		{"edg", "Edge"},
		{"opr", "Opera"},
		{"opera", "Opera"},
		{"samsungbrowser", "Samsung Internet"},
		{"firefox", "Firefox"},
		{"chrome", "Chrome"},
		{"crios", "Chrome"},
		{"safari", "Safari"},
		{"msie", "Internet Explorer"},
		{"trident", "Internet Explorer"},
	}

	osChecks = []struct {
		keyword string
		name    string
	}{
		{"windows phone", "Windows Phone"},
		{"windows", "Windows"},
		{"android", "Android"},
		{"iphone", "iOS"},
		{"ipad", "iOS"},
		{"mac os x", "macOS"},
		{"macintosh", "macOS"},
		{"cros", "ChromeOS"},
		{"linux", "Linux"},
	}
)

// Parse classifies a User-Agent string. Every field falls back to "Unknown"
// rather than failing; empty input yields a fully unknown Info.
func Parse(userAgent string) Info {
	lowerUA := strings.ToLower(strings.TrimSpace(userAgent))
	if lowerUA == "" {
		return Info{DeviceType: DeviceTypeUnknown, Browser: Unknown, OS: Unknown}
	}

	return Info{
		DeviceType: parseDeviceType(lowerUA),
		Browser:    parseBrowser(lowerUA),
		OS:         parseOS(lowerUA),
	}
}

// String renders the metadata for session listings, e.g. "Chrome on macOS (desktop)".
func (i Info) String() string {
	return i.Browser + " on " + i.OS + " (" + titleCaser.String(i.DeviceType) + ")"
}

// parseDeviceType classifies devices with fast keyword matching.
// Order matters: iOS identifiers are unambiguous, then Android (tablets omit
// "Mobile", unlike phones), then generic fallbacks.
func parseDeviceType(lowerUA string) string {
	if strings.Contains(lowerUA, "ipad") {
		return DeviceTypeTablet
	}
	if strings.Contains(lowerUA, "iphone") {
		return DeviceTypeMobile
	}
	if botKeywords.contains(lowerUA) {
		return DeviceTypeBot
	}
	if strings.Contains(lowerUA, "android") {
		if strings.Contains(lowerUA, "mobile") {
			return DeviceTypeMobile
		}
		return DeviceTypeTablet
	}
	if tabletKeywords.contains(lowerUA) {
		return DeviceTypeTablet
	}
	if mobileKeywords.contains(lowerUA) {
		return DeviceTypeMobile
	}
	if strings.Contains(lowerUA, "windows") || strings.Contains(lowerUA, "macintosh") ||
		strings.Contains(lowerUA, "linux") || strings.Contains(lowerUA, "x11") {
		return DeviceTypeDesktop
	}
	return DeviceTypeUnknown
}

func parseBrowser(lowerUA string) string {
	for _, check := range browserChecks {
		if strings.Contains(lowerUA, check.keyword) {
			return check.name
		}
	}
	return Unknown
}

func parseOS(lowerUA string) string {
	for _, check := range osChecks {
		if strings.Contains(lowerUA, check.keyword) {
			return check.name
		}
	}
	return Unknown
}
