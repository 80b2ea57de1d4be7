package authapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
)

var (
	errInvalidBody  = errors.New("invalid request body")
	errInvalidParam = errors.New("invalid request parameter")
)

// decodeJSON strictly parses the request body into v. Unknown fields and
// trailing data are rejected so client typos surface as 400s instead of
// silently dropped fields.
func decodeJSON(r *http.Request, v any) error {
	contentType := r.Header.Get("Content-Type")
	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil || mediaType != "application/json" {
			return fmt.Errorf("%w: expected application/json", errInvalidBody)
		}
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errInvalidBody)
		}
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: unexpected trailing data", errInvalidBody)
	}
	return nil
}
