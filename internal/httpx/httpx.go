// Package httpx holds the JSON plumbing shared by API handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/yanizio/gtmskills/internal/apperr"
	"github.com/yanizio/gtmskills/internal/logger"
)

// maxBody caps request bodies.  The largest legitimate payload is a prompt
// submission of 10 000 characters plus metadata.
const maxBody = 1 << 20

// DecodeStrict decodes one JSON object from r.Body into dst.  Unknown
// fields, trailing data, and malformed JSON are reported as invalid input.
// An empty body leaves dst untouched when allowEmpty is true.
func DecodeStrict(r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			if allowEmpty {
				return nil
			}
			return apperr.Invalid("Request body is required")
		}
		return &apperr.ValidationError{Summary: fmt.Sprintf("Invalid JSON body: %v", err)}
	}
	if dec.More() {
		return apperr.Invalid("Request body must contain a single JSON object")
	}
	return nil
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorBody is the envelope every API error uses.
type ErrorBody struct {
	Error  string         `json:"error"`
	Fields []apperr.Field `json:"fields,omitempty"`
}

// WriteError maps err onto a status and a public message.  Server-side
// failures are logged with full detail first.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Errorw("request failed",
			"path", r.URL.Path, "err", err)
	}

	body := ErrorBody{Error: apperr.Public(err)}
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		body.Fields = ve.Fields
	}
	WriteJSON(w, status, body)
}
