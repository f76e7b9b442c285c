// Package shared holds the JSON helpers every handler uses: one error
// envelope, one success writer, one decoder.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	derrors "aidantsconnect/pkg/domain-errors"
)

// ErrorResponse is the JSON error envelope. Internal errors omit the
// description so storage details never leak.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteError translates a domain error into the JSON envelope with the
// matching HTTP status.
func WriteError(w http.ResponseWriter, err error) {
	code := derrors.CodeOf(err)
	resp := ErrorResponse{Error: string(code)}
	if code != derrors.CodeInternal {
		var de *derrors.Error
		if errors.As(err, &de) {
			resp.ErrorDescription = de.Message
		}
	}
	WriteJSON(w, derrors.ToHTTPStatus(code), resp)
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Decode reads a JSON request body into dst, rejecting unknown fields.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return derrors.Wrap(err, derrors.CodeBadRequest, "invalid JSON body")
	}
	return nil
}
