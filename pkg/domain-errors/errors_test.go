package derrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesWrappedCode(t *testing.T) {
	cause := errors.New("row not found")
	err := Wrap(cause, CodeNotFound, "autorisation lookup failed")

	assert.True(t, Is(err, CodeNotFound))
	assert.False(t, Is(err, CodeConflict))
	assert.True(t, errors.Is(err, cause))
}

func TestIsMatchesThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("cancel autorisation: %w", New(CodeAlreadyRevoked, "already revoked"))
	assert.True(t, Is(err, CodeAlreadyRevoked))
}

func TestCodeOfDefaultsToInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.Equal(t, CodeBadRequest, CodeOf(New(CodeBadRequest, "bad phone")))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeBadRequest:     http.StatusBadRequest,
		CodeUnauthorized:   http.StatusUnauthorized,
		CodeForbidden:      http.StatusForbidden,
		CodeNotFound:       http.StatusNotFound,
		CodeConflict:       http.StatusConflict,
		CodeAlreadyRevoked: http.StatusConflict,
		CodeUnavailable:    http.StatusBadGateway,
		CodeTimeout:        http.StatusGatewayTimeout,
		CodeInternal:       http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), string(code))
	}
}
