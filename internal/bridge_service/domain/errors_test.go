package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"Nil", nil, false},
		{"Transport", &TransportError{Op: "POST", URL: "u", Err: errors.New("timeout")}, true},
		{"WrappedTransport", fmt.Errorf("send: %w", &TransportError{Err: errors.New("reset")}), true},
		{"Carrier500", &CarrierError{HTTPStatus: http.StatusInternalServerError}, true},
		{"Carrier429", &CarrierError{HTTPStatus: http.StatusTooManyRequests}, true},
		{"Carrier400", &CarrierError{HTTPStatus: http.StatusBadRequest}, false},
		{"Auth", &AuthError{HTTPStatus: http.StatusUnauthorized}, false},
		{"Mixed", ErrMixedPayload, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "unable to send message: HTTP 500, boom", (&CarrierError{HTTPStatus: 500, Body: "boom"}).Error())
	assert.Contains(t, (&AuthError{ProviderKey: "brck", Err: errors.New("missing")}).Error(), "credentials unusable")
	assert.Contains(t, (&AuthError{ProviderKey: "brck", HTTPStatus: 401, Body: "no"}).Error(), "HTTP 401")
	assert.Equal(t, "unable to fetch media u: HTTP 404", (&MediaFetchError{URL: "u", HTTPStatus: 404}).Error())
}
