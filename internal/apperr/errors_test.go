package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("login: %w", Auth("invalid credentials"))

	assert.ErrorIs(t, err, ErrAuth)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.Equal(t, "invalid credentials", Message(err))
}

func TestErrorIsKeepsSentinelsDistinct(t *testing.T) {
	expired := Auth("session expired")
	superseded := Auth("session changed")

	assert.NotErrorIs(t, expired, superseded)
	assert.NotErrorIs(t, fmt.Errorf("revalidate: %w", expired), superseded)
	assert.ErrorIs(t, fmt.Errorf("revalidate: %w", expired), expired)
	assert.ErrorIs(t, expired, ErrAuth)
	assert.ErrorIs(t, superseded, ErrAuth)
	assert.NotErrorIs(t, ErrAuth, expired)
}

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status int
		kind   Kind
	}{
		{http.StatusUnauthorized, KindAuth},
		{http.StatusForbidden, KindAuth},
		{http.StatusConflict, KindValidation},
		{http.StatusBadRequest, KindValidation},
		{http.StatusInternalServerError, KindTransport},
		{http.StatusNotFound, KindTransport},
	}

	for _, tt := range tests {
		e := FromStatus(tt.status, "")
		assert.Equal(t, tt.kind, e.Kind, "status %d", tt.status)
		assert.Equal(t, DefaultMessage, e.Message)
		assert.Equal(t, tt.status, e.Status)
	}
}

func TestMessageHidesForeignErrors(t *testing.T) {
	raw := errors.New("dial tcp 127.0.0.1:3000: connect: connection refused")

	assert.Equal(t, DefaultMessage, Message(raw))
	assert.Equal(t, KindTransport, KindOf(raw))

	n := Normalize(raw)
	assert.ErrorIs(t, n, ErrTransport)
	assert.ErrorIs(t, n, raw)
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(n))
}
