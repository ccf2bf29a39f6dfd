package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicdesk/internal/models"
)

const testSecret = "test-jwt-secret"

func TestDecode_ValidUserToken(t *testing.T) {
	t.Parallel()

	token, err := IssueToken(testSecret, "42", models.UserRoleUser, "+380991234567", 15*time.Minute)
	require.NoError(t, err)

	claims, err := NewTokenDecoder("", 0).Decode(token)
	require.NoError(t, err)

	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, models.UserRoleUser, claims.Role)
	assert.Equal(t, "+380991234567", claims.PhoneNumber)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.Expiry(), 2*time.Second)
}

func TestDecode_VerifiesSignatureWhenSecretSet(t *testing.T) {
	t.Parallel()

	token, err := IssueToken("other-secret", "1", models.UserRoleAdmin, "", time.Hour)
	require.NoError(t, err)

	_, err = NewTokenDecoder(testSecret, 0).Decode(token)
	assert.ErrorIs(t, err, ErrMalformedToken)

	_, err = NewTokenDecoder("other-secret", 0).Decode(token)
	assert.NoError(t, err)
}

func TestDecode_Expired(t *testing.T) {
	t.Parallel()

	issued := time.Now().Add(-2 * time.Hour)
	token, err := IssueTokenAt(testSecret, "42", models.UserRoleUser, "", issued, time.Hour)
	require.NoError(t, err)

	_, err = NewTokenDecoder("", 0).Decode(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestDecode_ClockAndLeeway(t *testing.T) {
	t.Parallel()

	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	token, err := IssueTokenAt(testSecret, "42", models.UserRoleAdmin, "", issued, time.Minute)
	require.NoError(t, err)

	justAfter := func() time.Time { return issued.Add(90 * time.Second) }

	_, err = NewTokenDecoder("", time.Minute).WithClock(justAfter).Decode(token)
	assert.NoError(t, err)

	_, err = NewTokenDecoder("", 0).WithClock(justAfter).Decode(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestDecode_RejectsMalformedAndIncomplete(t *testing.T) {
	t.Parallel()

	sign := func(claims jwt.Claims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return s
	}
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))
	iat := jwt.NewNumericDate(time.Now())

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{name: "empty", token: "", want: ErrMalformedToken},
		{name: "garbage", token: "not-a-jwt", want: ErrMalformedToken},
		{name: "two segments", token: "abc.def", want: ErrMalformedToken},
		{name: "no expiry", token: sign(jwt.MapClaims{"sub": "1", "role": "admin"}), want: ErrMalformedToken},
		{name: "no subject", token: sign(jwt.MapClaims{"role": "admin", "exp": exp.Unix(), "iat": iat.Unix()}), want: ErrInvalidClaims},
		{name: "unknown role", token: sign(jwt.MapClaims{"sub": "1", "role": "root", "exp": exp.Unix(), "iat": iat.Unix()}), want: ErrInvalidClaims},
		{name: "missing role", token: sign(jwt.MapClaims{"sub": "1", "exp": exp.Unix(), "iat": iat.Unix()}), want: ErrInvalidClaims},
		{name: "no issued-at", token: sign(jwt.MapClaims{"sub": "42", "role": "user", "exp": exp.Unix()}), want: ErrInvalidClaims},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			claims, err := NewTokenDecoder("", 0).Decode(tt.token)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, Claims{}, claims)
		})
	}
}
