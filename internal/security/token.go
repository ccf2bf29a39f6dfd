package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"clinicdesk/internal/models"
)

var (
	ErrMalformedToken = errors.New("malformed token")
	ErrTokenExpired   = errors.New("token expired")
	ErrInvalidClaims  = errors.New("invalid token claims")
)

// Claims is the validated payload of a bearer token. PhoneNumber travels in the "id" claim.
type Claims struct {
	Role        models.UserRole `json:"role"`
	PhoneNumber string          `json:"id,omitempty"`
	jwt.RegisteredClaims
}

func (c Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// TokenDecoder turns a raw token into Claims or a decode error, never a partial result.
// Without a secret the signature is not checked, since the client does not hold the
// backend's signing key; the claims are validated either way.
type TokenDecoder struct {
	secret []byte
	leeway time.Duration
	now    func() time.Time
}

func NewTokenDecoder(secret string, leeway time.Duration) *TokenDecoder {
	d := &TokenDecoder{leeway: leeway, now: time.Now}
	if secret != "" {
		d.secret = []byte(secret)
	}
	return d
}

// WithClock replaces the time source used for expiry checks.
func (d *TokenDecoder) WithClock(now func() time.Time) *TokenDecoder {
	d.now = now
	return d
}

func (d *TokenDecoder) Decode(tokenStr string) (Claims, error) {
	if tokenStr == "" {
		return Claims{}, ErrMalformedToken
	}

	opts := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(d.leeway),
		jwt.WithTimeFunc(d.now),
		jwt.WithIssuedAt(),
	}

	var claims Claims
	if d.secret != nil {
		token, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return d.secret, nil
		}, opts...)
		if err != nil {
			return Claims{}, classify(err)
		}
		if !token.Valid {
			return Claims{}, ErrMalformedToken
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &claims); err != nil {
			return Claims{}, classify(err)
		}
		if err := jwt.NewValidator(opts...).Validate(claims); err != nil {
			return Claims{}, classify(err)
		}
	}

	if err := claims.validate(); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

func (c Claims) validate() error {
	if c.Subject == "" {
		return fmt.Errorf("%w: missing subject", ErrInvalidClaims)
	}
	if !c.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidClaims, c.Role)
	}
	if c.IssuedAt == nil {
		return fmt.Errorf("%w: missing issued-at", ErrInvalidClaims)
	}
	return nil
}

func classify(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	}
	return fmt.Errorf("%w: %v", ErrMalformedToken, err)
}

// IssueToken signs claims with HS512. The client never mints tokens for the backend;
// it is used by fixtures and the local development backend.
func IssueToken(secret string, subject string, role models.UserRole, phoneNumber string, ttl time.Duration) (string, error) {
	return IssueTokenAt(secret, subject, role, phoneNumber, time.Now(), ttl)
}

func IssueTokenAt(secret string, subject string, role models.UserRole, phoneNumber string, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		Role:        role,
		PhoneNumber: phoneNumber,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   subject,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}
