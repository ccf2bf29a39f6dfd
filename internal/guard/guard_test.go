package guard

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicdesk/internal/models"
	"clinicdesk/internal/tokenstore"
)

func guardWith(t *testing.T, flags tokenstore.Flags) *Guard {
	t.Helper()
	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), flags))
	return New(store, zerolog.Nop())
}

func TestAuthorize_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		flags    tokenstore.Flags
		required models.UserRole
		want     Decision
	}{
		{name: "no token, public", flags: tokenstore.Flags{}, required: models.UserRoleNone, want: RedirectTo("/login")},
		{name: "no token, admin", flags: tokenstore.Flags{}, required: models.UserRoleAdmin, want: RedirectTo("/login")},
		{name: "admin token", flags: tokenstore.Flags{Token: "admin-token"}, required: models.UserRoleAdmin, want: Allow()},
		{name: "patient on admin route", flags: tokenstore.Flags{Token: "user-token", UserID: "42"}, required: models.UserRoleAdmin, want: RedirectTo("/info/42")},
		{name: "patient, no role", flags: tokenstore.Flags{Token: "user-token", UserID: "42"}, required: models.UserRoleNone, want: RedirectTo("/info/42")},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			g := guardWith(t, tt.flags)
			assert.Equal(t, tt.want, g.Authorize(context.Background(), tt.required))
		})
	}
}

func TestAuthorize_Idempotent(t *testing.T) {
	g := guardWith(t, tokenstore.Flags{Token: "t", UserID: "42"})
	first := g.Authorize(context.Background(), models.UserRoleAdmin)
	second := g.Authorize(context.Background(), models.UserRoleAdmin)
	assert.Equal(t, first, second)
}

// The guard trusts the flags as stored. These pin the behavior when they disagree.
func TestAuthorize_DivergentFlags(t *testing.T) {
	t.Run("id without token", func(t *testing.T) {
		g := guardWith(t, tokenstore.Flags{UserID: "42"})
		assert.Equal(t, RedirectTo("/login"), g.Authorize(context.Background(), models.UserRoleAdmin))
	})

	t.Run("id with admin token", func(t *testing.T) {
		// the guard never decodes, so the id flag wins over an admin token
		g := guardWith(t, tokenstore.Flags{Token: "admin-token", UserID: "42"})
		assert.Equal(t, RedirectTo("/info/42"), g.Authorize(context.Background(), models.UserRoleAdmin))
	})
}

func TestAuthorize_EscapesID(t *testing.T) {
	g := guardWith(t, tokenstore.Flags{Token: "t", UserID: "a/b c"})
	assert.Equal(t, RedirectTo("/info/a%2Fb%20c"), g.Authorize(context.Background(), models.UserRoleAdmin))
}

type brokenStore struct{}

func (brokenStore) Snapshot(context.Context) (tokenstore.Flags, error) {
	return tokenstore.Flags{Token: "t"}, errors.New("disk on fire")
}

func TestAuthorize_StoreErrorFailsClosed(t *testing.T) {
	g := New(brokenStore{}, zerolog.Nop())
	assert.Equal(t, RedirectTo("/login"), g.Authorize(context.Background(), models.UserRoleAdmin))
	assert.Equal(t, Allow(), g.Landing(context.Background()))
}

func TestLanding(t *testing.T) {
	assert.Equal(t, Allow(), guardWith(t, tokenstore.Flags{}).Landing(context.Background()))
	assert.Equal(t, RedirectTo("/patients"), guardWith(t, tokenstore.Flags{Token: "t"}).Landing(context.Background()))
	assert.Equal(t, RedirectTo("/info/7"), guardWith(t, tokenstore.Flags{Token: "t", UserID: "7"}).Landing(context.Background()))
}

func TestAuthorizePatient(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, RedirectTo("/login"), guardWith(t, tokenstore.Flags{}).AuthorizePatient(ctx, "7"))
	assert.Equal(t, Allow(), guardWith(t, tokenstore.Flags{Token: "t", UserID: "7"}).AuthorizePatient(ctx, "7"))
	assert.Equal(t, RedirectTo("/info/7"), guardWith(t, tokenstore.Flags{Token: "t", UserID: "7"}).AuthorizePatient(ctx, "8"))
	assert.Equal(t, Allow(), guardWith(t, tokenstore.Flags{Token: "t"}).AuthorizePatient(ctx, "8"))
}

func TestDecision_String(t *testing.T) {
	assert.Equal(t, "allow", Allow().String())
	assert.True(t, Decision{}.Allowed())
	assert.Equal(t, Decision{}, Allow())
	assert.Equal(t, "redirect /login", RedirectTo("/login").String())
}

func TestHome(t *testing.T) {
	assert.Equal(t, "/info/42", Home(models.Session{ID: "42", Role: models.UserRoleUser}))
	assert.Equal(t, "/patients", Home(models.Session{ID: "a1", Role: models.UserRoleAdmin}))
}
