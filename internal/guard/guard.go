// Package guard decides, from locally persisted flags only, whether a navigation may
// proceed. It never calls the backend and never decodes the token.
package guard

import (
	"context"
	"net/url"

	"github.com/rs/zerolog"

	"clinicdesk/internal/models"
	"clinicdesk/internal/tokenstore"
)

const (
	LoginPath    = "/login"
	PatientsPath = "/patients"
	infoPrefix   = "/info/"
)

// Decision is either Allow or a redirect target. The zero value allows.
type Decision struct {
	Redirect string
}

func Allow() Decision {
	return Decision{}
}

func RedirectTo(path string) Decision {
	return Decision{Redirect: path}
}

func (d Decision) Allowed() bool {
	return d.Redirect == ""
}

func (d Decision) String() string {
	if d.Allowed() {
		return "allow"
	}
	return "redirect " + d.Redirect
}

// InfoPath is the patient's own screen.
func InfoPath(id string) string {
	return infoPrefix + url.PathEscape(id)
}

// Home is where a freshly signed-in session lands.
func Home(sess models.Session) string {
	if sess.IsPatient() {
		return InfoPath(sess.ID)
	}
	return PatientsPath
}

// FlagReader is the read side of the token store.
type FlagReader interface {
	Snapshot(ctx context.Context) (tokenstore.Flags, error)
}

type Guard struct {
	flags FlagReader
	log   zerolog.Logger
}

func New(flags FlagReader, log zerolog.Logger) *Guard {
	return &Guard{flags: flags, log: log}
}

// Authorize gates a screen. The required role is not checked: a signed-in patient is sent
// to their own screen for every protected route, and anyone else holding a token is let
// through.
func (g *Guard) Authorize(ctx context.Context, required models.UserRole) Decision {
	flags := g.read(ctx)
	switch {
	case !flags.HasToken():
		return RedirectTo(LoginPath)
	case flags.HasUserID():
		return RedirectTo(InfoPath(flags.UserID))
	default:
		return Allow()
	}
}

// Landing is the login screen's redirect for visitors who are already signed in.
func (g *Guard) Landing(ctx context.Context) Decision {
	flags := g.read(ctx)
	switch {
	case !flags.HasToken():
		return Allow()
	case flags.HasUserID():
		return RedirectTo(InfoPath(flags.UserID))
	default:
		return RedirectTo(PatientsPath)
	}
}

// AuthorizePatient gates /info/{id}: a patient may only see their own record.
func (g *Guard) AuthorizePatient(ctx context.Context, patientID string) Decision {
	flags := g.read(ctx)
	switch {
	case !flags.HasToken():
		return RedirectTo(LoginPath)
	case flags.HasUserID() && flags.UserID != patientID:
		return RedirectTo(InfoPath(flags.UserID))
	default:
		return Allow()
	}
}

// read fails closed: an unreadable store looks like an empty one.
func (g *Guard) read(ctx context.Context) tokenstore.Flags {
	flags, err := g.flags.Snapshot(ctx)
	if err != nil {
		g.log.Warn().Err(err).Msg("read session flags")
		return tokenstore.Flags{}
	}
	return flags
}
