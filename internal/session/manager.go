// Package session owns the current actor. It is the only component that decodes tokens,
// and the only writer of the id flag.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"clinicdesk/internal/apperr"
	"clinicdesk/internal/models"
	"clinicdesk/internal/security"
	"clinicdesk/internal/tokenstore"
)

type State int

const (
	StateResolving State = iota
	StateUnauthenticated
	StateAuthenticated
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateResolving:
		return "resolving"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrInvalidToken   = apperr.Auth("Your session is invalid, please sign in again")
	ErrSessionExpired = apperr.Auth("Your session has expired, please sign in again")
	ErrIdentityDrift  = apperr.Auth("Signed-in user does not match the token")
	// ErrSuperseded is returned when a logout or a newer login overtook the call.
	ErrSuperseded = apperr.Auth("Session changed while signing in")
)

// Snapshot is what subscribers receive on every transition.
type Snapshot struct {
	State   State
	Session models.Session
	Err     error
}

type TokenDecoder interface {
	Decode(token string) (security.Claims, error)
}

type ProfileFetcher interface {
	FetchCurrentUser(ctx context.Context) (models.Profile, error)
}

type Manager struct {
	store    tokenstore.Store
	decoder  TokenDecoder
	profiles ProfileFetcher
	log      zerolog.Logger

	// writeMu serializes store writes with generation checks.
	writeMu sync.Mutex

	mu         sync.RWMutex
	state      State
	session    models.Session
	generation uint64
	subs       map[int]func(Snapshot)
	nextSub    int
	closed     bool
	// pending holds transitions not yet delivered; notify drains it outside writeMu.
	pending []Snapshot
}

func NewManager(store tokenstore.Store, decoder TokenDecoder, profiles ProfileFetcher, log zerolog.Logger) *Manager {
	return &Manager{
		store:    store,
		decoder:  decoder,
		profiles: profiles,
		log:      log,
		state:    StateResolving,
		subs:     make(map[int]func(Snapshot)),
	}
}

// Init resolves the persisted token at startup.
func (m *Manager) Init(ctx context.Context) error {
	defer m.notify()
	gen := m.begin()

	flags, err := m.store.Snapshot(ctx)
	if err != nil {
		m.log.Error().Err(err).Msg("read token store")
		return m.failClosed(ctx, gen, apperr.Transport(apperr.DefaultMessage, err))
	}

	if !flags.HasToken() {
		m.writeMu.Lock()
		defer m.writeMu.Unlock()
		if !m.current(gen) {
			return ErrSuperseded
		}
		if flags.HasUserID() {
			m.log.Warn().Msg("dropping id flag without token")
			if err := m.store.Put(ctx, tokenstore.Flags{}); err != nil {
				m.log.Error().Err(err).Msg("clear orphan id flag")
			}
		}
		m.transition(StateUnauthenticated, models.Session{}, nil)
		return nil
	}

	sess, err := m.resolve(ctx, flags.Token)
	if err != nil {
		return m.failClosed(ctx, gen, err)
	}
	return m.commit(ctx, gen, flags.Token, sess)
}

// Login stores token and resolves it into a session. Decode and the profile fetch run
// concurrently and both must succeed.
func (m *Manager) Login(ctx context.Context, token string) (models.Session, error) {
	defer m.notify()
	gen := m.begin()

	m.writeMu.Lock()
	if !m.current(gen) {
		m.writeMu.Unlock()
		return models.Session{}, ErrSuperseded
	}
	err := m.store.Save(ctx, token)
	m.writeMu.Unlock()
	if err != nil {
		return models.Session{}, m.failClosed(ctx, gen, apperr.Transport(apperr.DefaultMessage, fmt.Errorf("store token: %w", err)))
	}

	sess, err := m.resolve(ctx, token)
	if err != nil {
		return models.Session{}, m.failClosed(ctx, gen, err)
	}
	if err := m.commit(ctx, gen, token, sess); err != nil {
		return models.Session{}, err
	}
	return sess, nil
}

func (m *Manager) Logout(ctx context.Context) error {
	defer m.notify()
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	m.generation++
	m.mu.Unlock()

	err := m.store.Clear(ctx)
	m.transition(StateUnauthenticated, models.Session{}, nil)
	if err != nil {
		return apperr.Transport(apperr.DefaultMessage, fmt.Errorf("clear token store: %w", err))
	}
	return nil
}

// Revalidate re-decodes the stored token without touching the network. An expired or
// unreadable token ends the session.
func (m *Manager) Revalidate(ctx context.Context) error {
	defer m.notify()
	m.mu.RLock()
	state, gen := m.state, m.generation
	m.mu.RUnlock()
	if state != StateAuthenticated {
		return nil
	}

	token, err := m.store.Load(ctx)
	if err != nil {
		if errors.Is(err, tokenstore.ErrAbsent) {
			return m.failClosed(ctx, gen, ErrInvalidToken)
		}
		return apperr.Transport(apperr.DefaultMessage, fmt.Errorf("load token: %w", err))
	}
	if _, err := m.decode(token); err != nil {
		return m.failClosed(ctx, gen, err)
	}
	return nil
}

// Current never performs I/O.
func (m *Manager) Current() (models.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != StateAuthenticated {
		return models.Session{}, false
	}
	return m.session, true
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Subscribe registers fn for every later transition and returns its cancel func. Callbacks run
// after the manager has released its locks, so fn may call back into the manager.
func (m *Manager) Subscribe(fn func(Snapshot)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return func() {}
	}
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Close drops all subscribers. The token store is owned by the caller.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.subs = make(map[int]func(Snapshot))
}

func (m *Manager) begin() uint64 {
	m.mu.Lock()
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	m.transition(StateResolving, models.Session{}, nil)
	m.notify()
	return gen
}

func (m *Manager) current(gen uint64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation == gen
}

type fetchResult struct {
	profile models.Profile
	err     error
}

func (m *Manager) resolve(ctx context.Context, token string) (models.Session, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fetched := make(chan fetchResult, 1)
	go func() {
		profile, err := m.profiles.FetchCurrentUser(ctx)
		fetched <- fetchResult{profile: profile, err: err}
	}()

	claims, err := m.decode(token)
	if err != nil {
		cancel()
		<-fetched
		return models.Session{}, err
	}

	res := <-fetched
	if res.err != nil {
		return models.Session{}, apperr.Normalize(res.err)
	}
	return reconcile(claims, res.profile)
}

func (m *Manager) decode(token string) (security.Claims, error) {
	claims, err := m.decoder.Decode(token)
	if err == nil {
		return claims, nil
	}
	if errors.Is(err, security.ErrTokenExpired) {
		return security.Claims{}, fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}
	return security.Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
}

// reconcile fails closed when the backend's view of the user disagrees with the token.
func reconcile(claims security.Claims, profile models.Profile) (models.Session, error) {
	if profile.ID != claims.Subject {
		return models.Session{}, fmt.Errorf("%w: profile id %q, token subject %q",
			ErrIdentityDrift, profile.ID, claims.Subject)
	}
	if profile.Role != models.UserRoleNone && profile.Role != claims.Role {
		return models.Session{}, fmt.Errorf("%w: profile role %q, token role %q",
			ErrIdentityDrift, profile.Role, claims.Role)
	}

	phone := claims.PhoneNumber
	if phone == "" {
		phone = profile.PhoneNumber
	}
	if phone == "" {
		phone = claims.Subject
	}
	return models.Session{
		ID:                   claims.Subject,
		Role:                 claims.Role,
		PhoneNumberOrSubject: phone,
		ExpiresAt:            claims.Expiry(),
	}, nil
}

func (m *Manager) commit(ctx context.Context, gen uint64, token string, sess models.Session) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if !m.current(gen) {
		m.log.Debug().Msg("discarding superseded session")
		return ErrSuperseded
	}

	flags := tokenstore.Flags{Token: token}
	if sess.IsPatient() {
		flags.UserID = sess.ID
	}
	if err := m.store.Put(ctx, flags); err != nil {
		m.log.Error().Err(err).Msg("persist session flags")
		_ = m.store.Clear(ctx)
		m.transition(StateUnauthenticated, models.Session{}, nil)
		return apperr.Transport(apperr.DefaultMessage, fmt.Errorf("persist flags: %w", err))
	}

	m.log.Info().Str("subject", sess.ID).Str("role", string(sess.Role)).Msg("session established")
	m.transition(StateAuthenticated, sess, nil)
	return nil
}

// failClosed publishes Invalid, clears the store and settles on Unauthenticated. A stale
// generation leaves everything as the newer operation set it.
func (m *Manager) failClosed(ctx context.Context, gen uint64, cause error) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if !m.current(gen) {
		return ErrSuperseded
	}

	m.log.Info().Err(cause).Msg("session rejected")
	m.transition(StateInvalid, models.Session{}, cause)
	if err := m.store.Clear(ctx); err != nil {
		m.log.Error().Err(err).Msg("clear token store")
	}
	m.transition(StateUnauthenticated, models.Session{}, nil)

	var appErr *apperr.Error
	if errors.As(cause, &appErr) {
		return cause
	}
	return apperr.Normalize(cause)
}

func (m *Manager) transition(state State, sess models.Session, cause error) {
	m.mu.Lock()
	m.state = state
	m.session = sess
	m.pending = append(m.pending, Snapshot{State: state, Session: sess, Err: cause})
	m.mu.Unlock()
}

// notify delivers queued transitions. Callers must not hold writeMu.
func (m *Manager) notify() {
	m.mu.Lock()
	pending := m.pending
	m.pending = nil
	subs := make([]func(Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, snap := range pending {
		for _, fn := range subs {
			fn(snap)
		}
	}
}
