package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"clinicdesk/internal/api"
	"clinicdesk/internal/apperr"
	"clinicdesk/internal/models"
	"clinicdesk/internal/tokenstore"
)

var (
	ErrInvalidCredentials = apperr.Auth("invalid credentials")
	ErrNoToken            = apperr.Auth("no token")
)

const msgProfileFailed = "Could not load the current user"

// AuthService is the credential service: it talks to /auth/* and owns writing the token.
type AuthService struct {
	client *api.Client
	tokens tokenstore.Store
	log    zerolog.Logger
	now    func() time.Time
}

func NewAuthService(client *api.Client, tokens tokenstore.Store, log zerolog.Logger) *AuthService {
	return &AuthService{
		client: client,
		tokens: tokens,
		log:    log,
		now:    time.Now,
	}
}

type AuthResult struct {
	Token   string
	Profile models.Profile
}

type authResponse struct {
	Token string          `json:"token"`
	User  *models.Profile `json:"user,omitempty"`
}

func (s *AuthService) Register(ctx context.Context, input models.RegisterInput) (AuthResult, error) {
	input, err := validateRegistration(input, s.now())
	if err != nil {
		return AuthResult{}, err
	}

	var resp authResponse
	err = s.client.Do(ctx, api.Request{
		Method: http.MethodPost,
		Path:   "auth/register",
		Body:   input,
	}, &resp)
	if err != nil {
		s.log.Info().Err(err).Msg("registration rejected")
		return AuthResult{}, err
	}
	if resp.Token == "" {
		return AuthResult{}, apperr.Transport(apperr.DefaultMessage, errors.New("register: response without token"))
	}

	if err := s.tokens.Save(ctx, resp.Token); err != nil {
		return AuthResult{}, apperr.Transport(apperr.DefaultMessage, fmt.Errorf("store token: %w", err))
	}

	result := AuthResult{Token: resp.Token}
	if resp.User != nil {
		result.Profile = *resp.User
	}
	return result, nil
}

func (s *AuthService) Login(ctx context.Context, credential models.Credential) (string, error) {
	credential, err := validateCredential(credential)
	if err != nil {
		return "", err
	}

	var resp authResponse
	err = s.client.Do(ctx, api.Request{
		Method: http.MethodPost,
		Path:   "auth/login",
		Body:   credential,
	}, &resp)
	if err != nil {
		if errors.Is(err, apperr.ErrAuth) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if resp.Token == "" {
		return "", apperr.Transport(apperr.DefaultMessage, errors.New("login: response without token"))
	}

	if err := s.tokens.Save(ctx, resp.Token); err != nil {
		return "", apperr.Transport(apperr.DefaultMessage, fmt.Errorf("store token: %w", err))
	}
	return resp.Token, nil
}

// Logout forgets the local credentials; the backend keeps no session to end.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.tokens.Clear(ctx); err != nil {
		return apperr.Transport(apperr.DefaultMessage, fmt.Errorf("clear token: %w", err))
	}
	return nil
}

func (s *AuthService) FetchCurrentUser(ctx context.Context) (models.Profile, error) {
	var profile models.Profile
	err := s.client.Do(ctx, api.Request{
		Method: http.MethodGet,
		Path:   "auth/me",
		Auth:   true,
	}, &profile)
	if err != nil {
		var e *apperr.Error
		switch {
		case !errors.As(err, &e):
			return models.Profile{}, apperr.Transport(apperr.DefaultMessage, err)
		case e.Kind == apperr.KindTransport && e.Status == 0:
			return models.Profile{}, e
		case e.Status != 0:
			// any non-2xx from /auth/me means the token is not accepted
			msg := e.Message
			if msg == apperr.DefaultMessage {
				msg = msgProfileFailed
			}
			return models.Profile{}, &apperr.Error{Kind: apperr.KindAuth, Message: msg, Status: e.Status, Err: e.Err}
		default:
			return models.Profile{}, e
		}
	}
	return profile, nil
}
