// Package app assembles the client core from configuration. The shell and every CLI
// command share one App.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"clinicdesk/internal/api"
	"clinicdesk/internal/config"
	"clinicdesk/internal/guard"
	"clinicdesk/internal/repository"
	"clinicdesk/internal/security"
	"clinicdesk/internal/service"
	"clinicdesk/internal/session"
	"clinicdesk/internal/storage"
	"clinicdesk/internal/tokenstore"
)

type App struct {
	Config *config.AppConfig
	Log    zerolog.Logger

	Store    tokenstore.Store
	Client   *api.Client
	Auth     *service.AuthService
	Sessions *session.Manager
	Guard    *guard.Guard
	Archive  storage.Archive

	Patients     *repository.PatientRepository
	TestTypes    *repository.TestTypeRepository
	MedicalTests *repository.MedicalTestRepository
	Diagnoses    *repository.DiagnosisRepository
}

// New wires the core. The session manager is left in Resolving; call Init.
func New(ctx context.Context, cfg *config.AppConfig, log zerolog.Logger) (*App, error) {
	store, err := tokenstore.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open token store: %w", err)
	}

	a, err := NewWithStore(ctx, cfg, log, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return a, nil
}

func NewWithStore(ctx context.Context, cfg *config.AppConfig, log zerolog.Logger, store tokenstore.Store) (*App, error) {
	client, err := api.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, store, log.With().Str("component", "api").Logger())
	if err != nil {
		return nil, err
	}

	archive, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open result archive: %w", err)
	}

	auth := service.NewAuthService(client, store, log.With().Str("component", "auth").Logger())
	decoder := security.NewTokenDecoder(cfg.Security.TokenSecret, cfg.Security.Leeway)
	sessions := session.NewManager(store, decoder, auth, log.With().Str("component", "session").Logger())

	return &App{
		Config:       cfg,
		Log:          log,
		Store:        store,
		Client:       client,
		Auth:         auth,
		Sessions:     sessions,
		Guard:        guard.New(store, log.With().Str("component", "guard").Logger()),
		Archive:      archive,
		Patients:     repository.NewPatientRepository(client),
		TestTypes:    repository.NewTestTypeRepository(client),
		MedicalTests: repository.NewMedicalTestRepository(client, archive),
		Diagnoses:    repository.NewDiagnosisRepository(client),
	}, nil
}

func (a *App) Close() error {
	a.Sessions.Close()
	return a.Store.Close()
}
