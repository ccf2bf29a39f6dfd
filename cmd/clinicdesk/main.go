package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"clinicdesk/internal/app"
	"clinicdesk/internal/apperr"
	"clinicdesk/internal/config"
	"clinicdesk/internal/guard"
	"clinicdesk/internal/handlers"
	"clinicdesk/internal/jobs"
	"clinicdesk/internal/log"
	"clinicdesk/internal/models"
	"clinicdesk/internal/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "clinicdesk",
		Short:         "Client for the clinic records service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd(), loginCmd(), registerCmd(), logoutCmd(), whoamiCmd(), authorizeCmd())

	if err := rootCmd.Execute(); err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			fmt.Fprintln(os.Stderr, appErr.Error())
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// withApp loads configuration, wires the core and hands it to fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := log.New(cfg.Environment, cfg.Logging.Level)
	if cmd.Name() != "serve" {
		logger = logger.Level(zerolog.WarnLevel)
	}

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error().Err(err).Msg("close token store")
		}
	}()

	return fn(ctx, a)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local shell",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Sessions.Init(ctx); err != nil {
					a.Log.Warn().Err(err).Msg("stored session discarded")
				}

				scheduler := jobs.NewScheduler(a.Sessions, a.Config.Session.RevalidateSpec, a.Log)
				if err := scheduler.Start(); err != nil {
					a.Log.Error().Err(err).Msg("scheduler start failed")
				}

				httpServer := server.NewHTTPServer(a.Config, a.Log, handlers.NewHandlerSet(a))
				errCh := make(chan error, 1)
				go func() {
					errCh <- httpServer.Start()
				}()

				return waitForShutdown(a.Log, httpServer, scheduler, errCh)
			})
		},
	}
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, errCh <-chan error) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			<-scheduler.Stop().Done()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn().Msg("scheduler did not stop in time")
	}

	logger.Info().Msg("shell exited cleanly")
	return nil
}

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			phone, _ := cmd.Flags().GetString("phone")
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				password = os.Getenv("CLINICDESK_PASSWORD")
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				token, err := a.Auth.Login(ctx, models.Credential{PhoneNumber: phone, Password: password})
				if err != nil {
					return err
				}
				sess, err := a.Sessions.Login(ctx, token)
				if err != nil {
					return err
				}
				return printSession(cmd.OutOrStdout(), sess)
			})
		},
	}
	cmd.Flags().String("phone", "", "Phone number, +380 XX XXX XX XX")
	cmd.Flags().String("password", "", "Password (defaults to $CLINICDESK_PASSWORD)")
	_ = cmd.MarkFlagRequired("phone")
	return cmd
}

func registerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a patient account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			var in models.RegisterInput
			in.FirstName, _ = cmd.Flags().GetString("first-name")
			in.LastName, _ = cmd.Flags().GetString("last-name")
			in.BirthDate, _ = cmd.Flags().GetString("birth-date")
			in.PhoneNumber, _ = cmd.Flags().GetString("phone")
			in.Email, _ = cmd.Flags().GetString("email")
			in.Password, _ = cmd.Flags().GetString("password")
			if in.Password == "" {
				in.Password = os.Getenv("CLINICDESK_PASSWORD")
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				result, err := a.Auth.Register(ctx, in)
				if err != nil {
					return err
				}
				sess, err := a.Sessions.Login(ctx, result.Token)
				if err != nil {
					return err
				}
				return printSession(cmd.OutOrStdout(), sess)
			})
		},
	}
	cmd.Flags().String("first-name", "", "First name")
	cmd.Flags().String("last-name", "", "Last name")
	cmd.Flags().String("birth-date", "", "Birth date, YYYY-MM-DD")
	cmd.Flags().String("phone", "", "Phone number, +380 XX XXX XX XX")
	cmd.Flags().String("email", "", "Email address")
	cmd.Flags().String("password", "", "Password (defaults to $CLINICDESK_PASSWORD)")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Sessions.Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "signed out")
				return nil
			})
		},
	}
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Resolve the stored token against the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Sessions.Init(ctx); err != nil {
					return err
				}
				sess, ok := a.Sessions.Current()
				if !ok {
					return errors.New("not signed in")
				}
				return printSession(cmd.OutOrStdout(), sess)
			})
		},
	}
}

func authorizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authorize [admin|user]",
		Short: "Show the route guard's decision from the stored flags",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patient, _ := cmd.Flags().GetString("patient")
			landing, _ := cmd.Flags().GetBool("landing")

			role := models.UserRoleNone
			if len(args) == 1 {
				role = models.UserRole(args[0])
				if !role.Valid() {
					return apperr.Validation(fmt.Sprintf("unknown role %q", args[0]))
				}
			}

			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				var d guard.Decision
				switch {
				case landing:
					d = a.Guard.Landing(ctx)
				case patient != "":
					d = a.Guard.AuthorizePatient(ctx, patient)
				default:
					d = a.Guard.Authorize(ctx, role)
				}
				fmt.Fprintln(cmd.OutOrStdout(), d)
				return nil
			})
		},
	}
	cmd.Flags().String("patient", "", "Check a patient screen for this id")
	cmd.Flags().Bool("landing", false, "Check the login screen's redirect")
	return cmd
}

func printSession(out io.Writer, sess models.Session) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Session  models.Session `json:"session"`
		Redirect string         `json:"redirect"`
	}{sess, guard.Home(sess)})
}
