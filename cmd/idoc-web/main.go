package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Deathstroke97/idoc/internal/appointments"
	"github.com/Deathstroke97/idoc/internal/config"
	"github.com/Deathstroke97/idoc/internal/directory"
	"github.com/Deathstroke97/idoc/internal/platform/middleware"
	"github.com/Deathstroke97/idoc/internal/web"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "idoc-web",
		Short: "Medical directory appointments front end",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(appointmentsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger.Level(cfg.Level())
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newDirectory(cfg *config.Config, logger zerolog.Logger) *directory.Client {
	return directory.New(cfg.APIBaseURL,
		directory.WithTimeout(cfg.APITimeout),
		directory.WithLogger(logger.With().Str("component", "directory").Logger()),
	)
}

func controllerOptions(cfg *config.Config, logger zerolog.Logger) []appointments.Option {
	opts := []appointments.Option{
		appointments.WithLogger(logger.With().Str("component", "appointments").Logger()),
	}
	if cfg.StaleLoadFencing {
		opts = append(opts, appointments.WithStaleFencing())
	}
	return opts
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the appointments web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)

	dir := newDirectory(cfg, logger)
	ctrlOpts := controllerOptions(cfg, logger)
	sessions := web.NewSessionStore(cfg.SessionTTL, func() *appointments.Controller {
		return appointments.NewController(dir, ctrlOpts...)
	})

	sweeper, err := sessions.StartSweeper(cfg.SessionSweepSchedule, logger)
	if err != nil {
		return err
	}
	defer sweeper.Stop()

	e, err := web.NewServer(web.ServerConfig{
		Version:  version,
		Logger:   logger,
		Sessions: sessions,
		Upstream: dir,
		RateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			BurstSize:         cfg.RateLimitBurst,
			IdleTTL:           cfg.SessionTTL,
		},
		CORSOrigins:  cfg.CORSOrigins,
		BodyLimit:    cfg.BodyLimit,
		SecureCookie: !cfg.IsDev(),
	})
	if err != nil {
		return err
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("api_base_url", cfg.APIBaseURL).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

func appointmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "appointments",
		Short: "List or cancel appointments from the terminal",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List appointments, optionally filtered by phone",
		RunE: func(cmd *cobra.Command, args []string) error {
			phone, _ := cmd.Flags().GetString("phone")
			ctrl, err := cliController()
			if err != nil {
				return err
			}
			if err := ctrl.Search(cmd.Context(), phone); err != nil {
				return err
			}
			return printView(cmd.OutOrStdout(), ctrl.View())
		},
	}
	listCmd.Flags().String("phone", "", "Filter by patient phone")
	cmd.AddCommand(listCmd)

	cancelCmd := &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel an appointment and print the refreshed list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid appointment id %q", args[0])
			}
			phone, _ := cmd.Flags().GetString("phone")
			ctrl, err := cliController()
			if err != nil {
				return err
			}
			ctrl.SetFilter(phone)
			err = ctrl.Cancel(cmd.Context(), id)
			var reloadErr *appointments.ReloadError
			if err != nil && !errors.As(err, &reloadErr) {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cancelled appointment #%d\n", id)
			if reloadErr != nil {
				return fmt.Errorf("refresh after cancel: %w", reloadErr)
			}
			return printView(cmd.OutOrStdout(), ctrl.View())
		},
	}
	cancelCmd.Flags().String("phone", "", "Filter used for the refreshed list")
	cmd.AddCommand(cancelCmd)

	return cmd
}

func cliController() (*appointments.Controller, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	// Keep stdout for the table.
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(zerolog.WarnLevel)
	return appointments.NewController(newDirectory(cfg, logger), controllerOptions(cfg, logger)...), nil
}

func printView(w io.Writer, v appointments.View) error {
	if len(v.Cards) == 0 {
		_, err := fmt.Fprintln(w, "No appointments found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDOCTOR\tSPECIALTY\tCLINIC\tDATE\tTIME\tPATIENT\tPHONE")
	for _, c := range v.Cards {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.AppointmentID, c.DoctorLabel, c.Specialty, c.ClinicLabel, c.Date, c.Time, c.PatientName, c.PatientPhone)
	}
	return tw.Flush()
}
