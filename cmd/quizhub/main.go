package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	router "github.com/dkeye/quizhub/internal/adapters/http"
	"github.com/dkeye/quizhub/internal/adapters/ws"
	"github.com/dkeye/quizhub/internal/app"
	"github.com/dkeye/quizhub/internal/config"
	"github.com/dkeye/quizhub/internal/domain"
	"github.com/dkeye/quizhub/internal/lobby"
	"github.com/dkeye/quizhub/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Msg("error loading .env file")
		}
	} else {
		log.Info().Msg("loaded environment from .env")
	}

	flags := []cli.Flag{
		&cli.StringFlag{Name: "env", Usage: "config environment (config/config.<env>.yaml)", Sources: cli.EnvVars("CONFIG_ENV")},
		&cli.IntFlag{Name: "port", Usage: "HTTP port, overrides config"},
		&cli.BoolFlag{Name: "debug", Usage: "debug logging and gin debug mode"},
	}
	cmd := &cli.Command{
		Name:   "quizhub",
		Usage:  "quiz game lobby server",
		Flags:  flags,
		Action: serve,
		Commands: []*cli.Command{{
			Name:   "serve",
			Usage:  "run the HTTP API and game servers (default)",
			Action: serve,
		}},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Error().Err(err).Msg("quizhub exited")
		os.Exit(1)
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("env"))
	if err != nil {
		return err
	}
	if p := int(cmd.Int("port")); p > 0 {
		cfg.Port = p
	}
	if cmd.Bool("debug") {
		cfg.Mode = "debug"
	}
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	games, err := store.Open(ctx, store.Options{
		Driver:        cfg.Store.Driver,
		MongoURI:      cfg.Store.MongoURI,
		MongoDatabase: cfg.Store.MongoDatabase,
		PostgresDSN:   cfg.Store.PostgresDSN,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	manager := app.NewManager(app.ManagerConfig{
		ExternalIPAddress: cfg.ExternalIP,
		StaticPort:        cfg.Game.StaticPort,
		PortScanLimit:     cfg.Game.PortScanLimit,
		InitialTimeout:    cfg.Game.InitialTimeout,
		IdleTimeout:       cfg.Game.IdleTimeout,
		MaxRetries:        lobby.Retries(cfg.Game.MaxRetries),
		MinPlayers:        cfg.Game.MinPlayers,
		MaxPlayers:        cfg.Game.MaxPlayers,
		StaticID:          domain.GameID(cfg.Game.StaticID),
		SayRateLimit:      cfg.Game.SayRateLimit,
		SayRateInterval:   cfg.Game.SayRateInterval,
	}, games, ws.NewFactory(ws.Config{
		Host:       cfg.WS.Host,
		ReadLimit:  cfg.WS.ReadLimit,
		PingPeriod: cfg.WS.PingPeriod,
		WriteWait:  cfg.WS.WriteWait,
	}))

	r := router.SetupRouter(cfg, manager, games)
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("quizhub started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server error")
		}
	}

	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := manager.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("stopping games")
	}
	if err := games.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("closing store")
	}
	log.Info().Msg("server exited gracefully")
	return nil
}
