package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/pokertable/internal/admin"
	"github.com/lox/pokertable/internal/auth"
	"github.com/lox/pokertable/internal/config"
	"github.com/lox/pokertable/internal/gameid"
	"github.com/lox/pokertable/internal/handhistory"
	"github.com/lox/pokertable/internal/persistence"
	"github.com/lox/pokertable/internal/session"
	"github.com/lox/pokertable/internal/tablestats"
)

// CLI is the full set of flags a standalone process accepts. Every
// persistent setting it doesn't cover lives in the HCL file named by
// Config, so a deployment only needs flags for the things that differ
// between environments: the listen address, the persistence backend,
// and debug logging.
type CLI struct {
	Config   string `kong:"default='pokertable.hcl',help='Path to the HCL configuration file'"`
	Addr     string `kong:"default=':8080',help='Server listen address, overrides the config file port'"`
	Debug    bool   `kong:"help='Enable debug logging'"`
	Postgres string `kong:"help='Postgres DSN for hand/player persistence; falls back to --data-dir, then in-memory'"`
	DataDir  string `kong:"help='Directory for file-backed hand persistence; used only when --postgres is unset'"`
	NoAuth   bool   `kong:"help='Accept any handle without a signed bearer token, for local development'"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("pokertable-server"),
		kong.Description("Real-time multi-seat No-Limit Hold'em table server"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)

	level := log.InfoLevel
	if cli.Debug {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})

	cfg, err := config.Load(cli.Config)
	kctx.FatalIfErrorf(err)
	kctx.FatalIfErrorf(cfg.Validate())

	store, err := openStore(logger, cli)
	kctx.FatalIfErrorf(err)
	defer store.Close()

	recorder := handhistory.NewRecorder(store, logger)
	stats := tablestats.NewTracker()

	sessCfg := cfg.ToSessionConfig()
	challenges := auth.NewChallengeStore(sessCfg.ChallengeTTL, sessCfg.SessionTTL, gameid.Generate)
	var validator auth.Validator = challenges
	if cli.NoAuth {
		validator = auth.NewNoopValidator()
	}

	clock := quartz.NewReal()
	coord := session.NewCoordinator(logger, clock, sessCfg, cfg.ToTableConfig(), validator, challenges, recorder, stats)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", coord.ServeWebsocket)
	mux.HandleFunc("/ws/binary", coord.ServeWebsocketBinary)
	mux.HandleFunc("/auth/challenge", coord.ChallengeHandler)
	mux.HandleFunc("/auth/verify", coord.VerifyHandler)
	mux.HandleFunc("/auth/session", coord.SessionHandler)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/admin/", admin.New(logger, cfg.Server.AdminToken, store, stats, coord.Manager))

	addr := cli.Addr
	if addr == ":8080" && cfg.Server.Port != 0 && cfg.Server.Port != 8080 {
		addr = ":" + strconv.Itoa(cfg.Server.Port)
	}

	httpServer := &http.Server{
		Addr:    addr,
		Handler: withCORS(cfg.Server.CORSOrigin, mux),
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", addr, "cors_origin", cfg.Server.CORSOrigin, "no_auth", cli.NoAuth)
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			kctx.FatalIfErrorf(err)
		}
	case sig := <-sigChan:
		logger.Info("received signal, shutting down gracefully", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		coord.Manager.CloseAll()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
		if err := <-serverErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server exited with error", "error", err)
		} else {
			logger.Info("server shutdown complete")
		}
	}
}

// openStore picks the persistence backend from CLI flags: postgres when
// a DSN is given, a file-backed store when only a data directory is
// given, and an in-memory store otherwise (hands are lost on restart,
// fine for local development and tests).
func openStore(logger *log.Logger, cli CLI) (persistence.Store, error) {
	if cli.Postgres != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err := persistence.ConnectPostgres(ctx, cli.Postgres)
		if err != nil {
			return nil, err
		}
		if err := store.InitSchema(ctx); err != nil {
			return nil, err
		}
		logger.Info("using postgres persistence")
		return store, nil
	}
	if cli.DataDir != "" {
		store, err := persistence.NewFileStore(cli.DataDir)
		if err != nil {
			return nil, err
		}
		logger.Info("using file persistence", "dir", cli.DataDir)
		return store, nil
	}
	logger.Info("using in-memory persistence (hands are not retained across restarts)")
	return persistence.NewMemoryStore(), nil
}

func withCORS(origin string, next http.Handler) http.Handler {
	if origin == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
