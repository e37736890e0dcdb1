package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dungeond/internal/common/fsutil"
	"dungeond/internal/config"
	"dungeond/internal/httpapi"
	"dungeond/internal/journal"
	"dungeond/internal/provider"
	"dungeond/internal/prover"
	"dungeond/internal/runtime"
	"dungeond/internal/scenario"
	"dungeond/pkg/types"
)

func main() {
	// Flags with environment variable defaults
	defaultAddr := ":8080"
	if v := os.Getenv("DUNGEOND_ADDR"); v != "" {
		defaultAddr = v
	}
	addr := flag.String("addr", defaultAddr, "HTTP listen address, e.g. :8080")
	configPath := flag.String("config", "", "Config file (.yaml/.yml/.json/.toml); flags override")
	dataDir := flag.String("data-dir", "~/.dungeond", "Directory for the session journal")
	scenarioDir := flag.String("scenario-dir", "", "Directory to scan for *.yaml scenario files (empty=built-in scenario)")
	sessionID := flag.String("session", "", "Session id to resume or create (empty=new session)")
	proving := flag.Bool("proving", false, "Produce proof artifacts for committed turns")
	busCap := flag.Int("bus-capacity", 0, "Per-subscriber event buffer size (0=default)")
	queueSize := flag.Int("queue-size", 0, "Interactive input queue size (0=default)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	logger := newLogger(*logLevel)

	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", *configPath).Msg("load config")
		}
		applyConfig(cfg, addr, dataDir, scenarioDir, sessionID, proving, busCap, queueSize)
	}

	dir, err := fsutil.ExpandHome(*dataDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("resolve data dir")
	}
	store, err := journal.Open(dir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", dir).Msg("open journal")
	}
	defer store.DB.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snap, err := initialSnapshot(ctx, store, *sessionID, *scenarioDir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialize session")
	}

	var backend prover.Backend
	if *proving {
		backend = prover.NewStub()
	}
	rt, err := runtime.New(runtime.Config{
		Initial:     snap,
		Store:       store,
		BusCapacity: *busCap,
		Prover:      backend,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("build runtime")
	}

	// The network input queue is the only interactive provider a headless
	// daemon hosts; cli/gui kinds belong to client processes.
	queue := provider.NewInputQueue(*queueSize)
	if err := rt.RegisterProvider(types.Interactive(types.InteractiveNetwork), queue); err != nil {
		logger.Fatal().Err(err).Msg("register network provider")
	}
	if err := rt.BindFromState(); err != nil {
		logger.Fatal().Err(err).Msg("bind providers")
	}

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := rt.Loop(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("turn loop stopped")
		}
	}()

	httpapi.SetLogger(logger)
	httpapi.SetBaseContext(ctx)
	mux := httpapi.NewMux(rt)
	srv := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		logger.Info().Str("addr", *addr).Str("session", snap.SessionID).Uint64("nonce", snap.Nonce).Msg("dungeond listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancel()
	queue.Close()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown")
	}
	<-loopDone
	rt.Close()
}

// initialSnapshot resumes the session's latest archived snapshot when one
// exists, otherwise starts a fresh session from a scenario and archives its
// nonce-0 state.
func initialSnapshot(ctx context.Context, store *journal.Store, sessionID, scenarioDir string, logger zerolog.Logger) (types.StateSnapshot, error) {
	if sessionID != "" {
		snap, ok, err := store.Latest(ctx, sessionID)
		if err != nil {
			return types.StateSnapshot{}, err
		}
		if ok {
			logger.Info().Str("session", sessionID).Uint64("nonce", snap.Nonce).Msg("resuming session")
			return snap, nil
		}
	} else {
		sessionID = "session_" + uuid.NewString()
	}

	sc := scenario.Default()
	if scenarioDir != "" {
		scs, err := scenario.LoadDir(scenarioDir)
		if err != nil {
			return types.StateSnapshot{}, err
		}
		if len(scs) == 0 {
			return types.StateSnapshot{}, fmt.Errorf("no scenario files in %s", scenarioDir)
		}
		sc = scs[0]
	}
	snap, err := sc.Snapshot(sessionID)
	if err != nil {
		return types.StateSnapshot{}, err
	}
	if err := store.SaveSnapshot(ctx, snap); err != nil {
		return types.StateSnapshot{}, err
	}
	logger.Info().Str("session", sessionID).Str("scenario", sc.Name).Msg("new session")
	return snap, nil
}

// applyConfig fills in file-provided values for flags the user left at their
// defaults. Explicitly passed flags win.
func applyConfig(cfg config.Config, addr, dataDir, scenarioDir, sessionID *string, proving *bool, busCap, queueSize *int) {
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if cfg.Addr != "" && !set["addr"] {
		*addr = cfg.Addr
	}
	if cfg.DataDir != "" && !set["data-dir"] {
		*dataDir = cfg.DataDir
	}
	if cfg.ScenarioDir != "" && !set["scenario-dir"] {
		*scenarioDir = cfg.ScenarioDir
	}
	if cfg.SessionID != "" && !set["session"] {
		*sessionID = cfg.SessionID
	}
	if cfg.Proving && !set["proving"] {
		*proving = true
	}
	if cfg.BusCapacity > 0 && !set["bus-capacity"] {
		*busCap = cfg.BusCapacity
	}
	if cfg.QueueSize > 0 && !set["queue-size"] {
		*queueSize = cfg.QueueSize
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}
