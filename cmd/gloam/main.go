package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/pkg/profile"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/peterm94/gloam-engine-archive/internal/config"
	"github.com/peterm94/gloam-engine-archive/internal/core/ecs"
	"github.com/peterm94/gloam-engine-archive/internal/data"
	"github.com/peterm94/gloam-engine-archive/internal/engine"
	"github.com/peterm94/gloam-engine-archive/internal/host"
	"github.com/peterm94/gloam-engine-archive/internal/host/ebitenhost"
	gonet "github.com/peterm94/gloam-engine-archive/internal/net"
	"github.com/peterm94/gloam-engine-archive/internal/persist"
	"github.com/peterm94/gloam-engine-archive/internal/render"
	"github.com/peterm94/gloam-engine-archive/internal/render/term"
	"github.com/peterm94/gloam-engine-archive/internal/scripting"
	"github.com/peterm94/gloam-engine-archive/internal/system"
)

const defaultConfigPath = "config/engine.toml"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(backend string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m               gloam  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mbackend:\033[0m %s\n\n", backend)
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main logic ─────────────────────────────────────────────────────

func run() error {
	cfgFlag := flag.String("config", "", "config file (default $GLOAM_CONFIG or "+defaultConfigPath+")")
	profileFlag := flag.String("profile", "", "write a cpu or mem profile to the working directory")
	flag.Parse()

	// 1. Load config
	cfg, err := loadConfig(*cfgFlag)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger; the terminal backend owns the screen, so logs go to a file
	if cfg.Render.Backend == "term" && cfg.Logging.File == "" {
		cfg.Logging.File = "gloam.log"
	}
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	switch *profileFlag {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		return fmt.Errorf("unknown profile mode %q (want cpu or mem)", *profileFlag)
	}

	if cfg.Render.Backend != "term" {
		printBanner(cfg.Render.Backend)
	}

	// 3. Scripts and the initial scene
	world := ecs.NewWorld()
	scripts := scripting.NewHost(world, log)
	defer scripts.Close()
	if err := scripts.LoadDir(cfg.Scripting.Dir); err != nil {
		return fmt.Errorf("scripts: %w", err)
	}

	scene, err := loadScene(cfg.Scripting.Scene, log)
	if err != nil {
		return err
	}
	ids, err := scene.Stage(scripts)
	if err != nil {
		return err
	}
	printSection("scene")
	printStat("objects staged", len(ids))
	printStat("glyphs", len(scene.Glyphs))

	// 4. Engine options: inbox and optional journal
	inbox := system.NewInbox(cfg.Engine.InboxSize)
	opts := []engine.Option{
		engine.WithLogger(log),
		engine.WithInbox(inbox, cfg.Engine.MaxCmdsPerTick),
	}

	if cfg.Journal.Enabled {
		printSection("journal")
		db, err := openJournal(cfg.Journal, log)
		if err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		defer db.Close()
		opts = append(opts, engine.WithJournal(persist.NewJournalRepo(db), cfg.Journal.FlushInterval, cfg.Journal.BatchSize))
		printOK("journal ready")
	}

	// 5. Render backend
	var (
		bridge render.Bridge = render.Nop{}
		screen *term.Bridge
		game   *ebitenhost.Game
	)
	switch cfg.Render.Backend {
	case "term":
		screen, err = term.Open(scene.Glyphs, log)
		if err != nil {
			return fmt.Errorf("terminal: %w", err)
		}
		defer screen.Close()
		bridge = screen
	case "ebiten":
		game, err = ebitenhost.New(cfg.Render.Width, cfg.Render.Height, cfg.Render.Scale, scene.Colors)
		if err != nil {
			return fmt.Errorf("ebiten: %w", err)
		}
		bridge = game.Bridge()
	}

	eng := engine.New(world, bridge, opts...)

	// 6. Debug console
	if cfg.Console.Enabled {
		srv, err := gonet.NewServer(cfg.Console, gonet.NewConsole(inbox, scripts), log)
		if err != nil {
			return fmt.Errorf("console: %w", err)
		}
		go srv.AcceptLoop()
		defer srv.Shutdown()
		if screen == nil {
			printReady(fmt.Sprintf("console on %s", srv.Addr()))
		}
		log.Info("console listening", zap.String("addr", srv.Addr().String()))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 7. Run until quit, signal or tick failure
	if game != nil {
		err = runEbiten(ctx, game, eng, cfg)
	} else {
		err = runLoop(ctx, eng, screen, cfg, log)
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if cerr := eng.Close(closeCtx); cerr != nil {
		log.Error("journal flush on shutdown failed", zap.Error(cerr))
	}
	log.Info("engine stopped",
		zap.Uint64("frames", eng.Frames()),
		zap.Int("live", world.Len()),
		zap.Duration("uptime", time.Since(time.Unix(cfg.Engine.StartTime, 0)).Round(time.Second)),
	)
	return err
}

func loadConfig(flagPath string) (*config.Config, error) {
	path := flagPath
	if path == "" {
		path = os.Getenv("GLOAM_CONFIG")
	}
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); errors.Is(err, os.ErrNotExist) {
			return config.Default(), nil
		}
		path = defaultConfigPath
	}
	return config.Load(path)
}

func loadScene(path string, log *zap.Logger) (*data.Scene, error) {
	if path == "" {
		return &data.Scene{}, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Warn("scene file not found, starting empty", zap.String("path", path))
		return &data.Scene{}, nil
	}
	return data.LoadScene(path)
}

func openJournal(cfg config.JournalConfig, log *zap.Logger) (*persist.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	printOK("PostgreSQL connected")

	version, err := persist.RunMigrations(ctx, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	printStat("schema version", int(version))

	prev, ok, err := persist.NewJournalRepo(db).LastSession(ctx)
	switch {
	case err != nil:
		log.Warn("could not read previous journal session", zap.Error(err))
	case ok:
		log.Info("previous journal session",
			zap.String("session", prev.SessionID.String()),
			zap.Uint64("last_frame", prev.Frame),
			zap.Int("live", prev.LiveCount),
			zap.Uint64("digest", prev.Digest),
		)
		printStat("previous session frames", int(prev.Frame))
	}
	return db, nil
}

// runLoop drives the engine from a ticker, alongside the terminal's quit key
// when the term backend is active.
func runLoop(ctx context.Context, eng *engine.Engine, screen *term.Bridge, cfg *config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return host.NewLoop(eng, cfg.Engine.TickRate, cfg.Engine.MaxDelta, log).Run(gctx)
	})
	if screen != nil {
		g.Go(func() error {
			defer cancel()
			return screen.WaitQuit(gctx)
		})
	} else {
		printReady(fmt.Sprintf("game loop running (tick: %s)", cfg.Engine.TickRate))
	}
	return g.Wait()
}

// runEbiten hands the main goroutine to ebiten; ticks happen in Game.Update.
func runEbiten(ctx context.Context, game *ebitenhost.Game, eng *engine.Engine, cfg *config.Config) error {
	game.Bind(eng)
	ebiten.SetWindowSize(cfg.Render.Width*2, cfg.Render.Height*2)
	ebiten.SetWindowTitle(cfg.Render.Title)
	ebiten.SetTPS(max(int(time.Second/cfg.Engine.TickRate), 1))

	go func() {
		<-ctx.Done()
		game.Quit()
	}()
	return ebiten.RunGame(game)
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	if cfg.File != "" {
		zapCfg.OutputPaths = []string{cfg.File}
		zapCfg.ErrorOutputPaths = []string{cfg.File}
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	return zapCfg.Build()
}
