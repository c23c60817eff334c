// Warsztat Menager: workshop management core.
//
// The wm command runs the status board and the background watchers, and
// offers a few maintenance subcommands over the shared data directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/app"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/audit"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/config"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/logs"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/paths"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/settings"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/tui"
)

// Build information (set via ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const usageText = `Usage: wm [-config path] [-debug] <command> [flags]

Commands:
  board        status board (default)
  watch        run presence and absence loops until interrupted
  audit        write the health report
  ensure-tree  create the data directory tree
  heartbeat    record presence: -login NAME [-role ROLE] [-machine HOST] [-logout]
  auto-order   queue purchase rows for items below minimum
  export       write the stock to an .xlsx file: export FILE
  version      print version and exit
`

func main() {
	var (
		configPath = flag.String("config", "", "Path to wm.toml")
		debugMode  = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Usage = func() { fmt.Fprint(os.Stderr, usageText) }
	flag.Parse()

	cmd, args := "board", flag.Args()
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	if cmd == "version" {
		fmt.Printf("wm version %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()

		// Force exit after timeout
		time.AfterFunc(10*time.Second, func() {
			log.Error().Msg("forced shutdown after timeout")
			os.Exit(1)
		})
	}()

	if err := run(ctx, cmd, args, *configPath, *debugMode); err != nil {
		log.Error().Err(err).Str("command", cmd).Msg("wm failed")
		fmt.Fprintln(os.Stderr, "wm:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, args []string, configPath string, debugMode bool) error {
	env, err := config.LoadEnv(".env")
	if err != nil {
		return err
	}
	if configPath == "" {
		configPath = env.Config
	}

	cfg, cfgPath, err := config.Load(configPath, true)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	env.Apply(cfg)
	if debugMode {
		cfg.Logging.Level = config.LogLevelDebug
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration %s: %w", cfgPath, err)
	}

	board := cmd == "board"

	// Settings decide where logs go, so they load with a console logger.
	bootOut := io.Writer(os.Stderr)
	if board {
		bootOut = io.Discard
	}
	boot := zerolog.New(zerolog.ConsoleWriter{Out: bootOut, TimeFormat: time.RFC3339}).
		Level(logs.ParseLevel(string(cfg.Logging.Level), debugMode)).
		With().Timestamp().Logger()

	overrides := map[string]any{}
	if cfg.Paths.DataRoot != "" {
		overrides[paths.KeyDataRoot] = cfg.Paths.DataRoot
	}
	s, err := settings.Init(settings.Options{
		Dir:       config.ConfigDir(cfg, cfgPath),
		Overrides: overrides,
		Logger:    boot,
	})
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	logOpts := logs.Options{
		File:       config.LogFile(cfg, s.Paths().Resolve(paths.KeyLogsDir)),
		Level:      string(cfg.Logging.Level),
		Debug:      debugMode,
		Console:    cfg.Logging.Console && !board,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	}
	if board {
		logOpts.ConsoleOut = io.Discard
	}
	logger, closer, err := logs.New(logOpts)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer closer.Close()

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("config_path", cfgPath).
		Str("command", cmd).
		Msg("wm starting")

	a, err := app.Open(app.Options{
		Settings: s,
		Config:   cfg,
		Logger:   logger,
		Host:     app.Hostname(),
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error().Err(err).Msg("closing services")
		}
	}()

	switch cmd {
	case "board":
		return runBoard(ctx, a, cfg)
	case "watch":
		return runWatch(ctx, a, args, logger)
	case "audit":
		return runAudit(ctx, a, env.AuditFile, logger)
	case "ensure-tree":
		if err := a.Paths.EnsureCoreTree(); err != nil {
			return fmt.Errorf("creating data tree: %w", err)
		}
		fmt.Println(a.Paths.DataRoot())
		return nil
	case "heartbeat":
		return runHeartbeat(a, args)
	case "auto-order":
		rows, err := a.AutoOrder()
		if err != nil {
			return err
		}
		for _, r := range rows {
			fmt.Printf("%s\t%g\n", r.ID, r.Qty)
		}
		return nil
	case "export":
		if len(args) != 1 {
			return errors.New("usage: wm export FILE.xlsx")
		}
		return a.Warehouse.ExportXLSX(args[0])
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runBoard(ctx context.Context, a *app.App, cfg *config.Config) error {
	if err := a.StartBackground(ctx, "", ""); err != nil {
		return err
	}

	board := tui.NewBoard(tui.AppLoader(a, nil), tui.Options{
		Refresh: time.Duration(cfg.Board.RefreshSec) * time.Second,
		Theme:   a.Settings.GetString("ui.theme", tui.ThemeDark),
	})

	p := tea.NewProgram(board, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("board: %w", err)
	}
	return nil
}

func runWatch(ctx context.Context, a *app.App, args []string, logger zerolog.Logger) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	login := fs.String("login", "", "Send heartbeats for this login")
	role := fs.String("role", "", "Role recorded with heartbeats")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.StartBackground(ctx, *login, *role); err != nil {
		return err
	}
	logger.Info().Str("login", *login).Msg("watchers running")
	<-ctx.Done()
	logger.Info().Msg("watchers stopping")
	return nil
}

func runAudit(ctx context.Context, a *app.App, override string, logger zerolog.Logger) error {
	report := audit.Run(ctx, a.AuditChecks(), audit.Options{Logger: logger})
	if _, err := report.WriteTo(os.Stdout); err != nil {
		return err
	}

	path := audit.ReportPath(a.Paths.Resolve(paths.KeyLogsDir), override, report.Started)
	if err := report.Save(path); err != nil {
		return fmt.Errorf("saving audit report: %w", err)
	}
	fmt.Println("report:", path)
	return nil
}

func runHeartbeat(a *app.App, args []string) error {
	fs := flag.NewFlagSet("heartbeat", flag.ContinueOnError)
	login := fs.String("login", "", "User login (required)")
	role := fs.String("role", "", "User role")
	machine := fs.String("machine", "", "Machine name (default: this host)")
	logout := fs.Bool("logout", false, "Mark the session as ended")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return a.Presence.Heartbeat(*login, *role, *machine, *logout)
}
