// cmd/fieldaudit/main.go
//
// This is the entry point for the fieldaudit CLI. Run it from the directory
// that should hold the audit data (or point -dir at it):
//
// 1. Create .fieldaudit/ and load config.yaml and .env
// 2. Open the diagnostic log and the journey logbook
// 3. Wire the store, backup sink, generators and exporter
// 4. Launch the TUI

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/kingrea/field-audit/internal/backup"
	"github.com/kingrea/field-audit/internal/config"
	"github.com/kingrea/field-audit/internal/export"
	"github.com/kingrea/field-audit/internal/generator"
	"github.com/kingrea/field-audit/internal/logbook"
	"github.com/kingrea/field-audit/internal/logging"
	"github.com/kingrea/field-audit/internal/store"
	"github.com/kingrea/field-audit/internal/tui"
	"github.com/kingrea/field-audit/internal/workflow"
)

func main() {
	dir := flag.String("dir", "", "project directory (defaults to the working directory)")
	flag.Parse()

	projectDir := *dir
	if projectDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting working directory: %v\n", err)
			os.Exit(1)
		}
		projectDir = cwd
	}

	if err := run(projectDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(projectDir string) error {
	if err := config.InitDir(projectDir); err != nil {
		return fmt.Errorf("initialize %s directory: %w", config.AppDir, err)
	}
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogsDir(), cfg.Project.Log.Level)
	if err != nil {
		return err
	}
	defer logger.Close()
	lb, err := logbook.New(filepath.Join(cfg.LogsDir(), "journey.log"))
	if err != nil {
		return fmt.Errorf("open logbook: %w", err)
	}
	logger.AddHook(lb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend, closeBackend, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer closeBackend()
	st := store.New(backend, store.WithLogger(logger))

	sink, closeSink, err := openSink(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSink()

	gemini, err := generator.NewGemini(ctx, generator.GeminiConfig{
		APIKey:       cfg.APIKey(),
		ReportModel:  cfg.Project.Generator.ReportModel,
		PlanModel:    cfg.Project.Generator.PlanModel,
		MaxImagePx:   cfg.Project.Generator.MaxImagePx,
		Organization: cfg.Project.Organization,
	}, generator.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("create generator: %w", err)
	}
	if cfg.APIKey() == "" {
		logger.Warn("no API key configured; report and plan generation are disabled")
	}

	ctrl := workflow.NewController(workflow.Deps{
		Store:    st,
		Reports:  gemini,
		Plans:    gemini,
		Exporter: export.NewExporter(cfg.ExportsDir(), cfg.Project.Organization, logger),
		Backups:  sink,
	}, workflow.WithLogger(logger), workflow.WithFallbackAdmin(cfg.FallbackAdmin()))

	logger.WithFields(logrus.Fields{
		"project": projectDir,
		"storage": cfg.Project.Storage.Backend,
		"backup":  cfg.Project.Backup.Sink,
	}).Info("fieldaudit started")

	app := tui.NewApp(ctrl,
		tui.WithContext(ctx),
		tui.WithLogbook(lb),
		tui.WithLogger(logger),
	)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run TUI: %w", err)
	}
	logger.Info("fieldaudit closed")
	return nil
}

func openBackend(cfg *config.Config) (store.Backend, func(), error) {
	switch cfg.Project.Storage.Backend {
	case config.BackendRedis:
		b, err := store.NewRedisBackend(cfg.Project.Storage.RedisAddr, cfg.Project.Storage.RedisPrefix)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return b, closer(b), nil
	default:
		b, err := store.NewFileBackend(cfg.StateDir())
		if err != nil {
			return nil, nil, fmt.Errorf("open state dir: %w", err)
		}
		return b, func() {}, nil
	}
}

func openSink(ctx context.Context, cfg *config.Config) (backup.Sink, func(), error) {
	switch cfg.Project.Backup.Sink {
	case config.SinkGCS:
		b := cfg.Project.Backup
		s, err := backup.NewGCSSink(ctx, b.Bucket, b.Prefix, b.CredentialsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open gcs sink: %w", err)
		}
		return s, closer(s), nil
	default:
		return backup.NewDirSink(cfg.BackupsDir()), func() {}, nil
	}
}

func closer(c io.Closer) func() {
	return func() { _ = c.Close() }
}
