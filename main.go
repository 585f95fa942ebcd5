// Package main provides the entry point for the Cow Tagger application.
package main

import (
	"flag"
	"log/slog"
	"os"

	fyneapp "fyne.io/fyne/v2/app"

	"cow-tagger/internal/app"
	"cow-tagger/internal/config"
	"cow-tagger/internal/dataset"
	"cow-tagger/internal/version"
	"cow-tagger/ui/mainwindow"
	"cow-tagger/ui/prefs"
)

func main() {
	configPath := flag.String("config", "cow-tagger.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// Fall back to defaults but keep a record of the bad file.
		slog.Warn("configuration not loaded, using defaults", "path", *configPath, "error", err)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	logger.Info("starting cow tagger",
		"version", version.Version,
		"commit", version.GitCommit,
		"dataset_root", cfg.DatasetRoot)

	store := dataset.NewFSStore(cfg.DatasetRoot, logger)
	session := app.NewSession(store, cfg, logger)
	defer session.Close()

	fyneApp := fyneapp.NewWithID("io.cowtagger.app")
	fyneApp.Settings().SetTheme(&app.CowTaggerTheme{})

	win := mainwindow.New(fyneApp, session, store, prefs.Load(), logger)
	win.ShowAndRun()
}
