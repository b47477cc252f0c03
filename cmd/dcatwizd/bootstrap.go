package main

import (
	"fmt"
	"log/slog"
	"time"

	"dcatwiz/internal/blobstore"
	"dcatwiz/internal/config"
	"dcatwiz/internal/jobs"
	"dcatwiz/internal/server"
	"dcatwiz/internal/services/catalog"
	"dcatwiz/internal/services/directory"
	"dcatwiz/internal/services/openapi"
	"dcatwiz/internal/services/textgen"
	"dcatwiz/internal/services/translate"
	"dcatwiz/internal/services/webpage"
	"dcatwiz/internal/session"
	"dcatwiz/internal/wizard"
	"dcatwiz/internal/workflow"
)

// Fetch timeouts for the harvest pipeline. These bound a single background
// job step, not a user-facing request.
const (
	extractorTimeout = 30 * time.Second
	scraperTimeout   = 20 * time.Second
)

// buildComponents wires the state tiers, the worker pool, and the external
// service clients into a wizard controller.
func buildComponents(cfg *config.Config, logger *slog.Logger) (server.Components, error) {
	blobs, err := blobstore.Open(cfg, logger)
	if err != nil {
		return server.Components{}, fmt.Errorf("open blob store: %w", err)
	}

	sessions := session.NewStore(cfg.Workflow.SessionMaxEntries)
	registry := jobs.NewRegistry()
	runner := jobs.NewRunner(registry, cfg.Workflow.Workers, logger)
	manager := workflow.NewManager(sessions, blobs, cfg.Translator.TargetLanguages, logger)

	directoryClient := directory.NewClient(cfg.Directory)
	directoryCache := directory.NewCache(directoryClient,
		time.Duration(cfg.Directory.CacheTTL)*time.Second, logger)

	controller := wizard.NewController(wizard.Deps{
		Manager:    manager,
		Registry:   registry,
		Runner:     runner,
		Extractor:  openapi.NewExtractor(extractorTimeout, logger),
		Scraper:    webpage.NewScraper(scraperTimeout, logger),
		Publishers: directoryCache,
		Generator:  textgen.NewClient(cfg.Generator),
		Translator: translate.NewClient(cfg.Translator, logger),
		Catalog:    catalog.NewClient(cfg.Catalog, logger),
		Logger:     logger,
	})

	return server.Components{
		Blobs:      blobs,
		Sessions:   sessions,
		Registry:   registry,
		Runner:     runner,
		Controller: controller,
	}, nil
}
