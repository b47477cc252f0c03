package wizard

import (
	"context"
	"log/slog"
	"time"

	"dcatwiz/internal/jobs"
	"dcatwiz/internal/logging"
	"dcatwiz/internal/services/catalog"
	"dcatwiz/internal/services/directory"
	"dcatwiz/internal/services/openapi"
	"dcatwiz/internal/services/textgen"
	"dcatwiz/internal/services/translate"
	"dcatwiz/internal/services/webpage"
	"dcatwiz/internal/workflow"
)

// Collaborator interfaces, narrowed to what the step controllers call so
// tests can substitute fakes.

// SpecExtractor fetches and parses an API description document.
type SpecExtractor interface {
	Extract(ctx context.Context, url string) openapi.Result
}

// PageScraper fetches a landing page and extracts descriptive content.
type PageScraper interface {
	Scrape(ctx context.Context, url string) webpage.Result
}

// PublisherDirectory lists the catalog's publishers.
type PublisherDirectory interface {
	Publishers(ctx context.Context, forceRefresh bool) ([]directory.Publisher, error)
}

// TextGenerator drafts metadata from harvested material.
type TextGenerator interface {
	Generate(ctx context.Context, input textgen.Input) (textgen.Generated, error)
}

// Translator renders one text into the target languages.
type Translator interface {
	Translate(ctx context.Context, req translate.Request) (map[string]string, error)
}

// CatalogAPI submits the finished dataset document.
type CatalogAPI interface {
	Submit(ctx context.Context, document any, token string) (catalog.SubmissionResult, error)
}

// Controller orchestrates the wizard steps. Each step pulls authoritative
// fields from the workflow manager, invokes one collaborator, hands the
// result back for persistence, and decides the next rendered state. Tier
// access always goes through the manager.
type Controller struct {
	manager    *workflow.Manager
	registry   *jobs.Registry
	runner     *jobs.Runner
	extractor  SpecExtractor
	scraper    PageScraper
	publishers PublisherDirectory
	generator  TextGenerator
	translator Translator
	catalog    CatalogAPI
	logger     *slog.Logger
	clock      func() time.Time
}

// Deps bundles the controller's collaborators.
type Deps struct {
	Manager    *workflow.Manager
	Registry   *jobs.Registry
	Runner     *jobs.Runner
	Extractor  SpecExtractor
	Scraper    PageScraper
	Publishers PublisherDirectory
	Generator  TextGenerator
	Translator Translator
	Catalog    CatalogAPI
	Logger     *slog.Logger
}

// NewController wires the step controllers to their collaborators.
func NewController(deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Controller{
		manager:    deps.Manager,
		registry:   deps.Registry,
		runner:     deps.Runner,
		extractor:  deps.Extractor,
		scraper:    deps.Scraper,
		publishers: deps.Publishers,
		generator:  deps.Generator,
		translator: deps.Translator,
		catalog:    deps.Catalog,
		logger:     logger.With(logging.FieldComponent, "wizard"),
		clock:      time.Now,
	}
}
