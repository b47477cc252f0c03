package wizard

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"dcatwiz/internal/dcat"
	"dcatwiz/internal/jobs"
	"dcatwiz/internal/services/catalog"
	"dcatwiz/internal/services/directory"
	"dcatwiz/internal/services/openapi"
	"dcatwiz/internal/services/textgen"
	"dcatwiz/internal/services/translate"
	"dcatwiz/internal/services/webpage"
	"dcatwiz/internal/session"
	"dcatwiz/internal/testsupport"
	"dcatwiz/internal/workflow"
)

type fakeExtractor struct {
	result openapi.Result
	calls  atomic.Int32
}

func (f *fakeExtractor) Extract(ctx context.Context, url string) openapi.Result {
	f.calls.Add(1)
	return f.result
}

type fakeScraper struct {
	result webpage.Result
	calls  atomic.Int32
}

func (f *fakeScraper) Scrape(ctx context.Context, url string) webpage.Result {
	f.calls.Add(1)
	return f.result
}

type fakePublishers struct {
	list []directory.Publisher
	err  error
}

func (f *fakePublishers) Publishers(ctx context.Context, forceRefresh bool) ([]directory.Publisher, error) {
	return f.list, f.err
}

type fakeGenerator struct {
	generated textgen.Generated
	err       error
}

func (f *fakeGenerator) Generate(ctx context.Context, input textgen.Input) (textgen.Generated, error) {
	return f.generated, f.err
}

// fakeTranslator prefixes the text with the target language.
type fakeTranslator struct {
	failLang string
}

func (f *fakeTranslator) Translate(ctx context.Context, req translate.Request) (map[string]string, error) {
	out := map[string]string{}
	for _, lang := range req.Targets {
		if lang == f.failLang {
			out[lang] = ""
			continue
		}
		out[lang] = lang + ": " + req.Text
	}
	return out, nil
}

type fakeCatalog struct {
	result   catalog.SubmissionResult
	err      error
	document any
	token    string
}

func (f *fakeCatalog) Submit(ctx context.Context, document any, token string) (catalog.SubmissionResult, error) {
	f.document = document
	f.token = token
	return f.result, f.err
}

type testEnv struct {
	controller *Controller
	manager    *workflow.Manager
	registry   *jobs.Registry
	extractor  *fakeExtractor
	scraper    *fakeScraper
	catalog    *fakeCatalog
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	blobs := testsupport.MustOpenStore(t, cfg)
	sessions := session.NewStore(cfg.Workflow.SessionMaxEntries)
	manager := workflow.NewManager(sessions, blobs, cfg.Translator.TargetLanguages, nil)

	registry := jobs.NewRegistry()
	runner := jobs.NewRunner(registry, 2, nil)
	if err := runner.Start(context.Background()); err != nil {
		t.Fatalf("start runner: %v", err)
	}
	t.Cleanup(runner.Stop)

	extractor := &fakeExtractor{result: openapi.Result{
		SpecURL:     "https://bafu.admin.ch/swagger.json",
		Title:       "Hydro Data API",
		Description: "Water levels for Swiss rivers.",
		Keywords:    []string{"water", "rivers"},
		Endpoints:   []openapi.Endpoint{{Method: "GET", Path: "/stations", Summary: "List stations"}},
	}}
	scraper := &fakeScraper{result: webpage.Result{
		Title:         "Hydrology Portal",
		Description:   "Portal description",
		DocumentLinks: []webpage.DocumentLink{{URL: "https://bafu.admin.ch/manual.pdf", Label: "Manual"}},
	}}
	cat := &fakeCatalog{result: catalog.SubmissionResult{DatasetID: "dataset-42", StatusCode: 201}}

	controller := NewController(Deps{
		Manager:   manager,
		Registry:  registry,
		Runner:    runner,
		Extractor: extractor,
		Scraper:   scraper,
		Publishers: &fakePublishers{list: []directory.Publisher{
			{ID: "CH_BAFU", DisplayName: "FOEN", Name: map[string]string{"en": "FOEN", "de": "BAFU"}},
		}},
		Generator:  &fakeGenerator{generated: textgen.Generated{Title: "Generated title"}},
		Translator: &fakeTranslator{},
		Catalog:    cat,
	})
	return &testEnv{
		controller: controller,
		manager:    manager,
		registry:   registry,
		extractor:  extractor,
		scraper:    scraper,
		catalog:    cat,
	}
}

// waitForJob polls Status until the pipeline reaches a terminal outcome.
func waitForJob(t *testing.T, env *testEnv, workflowID string) StatusView {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		view, err := env.controller.Status(context.Background(), workflowID)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if view.JobStatus == string(jobs.StatusComplete) || view.JobStatus == string(jobs.StatusFailed) || view.Stale {
			return view
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("pipeline did not finish in time")
	return StatusView{}
}

func TestEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	intake, err := env.controller.Intake(ctx, "https://bafu.admin.ch/api", "https://bafu.admin.ch/hydro")
	if err != nil {
		t.Fatalf("Intake: %v", err)
	}
	if intake.Stage != "processing" {
		t.Fatalf("stage = %q", intake.Stage)
	}

	status := waitForJob(t, env, intake.WorkflowID)
	if status.JobStatus != string(jobs.StatusComplete) {
		t.Fatalf("job status = %+v", status)
	}
	if status.Stage != "review" {
		t.Fatalf("stage after merge = %q", status.Stage)
	}

	review, err := env.controller.Review(ctx, intake.WorkflowID)
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if review.Title != "Hydro Data API" {
		t.Fatalf("review title = %q", review.Title)
	}
	if review.PublisherID != "CH_BAFU" {
		t.Fatalf("publisher = %q, want auto-detected", review.PublisherID)
	}

	// The translation step renders English-seeded content identical to the
	// extracted title and description.
	translation, err := env.controller.Translation(ctx, intake.WorkflowID)
	if err != nil {
		t.Fatalf("Translation: %v", err)
	}
	if translation.Translations["en"].Title != "Hydro Data API" {
		t.Fatalf("en title = %q", translation.Translations["en"].Title)
	}

	translated, err := env.controller.MachineTranslate(ctx, intake.WorkflowID)
	if err != nil {
		t.Fatalf("MachineTranslate: %v", err)
	}
	for _, lang := range []string{"en", "de", "fr", "it"} {
		if translated.Translations[lang].Empty() {
			t.Fatalf("language %s not populated: %+v", lang, translated.Translations[lang])
		}
	}
	if translated.Translations["de"].Title != "de: Hydro Data API" {
		t.Fatalf("de title = %q", translated.Translations["de"].Title)
	}

	result, err := env.controller.Submit(ctx, intake.WorkflowID, "secret-token")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.DatasetID != "dataset-42" {
		t.Fatalf("dataset id = %q", result.DatasetID)
	}
	if env.catalog.token != "Bearer secret-token" {
		t.Fatalf("token = %q", env.catalog.token)
	}
	document, ok := env.catalog.document.(dcat.Dataset)
	if !ok {
		t.Fatalf("document type %T", env.catalog.document)
	}
	if document.Title["en"] != "Hydro Data API" {
		t.Fatalf("document en title = %q", document.Title["en"])
	}
	if document.Publisher.Identifier != "CH_BAFU" {
		t.Fatalf("document publisher = %q", document.Publisher.Identifier)
	}
	if len(document.LandingPages) != 1 {
		t.Fatalf("landing pages = %+v", document.LandingPages)
	}
}

func TestIntakeWithoutLandingURLSkipsScraper(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	intake, err := env.controller.Intake(ctx, "https://bafu.admin.ch/api", "")
	if err != nil {
		t.Fatalf("Intake: %v", err)
	}
	status := waitForJob(t, env, intake.WorkflowID)
	if status.JobStatus != string(jobs.StatusComplete) {
		t.Fatalf("job status = %+v", status)
	}
	if env.scraper.calls.Load() != 0 {
		t.Fatalf("scraper invoked %d times, want 0", env.scraper.calls.Load())
	}
	details, ok := env.manager.Harvest(ctx, intake.WorkflowID)
	if !ok {
		t.Fatal("harvest missing")
	}
	if details.DocumentLinks == nil || len(details.DocumentLinks) != 0 {
		t.Fatalf("document links = %v, want empty slice", details.DocumentLinks)
	}
}

func TestStatusReportsStaleJob(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	state, err := env.manager.Create(ctx, "https://bafu.admin.ch/api", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	state.JobID = "lost-after-restart"
	if err := env.manager.Save(ctx, state); err != nil {
		t.Fatalf("Save: %v", err)
	}

	view, err := env.controller.Status(ctx, state.WorkflowID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !view.Stale {
		t.Fatalf("expected stale view, got %+v", view)
	}
}

func TestStatusAfterMergeStaysComplete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	intake, err := env.controller.Intake(ctx, "https://bafu.admin.ch/api", "")
	if err != nil {
		t.Fatalf("Intake: %v", err)
	}
	waitForJob(t, env, intake.WorkflowID)

	// The registry entry is consumed, but the merged state answers polls.
	view, err := env.controller.Status(ctx, intake.WorkflowID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if view.JobStatus != string(jobs.StatusComplete) || view.Percent != 100 {
		t.Fatalf("view = %+v", view)
	}
}

func TestPipelineFailureSurfacesError(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.result = openapi.Result{Err: "document is not valid JSON"}
	ctx := context.Background()

	intake, err := env.controller.Intake(ctx, "https://bafu.admin.ch/api", "")
	if err != nil {
		t.Fatalf("Intake: %v", err)
	}
	status := waitForJob(t, env, intake.WorkflowID)
	if status.JobStatus != string(jobs.StatusFailed) {
		t.Fatalf("status = %+v", status)
	}
	if status.Error == "" {
		t.Fatal("expected error message")
	}
	// Review stays guarded after the failure.
	_, err = env.controller.Review(ctx, intake.WorkflowID)
	var guardErr *workflow.GuardError
	if !errors.As(err, &guardErr) || guardErr.Redirect != workflow.StageProcessing {
		t.Fatalf("expected redirect to processing, got %v", err)
	}
}

func TestMachineTranslatePartialFailureLeavesLanguageEmpty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	intake, _ := env.controller.Intake(ctx, "https://bafu.admin.ch/api", "")
	waitForJob(t, env, intake.WorkflowID)

	// Swap in a translator that cannot produce French.
	env.controller.translator = &fakeTranslator{failLang: "fr"}

	view, err := env.controller.MachineTranslate(ctx, intake.WorkflowID)
	if err != nil {
		t.Fatalf("MachineTranslate: %v", err)
	}
	if !view.Translations["fr"].Empty() {
		t.Fatalf("fr = %+v, want empty", view.Translations["fr"])
	}
	if view.Translations["de"].Empty() {
		t.Fatal("de should be populated")
	}
	if len(view.Warnings) != 1 {
		t.Fatalf("warnings = %v", view.Warnings)
	}
}

func TestSubmitWithoutPublisherRedirectsToReview(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// A directory without a matching entry leaves the publisher unset.
	state, err := env.manager.Create(ctx, "https://example.org/api", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := env.manager.StoreHarvest(ctx, state.WorkflowID,
		workflow.HarvestedDetails{Title: "API"}, workflow.PublisherSnapshot{}); err != nil {
		t.Fatalf("StoreHarvest: %v", err)
	}
	if err := env.manager.MergeHarvest(ctx, state); err != nil {
		t.Fatalf("MergeHarvest: %v", err)
	}

	_, err = env.controller.Submit(ctx, state.WorkflowID, "token")
	var guardErr *workflow.GuardError
	if !errors.As(err, &guardErr) || guardErr.Redirect != workflow.StageReview {
		t.Fatalf("expected redirect to review, got %v", err)
	}
}

func TestGenerateFoldsDraftIntoReview(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	intake, _ := env.controller.Intake(ctx, "https://bafu.admin.ch/api", "")
	waitForJob(t, env, intake.WorkflowID)

	// Extracted title is present, so the generated draft replaces it only
	// because it is not user-entered.
	view, err := env.controller.Generate(ctx, intake.WorkflowID)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if view.Title != "Generated title" {
		t.Fatalf("title = %q", view.Title)
	}

	// A user edit afterwards wins and survives regeneration.
	if _, err := env.controller.SaveReview(ctx, intake.WorkflowID, workflow.ReviewInput{Title: "User title"}); err != nil {
		t.Fatalf("SaveReview: %v", err)
	}
	view, err = env.controller.Generate(ctx, intake.WorkflowID)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if view.Title != "User title" {
		t.Fatalf("title = %q, want user edit preserved", view.Title)
	}
}

func TestDocumentFilename(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"Hydro Data API", "hydro_data_api_dcat.json"},
		{"  Ä ö --- ", "dataset_dcat.json"},
		{"", "dataset_dcat.json"},
	}
	for _, tc := range cases {
		state := &workflow.State{Metadata: workflow.Metadata{Title: tc.title}}
		if got := documentFilename(state); got != tc.want {
			t.Fatalf("filename(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}
