package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"dcatwiz/internal/services"
	"dcatwiz/internal/services/directory"
	"dcatwiz/internal/session"
	"dcatwiz/internal/testsupport"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	blobs := testsupport.MustOpenStore(t, cfg)
	sessions := session.NewStore(cfg.Workflow.SessionMaxEntries)
	return NewManager(sessions, blobs, cfg.Translator.TargetLanguages, nil)
}

func mustCreate(t *testing.T, m *Manager, sourceURL, landingURL string) *State {
	t.Helper()
	state, err := m.Create(context.Background(), sourceURL, landingURL)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return state
}

func storeHarvest(t *testing.T, m *Manager, state *State, details HarvestedDetails, publishers ...directory.Publisher) {
	t.Helper()
	snapshot := PublisherSnapshot{Publishers: publishers}
	if err := m.StoreHarvest(context.Background(), state.WorkflowID, details, snapshot); err != nil {
		t.Fatalf("StoreHarvest: %v", err)
	}
}

func TestCreateRequiresSourceURL(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Create(context.Background(), "  ", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestLookupUnknownWorkflowIsExpired(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Lookup(context.Background(), "nope"); !errors.Is(err, services.ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestLookupRoundTrip(t *testing.T) {
	m := newTestManager(t)
	state := mustCreate(t, m, "https://bafu.admin.ch/api", "")

	loaded, err := m.Lookup(context.Background(), state.WorkflowID)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if loaded.SourceURL != state.SourceURL || loaded.Stage != StageIntake {
		t.Fatalf("loaded = %+v", loaded)
	}
}

func TestAdvanceGuards(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	state := mustCreate(t, m, "https://bafu.admin.ch/api", "")

	// Review before the job result is merged redirects to processing.
	err := m.Advance(ctx, state, StageReview)
	var guardErr *GuardError
	if !errors.As(err, &guardErr) || guardErr.Redirect != StageProcessing {
		t.Fatalf("expected redirect to processing, got %v", err)
	}

	if err := m.Advance(ctx, state, StageProcessing); err != nil {
		t.Fatalf("Advance to processing: %v", err)
	}

	storeHarvest(t, m, state, HarvestedDetails{Title: "Hydro API", Description: "Levels."})
	if err := m.MergeHarvest(ctx, state); err != nil {
		t.Fatalf("MergeHarvest: %v", err)
	}
	if state.Stage != StageReview {
		t.Fatalf("stage = %s, want review", state.Stage)
	}

	// Submit without a selected publisher redirects to review.
	err = m.Advance(ctx, state, StageSubmit)
	if !errors.As(err, &guardErr) || guardErr.Redirect != StageReview {
		t.Fatalf("expected redirect to review, got %v", err)
	}
}

func TestRollbackDoesNotEraseTiers(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	state := mustCreate(t, m, "https://bafu.admin.ch/api", "")
	storeHarvest(t, m, state, HarvestedDetails{Title: "Hydro API", Description: "Levels."})
	if err := m.MergeHarvest(ctx, state); err != nil {
		t.Fatalf("MergeHarvest: %v", err)
	}
	if _, err := m.ReconcileTranslations(ctx, state); err != nil {
		t.Fatalf("ReconcileTranslations: %v", err)
	}

	if err := m.Rollback(ctx, state, StageIntake); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if state.Stage != StageIntake {
		t.Fatalf("stage = %s", state.Stage)
	}
	// Forward again: tiers are intact, so the merged title survives.
	if err := m.Advance(ctx, state, StageReview); err != nil {
		t.Fatalf("Advance after rollback: %v", err)
	}
	if state.Metadata.Title != "Hydro API" {
		t.Fatalf("title = %q after rollback round trip", state.Metadata.Title)
	}
	translations, err := m.ReconcileTranslations(ctx, state)
	if err != nil {
		t.Fatalf("ReconcileTranslations after rollback: %v", err)
	}
	if translations["en"].Title != "Hydro API" {
		t.Fatalf("en title = %q", translations["en"].Title)
	}
}

func TestMergeHarvestKeepsUserEdits(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	state := mustCreate(t, m, "https://bafu.admin.ch/api", "")
	state.Metadata.Title = "My own title"
	state.Metadata.setProvenance("title", ProvenanceUserEntered)

	storeHarvest(t, m, state, HarvestedDetails{Title: "Extracted title", Description: "Extracted description"})
	if err := m.MergeHarvest(ctx, state); err != nil {
		t.Fatalf("MergeHarvest: %v", err)
	}
	if state.Metadata.Title != "My own title" {
		t.Fatalf("title = %q, want user edit preserved", state.Metadata.Title)
	}
	if state.Metadata.Description != "Extracted description" {
		t.Fatalf("description = %q", state.Metadata.Description)
	}
	if state.Metadata.AccessRights != AccessRightsPublic {
		t.Fatalf("access rights = %q, want default", state.Metadata.AccessRights)
	}
}

func TestMergeHarvestAutoDetectsPublisher(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	state := mustCreate(t, m, "https://bafu.admin.ch/api/x", "")
	storeHarvest(t, m, state,
		HarvestedDetails{Title: "Hydro API"},
		directory.Publisher{ID: "CH_BAFU", DisplayName: "FOEN"})

	if err := m.MergeHarvest(ctx, state); err != nil {
		t.Fatalf("MergeHarvest: %v", err)
	}
	if state.Metadata.PublisherID != "CH_BAFU" {
		t.Fatalf("publisher = %q, want CH_BAFU", state.Metadata.PublisherID)
	}
}

func TestMergeHarvestLeavesPublisherUnsetWithoutMatch(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	state := mustCreate(t, m, "https://bafu.admin.ch/api/x", "")
	storeHarvest(t, m, state,
		HarvestedDetails{Title: "Hydro API"},
		directory.Publisher{ID: "CH_ASTRA", DisplayName: "FEDRO"})

	if err := m.MergeHarvest(ctx, state); err != nil {
		t.Fatalf("MergeHarvest: %v", err)
	}
	if state.Metadata.PublisherID != "" {
		t.Fatalf("publisher = %q, want unset", state.Metadata.PublisherID)
	}
}

func TestApplyReviewInputRequestAlwaysWins(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	state := mustCreate(t, m, "https://bafu.admin.ch/api", "")
	storeHarvest(t, m, state, HarvestedDetails{Title: "Extracted", Description: "Extracted desc"})
	if err := m.MergeHarvest(ctx, state); err != nil {
		t.Fatalf("MergeHarvest: %v", err)
	}
	if err := m.SaveGenerated(ctx, state, GeneratedContent{Title: "Generated", Description: "Generated desc"}); err != nil {
		t.Fatalf("SaveGenerated: %v", err)
	}

	input := ReviewInput{Title: "User title", Keywords: []string{"water"}}
	if err := m.ApplyReviewInput(ctx, state, input); err != nil {
		t.Fatalf("ApplyReviewInput: %v", err)
	}
	if state.Metadata.Title != "User title" {
		t.Fatalf("title = %q, want request input to win", state.Metadata.Title)
	}
	if state.Metadata.Provenance["title"] != ProvenanceUserEntered {
		t.Fatalf("provenance = %q", state.Metadata.Provenance["title"])
	}
	// Fields not in the request fall back to the lower tiers.
	if state.Metadata.Description != "Generated desc" {
		t.Fatalf("description = %q", state.Metadata.Description)
	}
	if !reflect.DeepEqual(state.Metadata.Keywords, []string{"water"}) {
		t.Fatalf("keywords = %v", state.Metadata.Keywords)
	}
}

func TestReconcileTranslationsSynthesizesFromMetadata(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	state := mustCreate(t, m, "https://bafu.admin.ch/api", "")
	state.Metadata.Title = "Hydro API"
	state.Metadata.Description = "River levels."
	state.Metadata.Keywords = []string{"water"}

	translations, err := m.ReconcileTranslations(ctx, state)
	if err != nil {
		t.Fatalf("ReconcileTranslations: %v", err)
	}
	if translations["en"].Title != "Hydro API" {
		t.Fatalf("en title = %q", translations["en"].Title)
	}
	for _, lang := range []string{"de", "fr", "it"} {
		entry, ok := translations[lang]
		if !ok {
			t.Fatalf("missing language %s", lang)
		}
		if !entry.Empty() {
			t.Fatalf("%s should start empty, got %+v", lang, entry)
		}
	}
}

func TestReconcileTranslationsIsIdempotent(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	state := mustCreate(t, m, "https://bafu.admin.ch/api", "")
	state.Metadata.Title = "Hydro API"
	state.Metadata.Description = "River levels."

	first, err := m.ReconcileTranslations(ctx, state)
	if err != nil {
		t.Fatalf("first reconcile: %v", err)
	}
	second, err := m.ReconcileTranslations(ctx, state)
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	firstJSON, _ := json.Marshal(first)
	secondJSON, _ := json.Marshal(second)
	if string(firstJSON) != string(secondJSON) {
		t.Fatalf("reconcile not idempotent:\n%s\n%s", firstJSON, secondJSON)
	}
}

func TestReconcileTranslationsRejectsEmptyEnglish(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	state := mustCreate(t, m, "https://bafu.admin.ch/api", "")

	// Durable tier holds filled German but empty English, and the metadata
	// has nothing to re-seed from: hard stop.
	durable := Translations{
		"en": {},
		"de": {Title: "Hydrodaten", Description: "Wasserstände."},
	}
	if err := m.blobs.Put(ctx, state.WorkflowID, blobKeyTranslations, durable); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if _, err := m.ReconcileTranslations(ctx, state); !errors.Is(err, ErrEnglishMissing) {
		t.Fatalf("expected ErrEnglishMissing, got %v", err)
	}
}

func TestReconcileTranslationsReseedsEnglishFromMetadata(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	state := mustCreate(t, m, "https://bafu.admin.ch/api", "")
	state.Metadata.Title = "Hydro API"

	durable := Translations{
		"en": {},
		"de": {Title: "Hydrodaten"},
	}
	if err := m.blobs.Put(ctx, state.WorkflowID, blobKeyTranslations, durable); err != nil {
		t.Fatalf("Put: %v", err)
	}

	translations, err := m.ReconcileTranslations(ctx, state)
	if err != nil {
		t.Fatalf("ReconcileTranslations: %v", err)
	}
	if translations["en"].Title != "Hydro API" {
		t.Fatalf("en title = %q", translations["en"].Title)
	}
	if translations["de"].Title != "Hydrodaten" {
		t.Fatalf("de title = %q, want durable content preserved", translations["de"].Title)
	}
}

func TestReconcileTranslationsPrefersDurableTier(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	state := mustCreate(t, m, "https://bafu.admin.ch/api", "")
	state.Metadata.Title = "Session title"

	durable := Translations{"en": {Title: "Durable title", Description: "d"}}
	if err := m.blobs.Put(ctx, state.WorkflowID, blobKeyTranslations, durable); err != nil {
		t.Fatalf("Put: %v", err)
	}
	fast := Translations{"en": {Title: "Fast title", Description: "f"}}
	if err := m.sessions.Set(state.WorkflowID, sessionKeyTranslations, fast); err != nil {
		t.Fatalf("Set: %v", err)
	}

	translations, err := m.ReconcileTranslations(ctx, state)
	if err != nil {
		t.Fatalf("ReconcileTranslations: %v", err)
	}
	if translations["en"].Title != "Durable title" {
		t.Fatalf("en title = %q, want durable tier to win", translations["en"].Title)
	}
}

func TestReconcileContactPointPrefillsFromPublisher(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	state := mustCreate(t, m, "https://bafu.admin.ch/api", "")
	storeHarvest(t, m, state,
		HarvestedDetails{ContactEmail: "scraped@example.ch", ContactPhone: "+41 58 111 11 11"},
		directory.Publisher{
			ID:          "CH_BAFU",
			DisplayName: "FOEN",
			Name:        map[string]string{"en": "FOEN", "de": "BAFU"},
			Address: &directory.Address{
				Email:      "info@bafu.admin.ch",
				Department: map[string]string{"de": "UVEK"},
			},
		})
	state.Metadata.PublisherID = "CH_BAFU"

	contact := m.ReconcileContactPoint(ctx, state, nil)
	if contact.Organization["de"] != "BAFU" {
		t.Fatalf("org de = %q", contact.Organization["de"])
	}
	if contact.DisplayName["fr"] != "FOEN" {
		t.Fatalf("fn fr = %q, want display-name fallback", contact.DisplayName["fr"])
	}
	// Directory address wins over the scraped hints; the phone falls back.
	if contact.Email != "info@bafu.admin.ch" {
		t.Fatalf("email = %q", contact.Email)
	}
	if contact.Phone != "+41 58 111 11 11" {
		t.Fatalf("phone = %q", contact.Phone)
	}
	if contact.Note["de"] != "UVEK" {
		t.Fatalf("note de = %q", contact.Note["de"])
	}
}

func TestReconcileContactPointRequestInputWins(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	state := mustCreate(t, m, "https://bafu.admin.ch/api", "")
	state.Contact = &ContactPoint{Email: "old@example.ch"}

	input := &ContactPoint{Email: "new@example.ch"}
	contact := m.ReconcileContactPoint(ctx, state, input)
	if contact.Email != "new@example.ch" {
		t.Fatalf("email = %q", contact.Email)
	}
}

func TestDeleteClearsBothTiers(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	state := mustCreate(t, m, "https://bafu.admin.ch/api", "")
	storeHarvest(t, m, state, HarvestedDetails{Title: "x"})

	if err := m.Delete(ctx, state.WorkflowID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Lookup(ctx, state.WorkflowID); !errors.Is(err, services.ErrExpired) {
		t.Fatalf("expected expired lookup, got %v", err)
	}
	if _, ok := m.Harvest(ctx, state.WorkflowID); ok {
		t.Fatal("durable tier should be empty after delete")
	}
}
