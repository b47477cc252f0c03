package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"dcatwiz/internal/blobstore"
	"dcatwiz/internal/logging"
	"dcatwiz/internal/services"
	"dcatwiz/internal/services/directory"
	"dcatwiz/internal/session"
)

// Durable tier keys, one self-describing document each.
const (
	blobKeyTranslations = "translations"
	blobKeyAPIDetails   = "api_details"
	blobKeyGenerated    = "generated_content"
	blobKeyAgents       = "agents_snapshot"
)

// Fast tier keys.
const (
	sessionKeyState        = "state"
	sessionKeyTranslations = "translations"
)

// ErrEnglishMissing signals that no tier could produce English title or
// description, which blocks the translation and submit stages.
var ErrEnglishMissing = errors.New("no English title or description available")

// Manager is the session reconciler: it owns every read and write of the
// fast and durable tiers and computes authoritative field values by probing
// tiers in a fixed precedence order. Step controllers never touch a tier
// directly.
type Manager struct {
	sessions *session.Store
	blobs    *blobstore.Store
	targets  []string
	logger   *slog.Logger
	clock    func() time.Time
}

// NewManager wires the reconciler to its two storage tiers. targets are the
// non-English publication languages.
func NewManager(sessions *session.Store, blobs *blobstore.Store, targets []string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		sessions: sessions,
		blobs:    blobs,
		targets:  targets,
		logger:   logger.With(logging.FieldComponent, "workflow"),
		clock:    time.Now,
	}
}

// TargetLanguages returns the configured non-English publication languages.
func (m *Manager) TargetLanguages() []string {
	out := make([]string, len(m.targets))
	copy(out, m.targets)
	return out
}

// Create starts a new workflow in the intake stage. The primary source URL
// is required; the landing page URL is optional.
func (m *Manager) Create(ctx context.Context, sourceURL, landingURL string) (*State, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return nil, services.Wrap(services.ErrValidation, "intake", "create", "a source URL is required", nil)
	}
	state := &State{
		WorkflowID: uuid.NewString(),
		Stage:      StageIntake,
		CreatedAt:  m.clock(),
		SourceURL:  sourceURL,
		LandingURL: strings.TrimSpace(landingURL),
		Metadata:   Metadata{Provenance: map[string]Provenance{}},
	}
	if err := m.Save(ctx, state); err != nil {
		return nil, err
	}
	m.logger.Info("workflow created",
		logging.FieldWorkflowID, state.WorkflowID,
		"source_url", sourceURL)
	return state, nil
}

// Lookup loads a workflow from the fast tier. An absent entry means the
// session expired or the process restarted; callers redirect to intake.
func (m *Manager) Lookup(ctx context.Context, workflowID string) (*State, error) {
	var state State
	if ok := m.sessions.Get(workflowID, sessionKeyState, &state); !ok {
		return nil, services.Wrap(services.ErrExpired, "lookup", "lookup", "workflow not found or expired", nil)
	}
	return &state, nil
}

// List returns every workflow currently live in the fast tier, newest
// first. Entries whose state record has been evicted are skipped.
func (m *Manager) List(ctx context.Context) []*State {
	ids := m.sessions.WorkflowIDs()
	states := make([]*State, 0, len(ids))
	for _, id := range ids {
		var state State
		if ok := m.sessions.Get(id, sessionKeyState, &state); !ok {
			continue
		}
		states = append(states, &state)
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].CreatedAt.After(states[j].CreatedAt)
	})
	return states
}

// Save writes the workflow state back to the fast tier.
func (m *Manager) Save(ctx context.Context, state *State) error {
	if err := m.sessions.Set(state.WorkflowID, sessionKeyState, state); err != nil {
		return services.Wrap(services.ErrTransient, string(state.Stage), "save", "store workflow state", err)
	}
	return nil
}

// Advance moves the workflow forward to target after checking the target's
// guard condition. Moving to the current stage is a no-op.
func (m *Manager) Advance(ctx context.Context, state *State, target Stage) error {
	if target.Before(state.Stage) {
		return m.Rollback(ctx, state, target)
	}
	if err := m.guard(ctx, state, target); err != nil {
		return err
	}
	if state.Stage == target {
		return nil
	}
	from := state.Stage
	state.Stage = target
	if err := m.Save(ctx, state); err != nil {
		return err
	}
	m.logger.Debug("stage advanced",
		logging.FieldWorkflowID, state.WorkflowID,
		"from", from.String(),
		"to", target.String())
	return nil
}

// Rollback moves the workflow backward without erasing any tier; the next
// forward pass re-reconciles from whatever the tiers hold, so edits made
// after going back stay visible.
func (m *Manager) Rollback(ctx context.Context, state *State, target Stage) error {
	if state.Stage.Before(target) {
		return &GuardError{Target: target, Redirect: state.Stage, Reason: "cannot roll back to a later stage"}
	}
	state.Stage = target
	return m.Save(ctx, state)
}

func (m *Manager) guard(ctx context.Context, state *State, target Stage) error {
	switch target {
	case StageProcessing:
		if strings.TrimSpace(state.SourceURL) == "" {
			return &GuardError{Target: target, Redirect: StageIntake, Reason: "a source URL is required"}
		}
	case StageReview, StageTranslation:
		if !state.HarvestMerged {
			return &GuardError{Target: target, Redirect: StageProcessing, Reason: "processing has not finished"}
		}
	case StageSubmit:
		if !state.HarvestMerged {
			return &GuardError{Target: target, Redirect: StageProcessing, Reason: "processing has not finished"}
		}
		if strings.TrimSpace(state.Metadata.PublisherID) == "" {
			return &GuardError{Target: target, Redirect: StageReview, Reason: "a publisher must be selected"}
		}
		translations, err := m.ReconcileTranslations(ctx, state)
		if err != nil {
			return err
		}
		if !translations.EnglishReady() {
			return &GuardError{Target: target, Redirect: StageReview, Reason: "English title and description are required"}
		}
	}
	return nil
}

// StoreHarvest persists a pipeline run's output to the durable tier. It is
// called from the background job, never from a request, so it does not touch
// the fast tier; concurrent runs for the same workflow are last-write-wins.
func (m *Manager) StoreHarvest(ctx context.Context, workflowID string, details HarvestedDetails, snapshot PublisherSnapshot) error {
	if err := m.blobs.Put(ctx, workflowID, blobKeyAPIDetails, details); err != nil {
		return err
	}
	return m.blobs.Put(ctx, workflowID, blobKeyAgents, snapshot)
}

// Harvest loads the durable pipeline output for a workflow.
func (m *Manager) Harvest(ctx context.Context, workflowID string) (HarvestedDetails, bool) {
	var details HarvestedDetails
	ok := m.blobs.Get(ctx, workflowID, blobKeyAPIDetails, &details)
	return details, ok
}

// Publishers loads the durable directory snapshot for a workflow.
func (m *Manager) Publishers(ctx context.Context, workflowID string) (PublisherSnapshot, bool) {
	var snapshot PublisherSnapshot
	ok := m.blobs.Get(ctx, workflowID, blobKeyAgents, &snapshot)
	return snapshot, ok
}

// MergeHarvest folds the durable pipeline output into the workflow's fields
// and advances to review. Extracted values only fill fields that are still
// empty, so user edits survive job re-runs. Idempotent.
func (m *Manager) MergeHarvest(ctx context.Context, state *State) error {
	details, ok := m.Harvest(ctx, state.WorkflowID)
	if !ok {
		return services.Wrap(services.ErrNotFound, "processing", "merge", "no harvested details for workflow", nil)
	}

	meta := &state.Metadata
	if value, source := Merge(nonEmptyString, "",
		Candidate[string]{meta.Title, SourceSession},
		Candidate[string]{details.Title, SourceComputed},
		Candidate[string]{details.PageTitle, SourceComputed},
	); source == SourceComputed {
		meta.Title = value
		meta.setProvenance("title", ProvenanceExtracted)
	}
	if value, source := Merge(nonEmptyString, "",
		Candidate[string]{meta.Description, SourceSession},
		Candidate[string]{details.Description, SourceComputed},
		Candidate[string]{details.PageDescription, SourceComputed},
	); source == SourceComputed {
		meta.Description = value
		meta.setProvenance("description", ProvenanceExtracted)
	}
	if value, source := Merge(nonEmptyList, []string{},
		Candidate[[]string]{meta.Keywords, SourceSession},
		Candidate[[]string]{details.Keywords, SourceComputed},
	); source == SourceComputed {
		meta.Keywords = value
		meta.setProvenance("keywords", ProvenanceExtracted)
	}
	if meta.AccessRights == "" {
		meta.AccessRights = AccessRightsPublic
		meta.setProvenance("access_rights", ProvenanceDefault)
	}
	if meta.PublisherID == "" {
		if snapshot, ok := m.Publishers(ctx, state.WorkflowID); ok {
			if detected := DetectPublisherID([]string{state.SourceURL, state.LandingURL}, snapshot.Publishers); detected != "" {
				meta.PublisherID = detected
				meta.setProvenance("selected_publisher", ProvenanceDefault)
				m.logger.Info("publisher auto-detected",
					logging.FieldWorkflowID, state.WorkflowID,
					"publisher_id", detected)
			}
		}
	}

	state.HarvestMerged = true
	state.JobID = ""
	return m.Advance(ctx, state, StageReview)
}

// SaveGenerated persists a text-generation result durably and folds it into
// the fields, without overriding anything the user already entered.
func (m *Manager) SaveGenerated(ctx context.Context, state *State, generated GeneratedContent) error {
	generated.GeneratedAt = m.clock()
	if err := m.blobs.Put(ctx, state.WorkflowID, blobKeyGenerated, generated); err != nil {
		return err
	}
	meta := &state.Metadata
	apply := func(field string, current *string, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		if meta.Provenance[field] == ProvenanceUserEntered {
			return
		}
		*current = value
		meta.setProvenance(field, ProvenanceAIGenerated)
	}
	apply("title", &meta.Title, generated.Title)
	apply("description", &meta.Description, generated.Description)
	if len(generated.Keywords) > 0 && meta.Provenance["keywords"] != ProvenanceUserEntered {
		meta.Keywords = generated.Keywords
		meta.setProvenance("keywords", ProvenanceAIGenerated)
	}
	if len(generated.ThemeCodes) > 0 && meta.Provenance["theme_codes"] != ProvenanceUserEntered {
		meta.ThemeCodes = generated.ThemeCodes
		meta.setProvenance("theme_codes", ProvenanceAIGenerated)
	}
	return m.Save(ctx, state)
}

// Generated loads the durable text-generation record for a workflow.
func (m *Manager) Generated(ctx context.Context, workflowID string) (GeneratedContent, bool) {
	var generated GeneratedContent
	ok := m.blobs.Get(ctx, workflowID, blobKeyGenerated, &generated)
	return generated, ok
}

// ReviewInput is the user's submission from the review step. Empty members
// mean "not edited in this request".
type ReviewInput struct {
	Title        string
	Description  string
	Keywords     []string
	ThemeCodes   []string
	PublisherID  string
	AccessRights string
	License      string
}

/// ApplyReviewInput reconciles the review fields: request input wins, then
// the fast tier's current value, then the durable generation record, then
// the harvested extraction, then the structural zero.
func (m *Manager) ApplyReviewInput(ctx context.Context, state *State, input ReviewInput) error {
	details, _ := m.Harvest(ctx, state.WorkflowID)
	generated, _ := m.Generated(ctx, state.WorkflowID)
	meta := &state.Metadata

	mergeString := func(field, request, current, durable, computed string) string {
		value, source := Merge(nonEmptyString, "",
			Candidate[string]{request, SourceRequest},
			Candidate[string]{current, SourceSession},
			Candidate[string]{durable, SourceDurable},
			Candidate[string]{computed, SourceComputed},
		)
		switch source {
		case SourceRequest:
			meta.setProvenance(field, ProvenanceUserEntered)
		case SourceDurable:
			meta.setProvenance(field, ProvenanceAIGenerated)
		case SourceComputed:
			meta.setProvenance(field, ProvenanceExtracted)
		}
		return value
	}
	meta.Title = mergeString("title", input.Title, meta.Title, generated.Title, details.Title)
	meta.Description = mergeString("description", input.Description, meta.Description, generated.Description, details.Description)

	mergeList := func(field string, request, current, durable, computed []string) []string {
		value, source := Merge(nonEmptyList, []string{},
			Candidate[[]string]{request, SourceRequest},
			Candidate[[]string]{current, SourceSession},
			Candidate[[]string]{durable, SourceDurable},
			Candidate[[]string]{computed, SourceComputed},
		)
		switch source {
		case SourceRequest:
			meta.setProvenance(field, ProvenanceUserEntered)
		case SourceDurable:
			meta.setProvenance(field, ProvenanceAIGenerated)
		case SourceComputed:
			meta.setProvenance(field, ProvenanceExtracted)
		}
		return value
	}
	meta.Keywords = mergeList("keywords", input.Keywords, meta.Keywords, generated.Keywords, details.Keywords)
	meta.ThemeCodes = mergeList("theme_codes", input.ThemeCodes, meta.ThemeCodes, generated.ThemeCodes, nil)

	if value, source := Merge(nonEmptyString, "",
		Candidate[string]{input.PublisherID, SourceRequest},
		Candidate[string]{meta.PublisherID, SourceSession},
	); source != SourceNone {
		meta.PublisherID = value
		if source == SourceRequest {
			meta.setProvenance("selected_publisher", ProvenanceUserEntered)
		}
	}
	if value, source := Merge(nonEmptyString, AccessRightsPublic,
		Candidate[string]{input.AccessRights, SourceRequest},
		Candidate[string]{meta.AccessRights, SourceSession},
	); source == SourceRequest {
		meta.AccessRights = value
		meta.setProvenance("access_rights", ProvenanceUserEntered)
	} else {
		meta.AccessRights = value
	}
	if value, source := Merge(nonEmptyString, "",
		Candidate[string]{input.License, SourceRequest},
		Candidate[string]{meta.License, SourceSession},
	); source != SourceNone {
		meta.License = value
		if source == SourceRequest {
			meta.setProvenance("license", ProvenanceUserEntered)
		}
	}

	return m.Save(ctx, state)
}

// ReconcileTranslations computes the authoritative translations structure:
// durable tier first, then fast tier, then a fresh structure seeded from the
// current metadata. An empty English entry is re-seeded from the metadata;
// if English still has no content the reconciliation fails with
// ErrEnglishMissing and the caller redirects to the review step. The result
// is persisted to both tiers so subsequent passes short-circuit.
func (m *Manager) ReconcileTranslations(ctx context.Context, state *State) (Translations, error) {
	var durable, fast Translations
	durableOK := m.blobs.Get(ctx, state.WorkflowID, blobKeyTranslations, &durable)
	fastOK := m.sessions.Get(state.WorkflowID, sessionKeyTranslations, &fast)

	accept := func(t Translations) bool { return t != nil && t.HasContent() }
	seed := Entry{
		Title:       state.Metadata.Title,
		Description: state.Metadata.Description,
		Keywords:    state.Metadata.Keywords,
	}

	candidates := []Candidate[Translations]{}
	if durableOK {
		candidates = append(candidates, Candidate[Translations]{durable, SourceDurable})
	}
	if fastOK {
		candidates = append(candidates, Candidate[Translations]{fast, SourceSession})
	}
	candidates = append(candidates, Candidate[Translations]{NewTranslations(seed, m.targets), SourceComputed})

	translations, source := Merge(accept, nil, candidates...)
	if translations == nil {
		translations = NewTranslations(seed, m.targets)
		source = SourceComputed
	}
	if !translations.EnglishReady() && !seed.Empty() {
		translations["en"] = seed
	}
	for _, lang := range m.targets {
		if _, ok := translations[lang]; !ok {
			translations[lang] = Entry{Keywords: []string{}}
		}
	}
	if !translations.EnglishReady() {
		return nil, ErrEnglishMissing
	}

	if err := m.SaveTranslations(ctx, state, translations); err != nil {
		return nil, err
	}
	m.logger.Debug("translations reconciled",
		logging.FieldWorkflowID, state.WorkflowID,
		"source", source.String())
	return translations, nil
}

// SaveTranslations persists the translations structure to both tiers.
func (m *Manager) SaveTranslations(ctx context.Context, state *State, translations Translations) error {
	if err := m.blobs.Put(ctx, state.WorkflowID, blobKeyTranslations, translations); err != nil {
		return err
	}
	if err := m.sessions.Set(state.WorkflowID, sessionKeyTranslations, translations); err != nil {
		return services.Wrap(services.ErrTransient, string(state.Stage), "save", "store translations", err)
	}
	return nil
}

// ReconcileContactPoint computes the workflow's contact block: request input
// wins, then the current value, then a prefill from the publisher directory
// and the harvested page hints, then an empty structure. Prefills only fill
// fields that are still empty.
func (m *Manager) ReconcileContactPoint(ctx context.Context, state *State, input *ContactPoint) *ContactPoint {
	langs := append([]string{"en"}, m.targets...)

	contact := state.Contact
	if input != nil && !input.Empty() {
		contact = input
	}
	if contact == nil {
		contact = &ContactPoint{}
	}
	contact.EnsureLanguages(langs)

	if publisher := m.selectedPublisher(ctx, state); publisher != nil {
		prefillFromPublisher(contact, publisher, langs)
	}
	if details, ok := m.Harvest(ctx, state.WorkflowID); ok {
		if contact.Email == "" {
			contact.Email = details.ContactEmail
		}
		if contact.Phone == "" {
			contact.Phone = details.ContactPhone
		}
	}

	state.Contact = contact
	return contact
}

func (m *Manager) selectedPublisher(ctx context.Context, state *State) *directory.Publisher {
	id := state.Metadata.PublisherID
	if id == "" {
		return nil
	}
	snapshot, ok := m.Publishers(ctx, state.WorkflowID)
	if !ok {
		return nil
	}
	for i := range snapshot.Publishers {
		if strings.EqualFold(snapshot.Publishers[i].ID, id) {
			return &snapshot.Publishers[i]
		}
	}
	return nil
}

func prefillFromPublisher(contact *ContactPoint, publisher *directory.Publisher, langs []string) {
	for _, lang := range langs {
		if contact.DisplayName[lang] == "" {
			if name := publisher.Name[lang]; name != "" {
				contact.DisplayName[lang] = name
			} else {
				contact.DisplayName[lang] = publisher.DisplayName
			}
		}
		if contact.Organization[lang] == "" {
			if name := publisher.Name[lang]; name != "" {
				contact.Organization[lang] = name
			}
		}
	}
	if publisher.Address == nil {
		return
	}
	if contact.Email == "" {
		contact.Email = publisher.Address.Email
	}
	if contact.Phone == "" {
		contact.Phone = publisher.Address.Phone
	}
	for _, lang := range langs {
		if contact.Note[lang] == "" {
			if dept := publisher.Address.Department[lang]; dept != "" {
				contact.Note[lang] = dept
			}
		}
	}
}

// Delete removes a workflow from both tiers after a successful submission.
func (m *Manager) Delete(ctx context.Context, workflowID string) error {
	m.sessions.DeleteWorkflow(workflowID)
	return m.blobs.DeleteScope(ctx, workflowID)
}
