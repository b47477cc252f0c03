package wizard

import (
	"context"
	"regexp"
	"strings"

	"dcatwiz/internal/dcat"
	"dcatwiz/internal/logging"
	"dcatwiz/internal/services/catalog"
	"dcatwiz/internal/workflow"
)

// DocumentView carries the assembled dataset document and the filename
// offered when the user downloads it.
type DocumentView struct {
	WorkflowID string       `json:"workflow_id"`
	Filename   string       `json:"filename"`
	Document   dcat.Dataset `json:"document"`
}

// SubmitResult is the outcome of a catalog submission.
type SubmitResult struct {
	WorkflowID string `json:"workflow_id"`
	DatasetID  string `json:"dataset_id"`
	StatusCode int    `json:"status_code"`
}

// Document assembles the dataset document for final review or download. The
// submit guards apply: English content and a selected publisher.
func (c *Controller) Document(ctx context.Context, workflowID string) (DocumentView, error) {
	state, err := c.manager.Lookup(ctx, workflowID)
	if err != nil {
		return DocumentView{}, err
	}
	if err := c.manager.Advance(ctx, state, workflow.StageSubmit); err != nil {
		return DocumentView{}, err
	}
	document, err := c.buildDocument(ctx, state)
	if err != nil {
		return DocumentView{}, err
	}
	return DocumentView{
		WorkflowID: workflowID,
		Filename:   documentFilename(state),
		Document:   document,
	}, nil
}

// Submit posts the assembled document to the catalog with the caller's API
// token. The document is rebuilt from the tiers at submission time so any
// edit made on the way here is included. Submission is never retried by the
// server; retry is a user action.
func (c *Controller) Submit(ctx context.Context, workflowID, token string) (SubmitResult, error) {
	normalized, err := catalog.NormalizeToken(token)
	if err != nil {
		return SubmitResult{}, err
	}
	state, err := c.manager.Lookup(ctx, workflowID)
	if err != nil {
		return SubmitResult{}, err
	}
	if err := c.manager.Advance(ctx, state, workflow.StageSubmit); err != nil {
		return SubmitResult{}, err
	}
	document, err := c.buildDocument(ctx, state)
	if err != nil {
		return SubmitResult{}, err
	}

	result, err := c.catalog.Submit(ctx, document, normalized)
	if err != nil {
		return SubmitResult{}, err
	}
	state.DatasetID = result.DatasetID
	if err := c.manager.Save(ctx, state); err != nil {
		return SubmitResult{}, err
	}
	c.logger.Info("dataset submitted to catalog",
		logging.FieldWorkflowID, workflowID,
		"dataset_id", result.DatasetID)
	return SubmitResult{
		WorkflowID: workflowID,
		DatasetID:  result.DatasetID,
		StatusCode: result.StatusCode,
	}, nil
}

// ContactView is the reconciled contact block shown on the submit step.
type ContactView struct {
	WorkflowID string                 `json:"workflow_id"`
	Contact    *workflow.ContactPoint `json:"contact"`
}

// Contact returns the reconciled contact block, prefilled from the selected
// publisher and the harvested page hints.
func (c *Controller) Contact(ctx context.Context, workflowID string) (ContactView, error) {
	state, err := c.manager.Lookup(ctx, workflowID)
	if err != nil {
		return ContactView{}, err
	}
	contact := c.manager.ReconcileContactPoint(ctx, state, nil)
	if err := c.manager.Save(ctx, state); err != nil {
		return ContactView{}, err
	}
	return ContactView{WorkflowID: workflowID, Contact: contact}, nil
}

// SaveContact persists the user's contact edits; they take precedence over
// every prefill.
func (c *Controller) SaveContact(ctx context.Context, workflowID string, input workflow.ContactPoint) (ContactView, error) {
	state, err := c.manager.Lookup(ctx, workflowID)
	if err != nil {
		return ContactView{}, err
	}
	contact := c.manager.ReconcileContactPoint(ctx, state, &input)
	if err := c.manager.Save(ctx, state); err != nil {
		return ContactView{}, err
	}
	return ContactView{WorkflowID: workflowID, Contact: contact}, nil
}

func (c *Controller) buildDocument(ctx context.Context, state *workflow.State) (dcat.Dataset, error) {
	translations, err := c.manager.ReconcileTranslations(ctx, state)
	if err != nil {
		return dcat.Dataset{}, err
	}
	contact := c.manager.ReconcileContactPoint(ctx, state, nil)
	if err := c.manager.Save(ctx, state); err != nil {
		return dcat.Dataset{}, err
	}

	details, _ := c.manager.Harvest(ctx, state.WorkflowID)
	snapshot, _ := c.manager.Publishers(ctx, state.WorkflowID)

	specURL := details.SpecURL
	if specURL == "" {
		specURL = state.SourceURL
	}
	return dcat.Build(dcat.BuildInput{
		Translations:  translations,
		ThemeCodes:    state.Metadata.ThemeCodes,
		PublisherID:   state.Metadata.PublisherID,
		SpecURL:       specURL,
		LandingURL:    state.LandingURL,
		AccessRights:  state.Metadata.AccessRights,
		LicenseCode:   state.Metadata.License,
		Contact:       contact,
		DocumentLinks: details.DocumentLinks,
		Publishers:    snapshot.Publishers,
		Date:          c.clock(),
	}), nil
}

var filenameSanitizer = regexp.MustCompile(`[^a-z0-9]+`)

// documentFilename derives the download filename from the English title.
func documentFilename(state *workflow.State) string {
	title := strings.ToLower(strings.TrimSpace(state.Metadata.Title))
	slug := strings.Trim(filenameSanitizer.ReplaceAllString(title, "_"), "_")
	if slug == "" {
		slug = "dataset"
	}
	if len(slug) > 64 {
		slug = strings.Trim(slug[:64], "_")
	}
	return slug + "_dcat.json"
}
