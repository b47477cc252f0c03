package wizard

import (
	"context"

	"dcatwiz/internal/dcat"
	"dcatwiz/internal/logging"
	"dcatwiz/internal/services/textgen"
	"dcatwiz/internal/workflow"
)

// PublisherOption is one selectable publisher entry for the review form.
type PublisherOption struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// ReviewView is everything the review step renders.
type ReviewView struct {
	WorkflowID          string              `json:"workflow_id"`
	Stage               string              `json:"stage"`
	Title               string              `json:"title"`
	Description         string              `json:"description"`
	Keywords            []string            `json:"keywords"`
	ThemeCodes          []string            `json:"theme_codes"`
	PublisherID         string              `json:"publisher_id"`
	AccessRights        string              `json:"access_rights"`
	License             string              `json:"license"`
	Endpoints           []workflow.Endpoint `json:"endpoints"`
	SpecVersion         string              `json:"spec_version,omitempty"`
	PageWarning         string              `json:"page_warning,omitempty"`
	Publishers          []PublisherOption   `json:"publishers"`
	AccessRightsOptions []string            `json:"access_rights_options"`
	LicenseOptions      []string            `json:"license_options"`
}

// Review enters the review step: reconcile the metadata fields from the
// tiers and render them with the selectable options.
func (c *Controller) Review(ctx context.Context, workflowID string) (ReviewView, error) {
	state, err := c.manager.Lookup(ctx, workflowID)
	if err != nil {
		return ReviewView{}, err
	}
	if err := c.manager.Advance(ctx, state, workflow.StageReview); err != nil {
		return ReviewView{}, err
	}
	// Re-reconcile with no request input so durable values filled by a
	// re-run job become visible.
	if err := c.manager.ApplyReviewInput(ctx, state, workflow.ReviewInput{}); err != nil {
		return ReviewView{}, err
	}
	return c.reviewView(ctx, state), nil
}

// SaveReview persists the user's review edits; request input takes
// precedence over every tier.
func (c *Controller) SaveReview(ctx context.Context, workflowID string, input workflow.ReviewInput) (ReviewView, error) {
	state, err := c.manager.Lookup(ctx, workflowID)
	if err != nil {
		return ReviewView{}, err
	}
	if err := c.manager.Advance(ctx, state, workflow.StageReview); err != nil {
		return ReviewView{}, err
	}
	if err := c.manager.ApplyReviewInput(ctx, state, input); err != nil {
		return ReviewView{}, err
	}
	return c.reviewView(ctx, state), nil
}

func (c *Controller) reviewView(ctx context.Context, state *workflow.State) ReviewView {
	view := ReviewView{
		WorkflowID:          state.WorkflowID,
		Stage:               state.Stage.String(),
		Title:               state.Metadata.Title,
		Description:         state.Metadata.Description,
		Keywords:            state.Metadata.Keywords,
		ThemeCodes:          state.Metadata.ThemeCodes,
		PublisherID:         state.Metadata.PublisherID,
		AccessRights:        state.Metadata.AccessRights,
		License:             state.Metadata.License,
		AccessRightsOptions: workflow.AccessRightsOptions(),
		LicenseOptions:      dcat.LicenseOptions(),
	}
	if details, ok := c.manager.Harvest(ctx, state.WorkflowID); ok {
		view.Endpoints = details.Endpoints
		view.SpecVersion = details.Version
		view.PageWarning = details.PageError
	}
	if snapshot, ok := c.manager.Publishers(ctx, state.WorkflowID); ok {
		for _, publisher := range snapshot.Publishers {
			view.Publishers = append(view.Publishers, PublisherOption{
				ID:          publisher.ID,
				DisplayName: publisher.DisplayName,
			})
		}
	}
	return view
}

// Generate invokes the text generator over the harvested material and folds
// the draft into the review fields.
func (c *Controller) Generate(ctx context.Context, workflowID string) (ReviewView, error) {
	state, err := c.manager.Lookup(ctx, workflowID)
	if err != nil {
		return ReviewView{}, err
	}
	details, ok := c.manager.Harvest(ctx, state.WorkflowID)
	if !ok {
		if err := c.manager.Advance(ctx, state, workflow.StageReview); err != nil {
			return ReviewView{}, err
		}
	}

	input := textgen.Input{
		SpecTitle:       details.Title,
		SpecDescription: details.Description,
		PageTitle:       details.PageTitle,
		PageDescription: details.PageDescription,
		BodyExcerpt:     details.BodyExcerpt,
	}
	for _, endpoint := range details.Endpoints {
		input.Endpoints = append(input.Endpoints, endpoint.Method+" "+endpoint.Path+" "+endpoint.Summary)
	}

	generated, err := c.generator.Generate(ctx, input)
	if err != nil {
		return ReviewView{}, err
	}
	record := workflow.GeneratedContent{
		Title:       generated.Title,
		Description: generated.Description,
		Keywords:    generated.Keywords,
		ThemeCodes:  generated.ThemeCodes,
	}
	if err := c.manager.SaveGenerated(ctx, state, record); err != nil {
		return ReviewView{}, err
	}
	c.logger.Info("metadata generated",
		logging.FieldWorkflowID, workflowID,
		"title", generated.Title)
	return c.reviewView(ctx, state), nil
}
