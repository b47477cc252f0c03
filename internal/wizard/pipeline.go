package wizard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"dcatwiz/internal/jobs"
	"dcatwiz/internal/logging"
	"dcatwiz/internal/workflow"
)

// Progress checkpoints of the harvest pipeline. 100 is implied by the job's
// COMPLETE state.
const (
	progressSpec       = 15
	progressPage       = 55
	progressDirectory  = 80
	progressFinalizing = 99
)

// IntakeResult is the response of the intake step.
type IntakeResult struct {
	WorkflowID string `json:"workflow_id"`
	JobID      string `json:"job_id"`
	Stage      string `json:"stage"`
}

// Intake creates a workflow from the submitted URLs and launches the harvest
// pipeline in the background. Double submissions simply launch a second job
// with a fresh job identifier; the durable tier is last-write-wins.
func (c *Controller) Intake(ctx context.Context, sourceURL, landingURL string) (IntakeResult, error) {
	state, err := c.manager.Create(ctx, sourceURL, landingURL)
	if err != nil {
		return IntakeResult{}, err
	}
	if err := c.manager.Advance(ctx, state, workflow.StageProcessing); err != nil {
		return IntakeResult{}, err
	}
	jobID, err := c.launchHarvest(ctx, state)
	if err != nil {
		return IntakeResult{}, err
	}
	return IntakeResult{
		WorkflowID: state.WorkflowID,
		JobID:      jobID,
		Stage:      state.Stage.String(),
	}, nil
}

// Restart relaunches the harvest pipeline for an existing workflow, used
// when the job registry lost an in-flight job (process restart) or the user
// retries after a failure.
func (c *Controller) Restart(ctx context.Context, workflowID string) (IntakeResult, error) {
	state, err := c.manager.Lookup(ctx, workflowID)
	if err != nil {
		return IntakeResult{}, err
	}
	if err := c.manager.Advance(ctx, state, workflow.StageProcessing); err != nil {
		return IntakeResult{}, err
	}
	jobID, err := c.launchHarvest(ctx, state)
	if err != nil {
		return IntakeResult{}, err
	}
	return IntakeResult{WorkflowID: workflowID, JobID: jobID, Stage: state.Stage.String()}, nil
}

func (c *Controller) launchHarvest(ctx context.Context, state *workflow.State) (string, error) {
	jobID := uuid.NewString()
	workflowID := state.WorkflowID
	sourceURL := state.SourceURL
	landingURL := state.LandingURL

	if err := c.runner.Launch(jobID, func(jobCtx context.Context, rep *jobs.Reporter) (any, error) {
		return c.harvest(jobCtx, rep, workflowID, sourceURL, landingURL)
	}); err != nil {
		return "", err
	}

	state.JobID = jobID
	state.HarvestMerged = false
	if err := c.manager.Save(ctx, state); err != nil {
		return "", err
	}
	c.logger.Info("harvest pipeline launched",
		logging.FieldWorkflowID, workflowID,
		logging.FieldJobID, jobID)
	return jobID, nil
}

// harvest is the background pipeline: fetch the API description, optionally
// scrape the landing page, snapshot the publisher directory, persist it all
// durably. A failed extraction is fatal; a failed scrape or directory fetch
// is tolerated with empty structures.
func (c *Controller) harvest(ctx context.Context, rep *jobs.Reporter, workflowID, sourceURL, landingURL string) (any, error) {
	rep.Step("fetching API description", progressSpec)
	spec := c.extractor.Extract(ctx, sourceURL)
	if spec.Err != "" {
		return nil, fmt.Errorf("fetch API description: %s", spec.Err)
	}

	details := workflow.HarvestedDetails{
		SourceURL:     sourceURL,
		LandingURL:    landingURL,
		SpecURL:       spec.SpecURL,
		Title:         spec.Title,
		Description:   spec.Description,
		Version:       spec.Version,
		Keywords:      spec.Keywords,
		DocumentLinks: []workflow.DocumentLink{},
		HarvestedAt:   c.clock(),
	}
	for _, endpoint := range spec.Endpoints {
		details.Endpoints = append(details.Endpoints, workflow.Endpoint{
			Method:  endpoint.Method,
			Path:    endpoint.Path,
			Summary: endpoint.Summary,
		})
	}

	// An empty landing URL skips the scrape entirely; document links stay [].
	if strings.TrimSpace(landingURL) != "" {
		rep.Step("scraping landing page", progressPage)
		page := c.scraper.Scrape(ctx, landingURL)
		details.PageTitle = page.Title
		details.PageDescription = page.Description
		details.BodyExcerpt = page.BodyExcerpt
		details.ContactEmail = page.Contact.Email
		details.ContactPhone = page.Contact.Phone
		details.PageError = page.Err
		for _, link := range page.DocumentLinks {
			details.DocumentLinks = append(details.DocumentLinks, workflow.DocumentLink{
				URL:   link.URL,
				Label: link.Label,
			})
		}
	}

	rep.Step("loading publisher directory", progressDirectory)
	snapshot := workflow.PublisherSnapshot{FetchedAt: c.clock()}
	publishers, err := c.publishers.Publishers(ctx, false)
	if err != nil {
		c.logger.Warn("publisher directory unavailable during harvest",
			logging.FieldWorkflowID, workflowID,
			"error", err)
	} else {
		snapshot.Publishers = publishers
	}

	rep.Step("finalizing", progressFinalizing)
	if err := c.manager.StoreHarvest(ctx, workflowID, details, snapshot); err != nil {
		return nil, fmt.Errorf("persist harvest: %w", err)
	}
	return map[string]string{"workflow_id": workflowID}, nil
}

// Abandon discards the workflow from both state tiers.
func (c *Controller) Abandon(ctx context.Context, workflowID string) error {
	return c.manager.Delete(ctx, workflowID)
}

// WorkflowSummary is one row of the workflow listing.
type WorkflowSummary struct {
	WorkflowID string    `json:"workflow_id"`
	Stage      string    `json:"stage"`
	SourceURL  string    `json:"source_url"`
	CreatedAt  time.Time `json:"created_at"`
}

// List enumerates the workflows still live in the fast tier, newest first.
func (c *Controller) List(ctx context.Context) []WorkflowSummary {
	states := c.manager.List(ctx)
	out := make([]WorkflowSummary, 0, len(states))
	for _, state := range states {
		out = append(out, WorkflowSummary{
			WorkflowID: state.WorkflowID,
			Stage:      state.Stage.String(),
			SourceURL:  state.SourceURL,
			CreatedAt:  state.CreatedAt,
		})
	}
	return out
}

// StatusView is the poll response for the processing step.
type StatusView struct {
	WorkflowID string  `json:"workflow_id"`
	Stage      string  `json:"stage"`
	JobStatus  string  `json:"job_status"`
	StepLabel  string  `json:"step_label,omitempty"`
	Percent    float64 `json:"percent"`
	Error      string  `json:"error,omitempty"`
	Stale      bool    `json:"stale,omitempty"`
}

// Status polls the workflow's background job. The first poll that observes a
// terminal job consumes the registry entry, so a completed result is merged
// into the durable-backed workflow state immediately, before the entry is
// gone. A missing registry entry with nothing merged means the runner lost
// the job (process restart): the caller should relaunch via Restart.
func (c *Controller) Status(ctx context.Context, workflowID string) (StatusView, error) {
	state, err := c.manager.Lookup(ctx, workflowID)
	if err != nil {
		return StatusView{}, err
	}
	view := StatusView{WorkflowID: workflowID, Stage: state.Stage.String()}

	if state.HarvestMerged {
		view.JobStatus = string(jobs.StatusComplete)
		view.Percent = 100
		return view, nil
	}
	if state.JobID == "" {
		view.Stale = true
		return view, nil
	}

	snapshot, ok := c.registry.Poll(state.JobID)
	if !ok {
		view.Stale = true
		return view, nil
	}
	view.JobStatus = string(snapshot.Status)
	view.StepLabel = snapshot.Progress.Label
	view.Percent = snapshot.Progress.Percent

	switch snapshot.Status {
	case jobs.StatusComplete:
		// The registry entry is already consumed; fold the durable result in
		// now or it is lost to this workflow.
		if err := c.manager.MergeHarvest(ctx, state); err != nil {
			return view, err
		}
		view.Stage = state.Stage.String()
		view.Percent = 100
	case jobs.StatusFailed:
		state.JobID = ""
		if err := c.manager.Save(ctx, state); err != nil {
			return view, err
		}
		view.Error = snapshot.Error
	}
	return view, nil
}
