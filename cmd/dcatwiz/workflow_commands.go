package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dcatwiz/internal/jobs"
)

func newStartCommand(ctx *commandContext) *cobra.Command {
	var landingURL string
	var watch bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "start <api-url>",
		Short: "Start a new metadata workflow from an API description URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ctx.client()
			result, err := client.Intake(args[0], landingURL)
			if err != nil {
				return err
			}
			if asJSON && !watch {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Workflow %s started (stage: %s)\n", result.WorkflowID, result.Stage)
			if !watch {
				fmt.Fprintf(out, "Poll progress with `dcatwiz show %s`\n", result.WorkflowID)
				return nil
			}
			return watchHarvest(cmd, client, result.WorkflowID)
		},
	}

	cmd.Flags().StringVar(&landingURL, "landing-url", "", "Landing page URL to scrape for extra context")
	cmd.Flags().BoolVar(&watch, "watch", false, "Poll the harvest job until it finishes")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw JSON response")
	return cmd
}

func watchHarvest(cmd *cobra.Command, client *apiClient, workflowID string) error {
	out := cmd.OutOrStdout()
	lastLabel := ""
	for {
		view, err := client.WorkflowStatus(workflowID)
		if err != nil {
			return err
		}
		if view.StepLabel != "" && view.StepLabel != lastLabel {
			fmt.Fprintf(out, "  %3.0f%%  %s\n", view.Percent, view.StepLabel)
			lastLabel = view.StepLabel
		}
		switch view.JobStatus {
		case string(jobs.StatusComplete):
			fmt.Fprintf(out, "Harvest complete; review with `dcatwiz show %s`\n", workflowID)
			return nil
		case string(jobs.StatusFailed):
			return fmt.Errorf("harvest failed: %s", view.Error)
		}
		if view.Stale {
			return fmt.Errorf("the background job for %s is gone; restart it via the API", workflowID)
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the workflows the daemon is tracking",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summaries, err := ctx.client().Workflows()
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, summaries)
			}
			if len(summaries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No active workflows")
				return nil
			}

			rows := make([][]string, 0, len(summaries))
			for _, summary := range summaries {
				rows = append(rows, []string{
					summary.WorkflowID,
					summary.Stage,
					truncateCell(summary.SourceURL, 60),
					summary.CreatedAt.Format(time.RFC3339),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Workflow", "Stage", "Source", "Created"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw JSON response")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <workflow-id>",
		Short: "Show the reviewed metadata fields of a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := ctx.client().Review(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, view)
			}

			rows := [][]string{
				{"Stage", view.Stage},
				{"Title", view.Title},
				{"Description", truncateCell(view.Description, 80)},
				{"Keywords", strings.Join(view.Keywords, ", ")},
				{"Theme codes", strings.Join(view.ThemeCodes, ", ")},
				{"Publisher", view.PublisherID},
				{"Access rights", view.AccessRights},
				{"License", view.License},
				{"Endpoints", fmt.Sprintf("%d", len(view.Endpoints))},
			}
			if view.PageWarning != "" {
				rows = append(rows, []string{"Page warning", view.PageWarning})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw JSON response")
	return cmd
}

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "translate <workflow-id>",
		Short: "Machine-translate the workflow's content into the target languages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := ctx.client().MachineTranslate(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, view)
			}

			langs := make([]string, 0, len(view.Translations))
			for lang := range view.Translations {
				langs = append(langs, lang)
			}
			sort.Strings(langs)

			rows := make([][]string, 0, len(langs))
			for _, lang := range langs {
				entry := view.Translations[lang]
				rows = append(rows, []string{
					lang,
					truncateCell(entry.Title, 40),
					truncateCell(entry.Description, 60),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Lang", "Title", "Description"}, rows, nil))
			for _, warning := range view.Warnings {
				fmt.Fprintf(out, "warning: %s\n", warning)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw JSON response")
	return cmd
}

func newDocumentCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "document <workflow-id>",
		Short: "Print the assembled DCAT dataset document as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := ctx.client().Document(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, view.Document)
		},
	}
	return cmd
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var catalogToken string

	cmd := &cobra.Command{
		Use:   "submit <workflow-id>",
		Short: "Submit the assembled dataset to the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(catalogToken) == "" {
				return fmt.Errorf("a catalog API token is required (--catalog-token)")
			}
			result, err := ctx.client().Submit(args[0], catalogToken)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dataset submitted: %s (HTTP %d)\n",
				result.DatasetID, result.StatusCode)
			return nil
		},
	}

	cmd.Flags().StringVar(&catalogToken, "catalog-token", "", "Catalog API token used for the submission")
	return cmd
}

func newAbandonCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "abandon <workflow-id>",
		Short: "Discard a workflow and its stored state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.client().Abandon(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Workflow %s discarded\n", args[0])
			return nil
		},
	}
}
