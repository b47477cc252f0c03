package wizard

import (
	"context"
	"errors"

	"dcatwiz/internal/logging"
	"dcatwiz/internal/services/translate"
	"dcatwiz/internal/workflow"
)

// TranslationView is the translation step's rendered state.
type TranslationView struct {
	WorkflowID   string                `json:"workflow_id"`
	Stage        string                `json:"stage"`
	Translations workflow.Translations `json:"translations"`
	Warnings     []string              `json:"warnings,omitempty"`
}

// Translation enters the translation step and reconciles the translations
// structure. An empty English seed hard-stops the step; the error carries
// the redirect target.
func (c *Controller) Translation(ctx context.Context, workflowID string) (TranslationView, error) {
	state, err := c.manager.Lookup(ctx, workflowID)
	if err != nil {
		return TranslationView{}, err
	}
	if err := c.manager.Advance(ctx, state, workflow.StageTranslation); err != nil {
		return TranslationView{}, err
	}
	translations, err := c.manager.ReconcileTranslations(ctx, state)
	if err != nil {
		if errors.Is(err, workflow.ErrEnglishMissing) {
			return TranslationView{}, &workflow.GuardError{
				Target:   workflow.StageTranslation,
				Redirect: workflow.StageReview,
				Reason:   "English title and description are required before translating",
			}
		}
		return TranslationView{}, err
	}
	return TranslationView{
		WorkflowID:   workflowID,
		Stage:        state.Stage.String(),
		Translations: translations,
	}, nil
}

// MachineTranslate fills the empty target languages from the English seed
// via the translator. Languages that fail stay empty and are reported as
// warnings, never as a step failure.
func (c *Controller) MachineTranslate(ctx context.Context, workflowID string) (TranslationView, error) {
	view, err := c.Translation(ctx, workflowID)
	if err != nil {
		return TranslationView{}, err
	}
	state, err := c.manager.Lookup(ctx, workflowID)
	if err != nil {
		return TranslationView{}, err
	}

	translations := view.Translations
	english := translations["en"]
	targets := c.manager.TargetLanguages()

	titles, err := c.translator.Translate(ctx, translate.Request{
		Text:       english.Title,
		SourceLang: "en",
		Targets:    targets,
	})
	if err != nil {
		return TranslationView{}, err
	}
	descriptions := map[string]string{}
	if english.Description != "" {
		descriptions, err = c.translator.Translate(ctx, translate.Request{
			Text:       english.Description,
			SourceLang: "en",
			Targets:    targets,
		})
		if err != nil {
			return TranslationView{}, err
		}
	}

	keywordGrid := make(map[string][]string, len(targets))
	for _, keyword := range english.Keywords {
		translated, err := c.translator.Translate(ctx, translate.Request{
			Text:       keyword,
			SourceLang: "en",
			Targets:    targets,
		})
		if err != nil {
			return TranslationView{}, err
		}
		for _, lang := range targets {
			keywordGrid[lang] = append(keywordGrid[lang], translated[lang])
		}
	}

	var warnings []string
	for _, lang := range targets {
		entry := translations[lang]
		if !entry.Empty() {
			// Manual or earlier machine content stays authoritative.
			continue
		}
		entry.Title = titles[lang]
		entry.Description = descriptions[lang]
		entry.Keywords = keywordGrid[lang]
		if entry.Keywords == nil {
			entry.Keywords = []string{}
		}
		translations[lang] = entry
		if entry.Empty() {
			warnings = append(warnings, "translation to "+lang+" failed; the language stays empty")
		}
	}

	if err := c.manager.SaveTranslations(ctx, state, translations); err != nil {
		return TranslationView{}, err
	}
	c.logger.Info("machine translation applied",
		logging.FieldWorkflowID, workflowID,
		"languages", len(targets),
		"warnings", len(warnings))
	return TranslationView{
		WorkflowID:   workflowID,
		Stage:        state.Stage.String(),
		Translations: translations,
		Warnings:     warnings,
	}, nil
}

// SaveTranslations persists manual translation edits. The English entry must
// stay populated.
func (c *Controller) SaveTranslations(ctx context.Context, workflowID string, edited workflow.Translations) (TranslationView, error) {
	state, err := c.manager.Lookup(ctx, workflowID)
	if err != nil {
		return TranslationView{}, err
	}
	if !edited.EnglishReady() {
		return TranslationView{}, &workflow.GuardError{
			Target:   workflow.StageTranslation,
			Redirect: workflow.StageReview,
			Reason:   "English title and description are required",
		}
	}
	if err := c.manager.SaveTranslations(ctx, state, edited); err != nil {
		return TranslationView{}, err
	}
	return TranslationView{
		WorkflowID:   workflowID,
		Stage:        state.Stage.String(),
		Translations: edited,
	}, nil
}
