package workflow

import (
	"strings"
	"time"

	"dcatwiz/internal/services/directory"
)

// Provenance records where a metadata field's current value came from, which
// decides precedence when tiers are merged.
type Provenance string

const (
	ProvenanceUserEntered Provenance = "user_entered"
	ProvenanceAIGenerated Provenance = "ai_generated"
	ProvenanceExtracted   Provenance = "extracted"
	ProvenanceDefault     Provenance = "default"
)

// Metadata holds the reviewed dataset fields and their provenance.
type Metadata struct {
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Keywords     []string              `json:"keywords"`
	ThemeCodes   []string              `json:"theme_codes"`
	PublisherID  string                `json:"publisher_id"`
	AccessRights string                `json:"access_rights"`
	License      string                `json:"license"`
	Provenance   map[string]Provenance `json:"provenance"`
}

func (m *Metadata) setProvenance(field string, p Provenance) {
	if m.Provenance == nil {
		m.Provenance = map[string]Provenance{}
	}
	m.Provenance[field] = p
}

// Entry is the translatable content for one language.
type Entry struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// Empty reports whether the entry carries no title and no description.
func (e Entry) Empty() bool {
	return strings.TrimSpace(e.Title) == "" && strings.TrimSpace(e.Description) == ""
}

// Translations maps language codes to translated content. English is the
// seed language; other languages start empty.
type Translations map[string]Entry

// NewTranslations seeds a fresh structure from the authoritative English
// content, with every target language present but empty.
func NewTranslations(seed Entry, targets []string) Translations {
	t := Translations{"en": seed}
	for _, lang := range targets {
		lang = strings.ToLower(strings.TrimSpace(lang))
		if lang == "" || lang == "en" {
			continue
		}
		t[lang] = Entry{Keywords: []string{}}
	}
	return t
}

// HasContent reports whether at least one language has a non-empty title or
// description. This is the acceptance predicate for tier-loaded structures.
func (t Translations) HasContent() bool {
	for _, entry := range t {
		if !entry.Empty() {
			return true
		}
	}
	return false
}

// EnglishReady reports whether the English seed entry is populated. A
// structure whose other languages are filled but whose English is empty is
// invalid as a whole.
func (t Translations) EnglishReady() bool {
	return !t["en"].Empty()
}

// ContactPoint is the per-language organization contact block. The map
// fields carry one value per publication language.
type ContactPoint struct {
	Email        string            `json:"email"`
	Phone        string            `json:"phone"`
	Organization map[string]string `json:"organization"`
	Address      map[string]string `json:"address"`
	Note         map[string]string `json:"note"`
	DisplayName  map[string]string `json:"display_name"`
}

// EnsureLanguages guarantees every map has an entry for each language so
// rendering and document assembly never hit a missing key.
func (c *ContactPoint) EnsureLanguages(langs []string) {
	ensure := func(m map[string]string) map[string]string {
		if m == nil {
			m = map[string]string{}
		}
		for _, lang := range langs {
			if _, ok := m[lang]; !ok {
				m[lang] = ""
			}
		}
		return m
	}
	c.Organization = ensure(c.Organization)
	c.Address = ensure(c.Address)
	c.Note = ensure(c.Note)
	c.DisplayName = ensure(c.DisplayName)
}

// Empty reports whether no contact field carries content.
func (c *ContactPoint) Empty() bool {
	if c == nil {
		return true
	}
	if c.Email != "" || c.Phone != "" {
		return false
	}
	for _, m := range []map[string]string{c.Organization, c.Address, c.Note, c.DisplayName} {
		for _, value := range m {
			if value != "" {
				return false
			}
		}
	}
	return true
}

// Endpoint is one harvested API operation.
type Endpoint struct {
	Method  string `json:"method"`
	Path    string `json:"path"`
	Summary string `json:"summary,omitempty"`
}

// DocumentLink is a downloadable document found on the landing page.
type DocumentLink struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// HarvestedDetails is the durable record of one pipeline run: the extracted
// API description plus whatever the landing page yielded. Either half may be
// partially populated; the error fields record why.
type HarvestedDetails struct {
	SourceURL       string         `json:"source_url"`
	LandingURL      string         `json:"landing_url"`
	SpecURL         string         `json:"spec_url"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Version         string         `json:"version"`
	Keywords        []string       `json:"keywords"`
	Endpoints       []Endpoint     `json:"endpoints"`
	PageTitle       string         `json:"page_title"`
	PageDescription string         `json:"page_description"`
	BodyExcerpt     string         `json:"body_excerpt"`
	DocumentLinks   []DocumentLink `json:"document_links"`
	ContactEmail    string         `json:"contact_email,omitempty"`
	ContactPhone    string         `json:"contact_phone,omitempty"`
	SpecError       string         `json:"spec_error,omitempty"`
	PageError       string         `json:"page_error,omitempty"`
	HarvestedAt     time.Time      `json:"harvested_at"`
}

// GeneratedContent is the durable record of the latest text generation.
type GeneratedContent struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Keywords    []string  `json:"keywords"`
	ThemeCodes  []string  `json:"theme_codes"`
	GeneratedAt time.Time `json:"generated_at"`
}

// State is the per-workflow record held in the fast tier. Everything needed
// to re-render any step is reachable from here plus the durable blobs.
type State struct {
	WorkflowID    string        `json:"workflow_id"`
	Stage         Stage         `json:"stage"`
	CreatedAt     time.Time     `json:"created_at"`
	SourceURL     string        `json:"source_url"`
	LandingURL    string        `json:"landing_url"`
	JobID         string        `json:"job_id,omitempty"`
	HarvestMerged bool          `json:"harvest_merged"`
	Metadata      Metadata      `json:"metadata"`
	Contact       *ContactPoint `json:"contact,omitempty"`
	DatasetID     string        `json:"dataset_id,omitempty"`
}

// PublisherSnapshot is the durable copy of the publisher directory taken
// during the pipeline run, so review rendering and auto-detection work from
// one consistent view.
type PublisherSnapshot struct {
	Publishers []directory.Publisher `json:"publishers"`
	FetchedAt  time.Time             `json:"fetched_at"`
}
