package dcat

// LangMap is a multilingual label keyed by language code.
type LangMap map[string]string

// Labeled is a URI with a multilingual label.
type Labeled struct {
	URI   string  `json:"uri"`
	Label LangMap `json:"label"`
}

// Keyword is one keyword entry; the catalog expects a label per language and
// a null URI for free-text keywords.
type Keyword struct {
	Label LangMap `json:"label"`
	URI   *string `json:"uri"`
}

// Publisher references the publishing organization by directory identifier.
type Publisher struct {
	Identifier string `json:"identifier"`
}

// VCard is the catalog's contact-point shape.
type VCard struct {
	FN           LangMap `json:"fn"`
	HasAddress   LangMap `json:"hasAddress"`
	HasEmail     string  `json:"hasEmail"`
	HasTelephone string  `json:"hasTelephone"`
	Kind         string  `json:"kind"`
	Note         LangMap `json:"note"`
}

// CodeRef wraps a controlled-vocabulary code.
type CodeRef struct {
	Code string `json:"code"`
}

// License is the dataset's license with its vocabulary entry resolved.
type License struct {
	Code string  `json:"code"`
	Name LangMap `json:"name"`
	URI  string  `json:"uri"`
}

// Dataset is the document posted to the catalog's input API. The dataset
// identifier is deliberately absent; the catalog assigns it.
type Dataset struct {
	Title                LangMap   `json:"title"`
	Description          LangMap   `json:"description"`
	Keywords             []Keyword `json:"keywords"`
	Publisher            Publisher `json:"publisher"`
	ContactPoints        []VCard   `json:"contactPoints"`
	ThemeCodes           []string  `json:"themeCodes"`
	AccessRights         CodeRef   `json:"accessRights"`
	EndpointURLs         []Labeled `json:"endpointUrls"`
	EndpointDescriptions []Labeled `json:"endpointDescriptions"`
	Documents            []Labeled `json:"documents"`
	ConformTos           []Labeled `json:"conformTos"`
	Version              string    `json:"version"`
	VersionNotes         LangMap   `json:"versionNotes"`
	License              *License  `json:"license,omitempty"`
	LandingPages         []Labeled `json:"landingPages,omitempty"`
}
