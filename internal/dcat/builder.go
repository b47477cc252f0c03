package dcat

import (
	"strings"
	"time"

	"dcatwiz/internal/services/directory"
	"dcatwiz/internal/workflow"
)

// Publication languages of the catalog. Some label maps additionally carry
// an empty Romansh entry, matching what the catalog accepts.
var publicationLanguages = []string{"de", "en", "fr", "it"}

// BuildInput gathers everything the document builder needs from the
// reconciled workflow.
type BuildInput struct {
	Translations  workflow.Translations
	ThemeCodes    []string
	PublisherID   string
	SpecURL       string
	LandingURL    string
	AccessRights  string
	LicenseCode   string
	Contact       *workflow.ContactPoint
	DocumentLinks []workflow.DocumentLink
	Publishers    []directory.Publisher
	Date          time.Time
}

// Build assembles the dataset document for submission. Every label map is
// fully populated so the output is a total function of the input: missing
// translations become empty strings, never absent keys.
func Build(input BuildInput) Dataset {
	date := input.Date
	if date.IsZero() {
		date = time.Now()
	}
	accessRights := input.AccessRights
	if accessRights == "" {
		accessRights = workflow.AccessRightsPublic
	}

	dataset := Dataset{
		Title:         translationField(input.Translations, func(e workflow.Entry) string { return e.Title }),
		Description:   translationField(input.Translations, func(e workflow.Entry) string { return e.Description }),
		Keywords:      keywordGrid(input.Translations),
		Publisher:     Publisher{Identifier: input.PublisherID},
		ContactPoints: []VCard{contactVCard(input)},
		ThemeCodes:    themeCodes(input.ThemeCodes),
		AccessRights:  CodeRef{Code: accessRights},
		EndpointURLs: []Labeled{{
			URI: input.SpecURL,
			Label: LangMap{
				"de": "API Endpunkt",
				"en": "API Endpoint",
				"fr": "Point de terminaison API",
				"it": "Endpoint API",
			},
		}},
		EndpointDescriptions: []Labeled{{
			URI: input.SpecURL,
			Label: LangMap{
				"de": "API-Beschreibung (Swagger/OpenAPI)",
				"en": "API Description (Swagger/OpenAPI)",
				"fr": "Description de l'API (Swagger/OpenAPI)",
				"it": "Descrizione dell'API (Swagger/OpenAPI)",
			},
		}},
		ConformTos: []Labeled{{
			URI: "https://swagger.io/specification/",
			Label: LangMap{
				"de": "Konform mit OpenAPI (Swagger) Spezifikation",
				"en": "Conforms to OpenAPI (Swagger) specification",
				"fr": "Conforme à la spécification OpenAPI (Swagger)",
				"it": "Conforme alle specifiche OpenAPI (Swagger)",
			},
		}},
		Version:      date.Format("2006-01-02"),
		VersionNotes: LangMap{},
		License:      ResolveLicense(input.LicenseCode),
	}

	dataset.Documents = []Labeled{specDocument(input)}
	if input.LandingURL != "" {
		moreInfo := LangMap{
			"de": "Weitere Informationen",
			"en": "More information",
			"fr": "Plus d'informations",
			"it": "Maggiori informazioni",
		}
		dataset.LandingPages = []Labeled{{URI: input.LandingURL, Label: moreInfo}}
		dataset.Documents = append(dataset.Documents, Labeled{URI: input.LandingURL, Label: moreInfo})
	}
	for _, link := range input.DocumentLinks {
		label := strings.TrimSpace(link.Label)
		if label == "" {
			label = "Document"
		}
		dataset.Documents = append(dataset.Documents, Labeled{
			URI:   link.URL,
			Label: sameLabel(label),
		})
	}
	return dataset
}

func translationField(translations workflow.Translations, pick func(workflow.Entry) string) LangMap {
	out := LangMap{}
	for _, lang := range publicationLanguages {
		out[lang] = pick(translations[lang])
	}
	return out
}

// keywordGrid lines keywords up positionally across languages: entry i
// carries the i-th keyword of every language, padded with empty strings
// where a language has fewer keywords.
func keywordGrid(translations workflow.Translations) []Keyword {
	longest := 0
	for _, lang := range publicationLanguages {
		if n := len(translations[lang].Keywords); n > longest {
			longest = n
		}
	}
	keywords := make([]Keyword, 0, longest)
	for i := 0; i < longest; i++ {
		label := LangMap{"rm": ""}
		for _, lang := range publicationLanguages {
			words := translations[lang].Keywords
			if i < len(words) {
				label[lang] = words[i]
			} else {
				label[lang] = ""
			}
		}
		keywords = append(keywords, Keyword{Label: label, URI: nil})
	}
	return keywords
}

func themeCodes(codes []string) []string {
	if codes == nil {
		return []string{}
	}
	return codes
}

func specDocument(input BuildInput) Labeled {
	fallbacks := LangMap{
		"de": "API-Dokumentation (Swagger/OpenAPI)",
		"en": "API Documentation (Swagger/OpenAPI)",
		"fr": "Documentation de l'API (Swagger/OpenAPI)",
		"it": "Documentazione API (Swagger/OpenAPI)",
	}
	label := LangMap{}
	for _, lang := range publicationLanguages {
		if title := input.Translations[lang].Title; title != "" {
			label[lang] = title
		} else {
			label[lang] = fallbacks[lang]
		}
	}
	return Labeled{URI: input.SpecURL, Label: label}
}

func sameLabel(text string) LangMap {
	out := LangMap{}
	for _, lang := range publicationLanguages {
		out[lang] = text
	}
	return out
}

// contactVCard builds the contact point: the workflow's reconciled contact
// block when present, otherwise a default derived from the selected
// publisher's directory entry.
func contactVCard(input BuildInput) VCard {
	card := VCard{
		FN: LangMap{
			"de": "Unbekannte Organisation",
			"en": "Unknown Organization",
			"fr": "Organisation inconnue",
			"it": "Organizzazione sconosciuta",
			"rm": "",
		},
		HasAddress: LangMap{"de": "", "en": "", "fr": "", "it": "", "rm": ""},
		HasEmail:   "info@example.com",
		Kind:       "Organization",
		Note: LangMap{
			"de": "Für weitere Informationen kontaktieren Sie uns.",
			"en": "For more information, contact us.",
			"fr": "Pour plus d'informations, contactez-nous.",
			"it": "Per ulteriori informazioni, contattaci.",
			"rm": "",
		},
	}

	if publisher := findPublisher(input.Publishers, input.PublisherID); publisher != nil {
		applyPublisher(&card, publisher)
	}
	if input.Contact != nil {
		applyContact(&card, input.Contact)
	}
	return card
}

func findPublisher(publishers []directory.Publisher, id string) *directory.Publisher {
	if id == "" {
		return nil
	}
	for i := range publishers {
		if strings.EqualFold(publishers[i].ID, id) {
			return &publishers[i]
		}
	}
	return nil
}

func applyPublisher(card *VCard, publisher *directory.Publisher) {
	named := false
	for _, lang := range publicationLanguages {
		if name := publisher.Name[lang]; name != "" {
			card.FN[lang] = name
			named = true
		}
	}
	if !named && publisher.DisplayName != "" {
		for _, lang := range publicationLanguages {
			card.FN[lang] = publisher.DisplayName
		}
	}
	if publisher.Address == nil {
		return
	}
	if publisher.Address.Email != "" {
		card.HasEmail = publisher.Address.Email
	}
	if publisher.Address.Phone != "" {
		card.HasTelephone = publisher.Address.Phone
	}
	var parts []string
	if dept := preferredName(publisher.Address.Department); dept != "" {
		parts = append(parts, dept)
	}
	if org := preferredName(publisher.Address.Organization); org != "" && org != card.FN["de"] {
		parts = append(parts, org)
	}
	if len(parts) > 0 {
		address := strings.Join(parts, ", ")
		for _, lang := range publicationLanguages {
			card.HasAddress[lang] = address
		}
	}
}

func preferredName(names map[string]string) string {
	if len(names) == 0 {
		return ""
	}
	if name := names["de"]; name != "" {
		return name
	}
	if name := names["en"]; name != "" {
		return name
	}
	for _, name := range names {
		if name != "" {
			return name
		}
	}
	return ""
}

func applyContact(card *VCard, contact *workflow.ContactPoint) {
	for _, lang := range publicationLanguages {
		if name := firstOf(contact.DisplayName[lang], contact.Organization[lang]); name != "" {
			card.FN[lang] = name
		}
		if address := contact.Address[lang]; address != "" {
			card.HasAddress[lang] = address
		}
		if note := contact.Note[lang]; note != "" {
			card.Note[lang] = note
		}
	}
	if contact.Email != "" {
		card.HasEmail = contact.Email
	}
	if contact.Phone != "" {
		card.HasTelephone = contact.Phone
	}
}

func firstOf(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
