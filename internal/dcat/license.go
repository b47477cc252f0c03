package dcat

// License codes from the Swiss open-data terms-of-use vocabulary.
const (
	LicenseTermsOpen  = "terms_open"
	LicenseTermsBy    = "terms_by"
	LicenseTermsAsk   = "terms_ask"
	LicenseTermsByAsk = "terms_by_ask"
)

const licenseVocabularyBase = "http://dcat-ap.ch/vocabulary/licenses/"

var licenseNames = map[string]LangMap{
	LicenseTermsOpen: {
		"de": "Opendata OPEN: Freie Nutzung.",
		"en": "Opendata OPEN: Open use.",
		"fr": "Opendata OPEN: Utilisation libre.",
		"it": "Opendata OPEN: Libero utilizzo.",
	},
	LicenseTermsBy: {
		"de": "Opendata BY: Freie Nutzung. Quellenangabe ist Pflicht.",
		"en": "Opendata BY: Open use. Must provide the source.",
		"fr": "Opendata BY: Utilisation libre. Obligation d'indiquer la source.",
		"it": "Opendata BY: Libero utilizzo. Indicazione della fonte obbligatoria.",
	},
	LicenseTermsAsk: {
		"de": "Opendata ASK: Freie Nutzung. Kommerzielle Nutzung nur mit Bewilligung des Datenlieferanten zulässig.",
		"en": "Opendata ASK: Open use. Use for commercial purposes requires permission of the data owner.",
		"fr": "Opendata ASK: Utilisation libre. Utilisation à des fins commerciales uniquement avec l'autorisation du fournisseur des données.",
		"it": "Opendata ASK: Libero utilizzo. Utilizzo a fini commerciali ammesso soltanto previo consenso del titolare dei dati.",
	},
	LicenseTermsByAsk: {
		"de": "Opendata BY ASK: Freie Nutzung. Quellenangabe ist Pflicht. Kommerzielle Nutzung nur mit Bewilligung des Datenlieferanten zulässig.",
		"en": "Opendata BY ASK: Open use. Must provide the source. Use for commercial purposes requires permission of the data owner.",
		"fr": "Opendata BY ASK: Utilisation libre. Obligation d'indiquer la source. Utilisation commerciale uniquement avec l'autorisation du fournisseur des donnés.",
		"it": "Opendata BY ASK: Libero utilizzo. Indicazione della fonte obbligatoria. Utilizzo a fini commerciali ammesso soltanto previo consenso del titolare dei dati.",
	},
}

// LicenseOptions lists the selectable license codes in display order.
func LicenseOptions() []string {
	return []string{LicenseTermsOpen, LicenseTermsBy, LicenseTermsAsk, LicenseTermsByAsk}
}

// ResolveLicense resolves a license code against the vocabulary. Unknown
// codes get a generic label and no URI; an empty code yields nil (license is
// optional).
func ResolveLicense(code string) *License {
	if code == "" {
		return nil
	}
	if name, ok := licenseNames[code]; ok {
		return &License{
			Code: code,
			Name: name,
			URI:  licenseVocabularyBase + code,
		}
	}
	return &License{
		Code: code,
		Name: LangMap{
			"de": "Lizenz: " + code,
			"en": "License: " + code,
			"fr": "Licence: " + code,
			"it": "Licenza: " + code,
		},
		URI: "",
	}
}
