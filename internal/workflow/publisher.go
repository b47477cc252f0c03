package workflow

import (
	"net/url"
	"strings"

	"dcatwiz/internal/services/directory"
)

const publisherDomainSuffix = ".admin.ch"

// DetectPublisherID derives a publisher identifier from the workflow's URLs.
// For each URL, in the order given, the first DNS label of a host under the
// federal domain forms the candidate "CH_<label>", which is matched
// case-insensitively against the directory. Detection stops at the first URL
// that yields a match and returns the directory's own identifier; no match
// returns the empty string. Pure function: same URLs and snapshot always
// give the same answer.
func DetectPublisherID(urls []string, publishers []directory.Publisher) string {
	for _, raw := range urls {
		label := federalHostLabel(raw)
		if label == "" {
			continue
		}
		candidate := "CH_" + label
		for _, pub := range publishers {
			if strings.EqualFold(pub.ID, candidate) {
				return pub.ID
			}
		}
	}
	return ""
}

func federalHostLabel(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	if !strings.HasSuffix(host, publisherDomainSuffix) {
		return ""
	}
	label, _, found := strings.Cut(host, ".")
	if !found || label == "" {
		return ""
	}
	return label
}
