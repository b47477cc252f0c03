package workflow

import (
	"testing"

	"dcatwiz/internal/services/directory"
)

func TestDetectPublisherID(t *testing.T) {
	dir := []directory.Publisher{
		{ID: "CH_BAFU"},
		{ID: "ch_astra"},
	}
	cases := []struct {
		name string
		urls []string
		want string
	}{
		{"direct match", []string{"https://bafu.admin.ch/api/x"}, "CH_BAFU"},
		{"case-insensitive match returns directory id", []string{"https://ASTRA.admin.ch/"}, "ch_astra"},
		{"first matching url wins", []string{"https://astra.admin.ch/", "https://bafu.admin.ch/"}, "ch_astra"},
		{"non-federal host skipped", []string{"https://example.com/", "https://bafu.admin.ch/"}, "CH_BAFU"},
		{"no match", []string{"https://seco.admin.ch/"}, ""},
		{"bare country domain", []string{"https://admin.ch/"}, ""},
		{"empty input", nil, ""},
		{"unparseable url", []string{"://nope"}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectPublisherID(tc.urls, dir); got != tc.want {
				t.Fatalf("DetectPublisherID(%v) = %q, want %q", tc.urls, got, tc.want)
			}
		})
	}
}

func TestDetectPublisherIDIsDeterministic(t *testing.T) {
	dir := []directory.Publisher{{ID: "CH_BAFU"}}
	urls := []string{"https://bafu.admin.ch/api"}
	first := DetectPublisherID(urls, dir)
	for i := 0; i < 5; i++ {
		if got := DetectPublisherID(urls, dir); got != first {
			t.Fatalf("detection not deterministic: %q vs %q", got, first)
		}
	}
}
