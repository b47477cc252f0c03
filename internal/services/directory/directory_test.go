package directory

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dcatwiz/internal/config"
)

func newTestClient(t *testing.T, agents, orgSearch http.HandlerFunc) *Client {
	t.Helper()
	agentsServer := httptest.NewServer(agents)
	t.Cleanup(agentsServer.Close)
	cfg := config.Directory{
		AgentsURL:      agentsServer.URL,
		RequestTimeout: 5,
	}
	if orgSearch != nil {
		orgServer := httptest.NewServer(orgSearch)
		t.Cleanup(orgServer.Close)
		cfg.OrgSearchURL = orgServer.URL
	}
	return NewClient(cfg)
}

func TestListSortsAndSkipsBrokenRecords(t *testing.T) {
	agents := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"CH_ZETA","name":{"en":"Zeta Office"}},
			{"id":"","name":{"en":"Nameless"}},
			{"id":"CH_NO_NAME","name":{}},
			{"id":"CH_ALPHA","name":{"de":"Alpha Amt"}}
		]`))
	}
	client := newTestClient(t, agents, nil)

	publishers, err := client.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(publishers) != 2 {
		t.Fatalf("expected 2 publishers, got %d", len(publishers))
	}
	if publishers[0].DisplayName != "Alpha Amt" || publishers[1].DisplayName != "Zeta Office" {
		t.Fatalf("unexpected order: %q, %q", publishers[0].DisplayName, publishers[1].DisplayName)
	}
}

func TestListEnrichesAddressFromOrgSearch(t *testing.T) {
	agents := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"CH_BAFU","name":{"en":"FOEN","de":"BAFU"}}]`))
	}
	orgSearch := func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("s"); got != "BAFU" {
			t.Errorf("search term = %q, want BAFU", got)
		}
		w.Write([]byte(`{"result":[{
			"email":"info@bafu.admin.ch",
			"phone":"+41 58 000 00 00",
			"organization":{"name":{"de":"BAFU","en":"FOEN"}},
			"department":{"name":{"de":"UVEK"}}
		}]}`))
	}
	client := newTestClient(t, agents, orgSearch)

	publishers, err := client.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	addr := publishers[0].Address
	if addr == nil {
		t.Fatal("expected address to be resolved")
	}
	if addr.Email != "info@bafu.admin.ch" {
		t.Fatalf("email = %q", addr.Email)
	}
	if addr.Department["de"] != "UVEK" {
		t.Fatalf("department = %v", addr.Department)
	}
}

func TestListOrgSearchFailureLeavesAddressUnset(t *testing.T) {
	agents := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"CH_BAFU","name":{"de":"BAFU"}}]`))
	}
	orgSearch := func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}
	client := newTestClient(t, agents, orgSearch)

	publishers, err := client.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if publishers[0].Address != nil {
		t.Fatal("expected nil address after registry failure")
	}
}

type fakeLister struct {
	entries []Publisher
	err     error
	calls   int
}

func (f *fakeLister) List(ctx context.Context) ([]Publisher, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

func TestCacheServesFreshCopyWithoutRefetch(t *testing.T) {
	lister := &fakeLister{entries: []Publisher{{ID: "CH_A", DisplayName: "A"}}}
	cache := NewCache(lister, time.Hour, nil)

	for i := 0; i < 3; i++ {
		if _, err := cache.Publishers(context.Background(), false); err != nil {
			t.Fatalf("Publishers: %v", err)
		}
	}
	if lister.calls != 1 {
		t.Fatalf("expected a single upstream fetch, got %d", lister.calls)
	}
}

func TestCacheForceRefreshBypassesTTL(t *testing.T) {
	lister := &fakeLister{entries: []Publisher{{ID: "CH_A", DisplayName: "A"}}}
	cache := NewCache(lister, time.Hour, nil)

	cache.Publishers(context.Background(), false)
	cache.Publishers(context.Background(), true)
	if lister.calls != 2 {
		t.Fatalf("expected 2 upstream fetches, got %d", lister.calls)
	}
}

func TestCacheServesStaleCopyOnRefreshFailure(t *testing.T) {
	lister := &fakeLister{entries: []Publisher{{ID: "CH_A", DisplayName: "A"}}}
	cache := NewCache(lister, time.Hour, nil)
	now := time.Now()
	cache.clock = func() time.Time { return now }

	if _, err := cache.Publishers(context.Background(), false); err != nil {
		t.Fatalf("initial fetch: %v", err)
	}

	lister.err = errors.New("upstream down")
	now = now.Add(2 * time.Hour)

	publishers, err := cache.Publishers(context.Background(), false)
	if err != nil {
		t.Fatalf("expected stale copy, got error: %v", err)
	}
	if len(publishers) != 1 || publishers[0].ID != "CH_A" {
		t.Fatalf("unexpected stale copy: %+v", publishers)
	}
}

func TestCacheFailsWhenNoCopyExists(t *testing.T) {
	lister := &fakeLister{err: errors.New("upstream down")}
	cache := NewCache(lister, time.Hour, nil)

	if _, err := cache.Publishers(context.Background(), false); err == nil {
		t.Fatal("expected error when no cached copy exists")
	}
}

func TestFindByIDIsCaseInsensitive(t *testing.T) {
	lister := &fakeLister{entries: []Publisher{{ID: "CH_BAFU", DisplayName: "FOEN"}}}
	cache := NewCache(lister, time.Hour, nil)

	pub, ok, err := cache.FindByID(context.Background(), "ch_bafu")
	if err != nil || !ok {
		t.Fatalf("FindByID: ok=%v err=%v", ok, err)
	}
	if pub.DisplayName != "FOEN" {
		t.Fatalf("display name = %q", pub.DisplayName)
	}
}
