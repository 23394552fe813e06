package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"orderlens/cache"
	"orderlens/config"
)

const gatedTemplate = "SELECT client_country, SUM(revenue) AS revenue FROM fact_orders WHERE __ORDERLENS_FILTERS__ GROUP BY client_country"

// dashScopeReply serves a canned model answer and counts how often the
// model was actually called.
func dashScopeReply(content string, hits *int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		*hits++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"output":{"choices":[{"message":{"role":"assistant","content":%q}}]}}`, content)
	}
}

func newTestService(t *testing.T, handler http.HandlerFunc) (*AIService, *cache.Cache) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := cache.New(time.Minute, time.Minute)
	svc, err := New(config.LLMConfig{
		APIKey:    "test-key",
		ModelName: "qwen-test",
		APIURL:    srv.URL,
		Timeout:   5 * time.Second,
	}, c)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return svc, c
}

func TestGenerateSQLServesCachedTemplate(t *testing.T) {
	hits := 0
	svc, _ := newTestService(t, dashScopeReply(gatedTemplate, &hits))

	first, err := svc.GenerateSQL(context.Background(), "revenue by country", "no filters active")
	if err != nil {
		t.Fatalf("GenerateSQL() error: %v", err)
	}
	second, err := svc.GenerateSQL(context.Background(), "revenue by country", "no filters active")
	if err != nil {
		t.Fatalf("GenerateSQL() error on repeat: %v", err)
	}
	if first != second {
		t.Errorf("cached answer differs: %q vs %q", first, second)
	}
	if hits != 1 {
		t.Errorf("model called %d times, want 1", hits)
	}
}

// A template that fails the placeholder or safety gate is returned to the
// caller, who reports the failure, but it must never enter the cache.
func TestGenerateSQLDoesNotCacheUngatedTemplate(t *testing.T) {
	cases := []struct {
		name     string
		template string
	}{
		{"missing placeholder", "SELECT SUM(revenue) FROM fact_orders"},
		{"unsafe statement", "DELETE FROM fact_orders WHERE __ORDERLENS_FILTERS__"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hits := 0
			svc, c := newTestService(t, dashScopeReply(tc.template, &hits))

			got, err := svc.GenerateSQL(context.Background(), "some question", "no filters active")
			if err != nil {
				t.Fatalf("GenerateSQL() error: %v", err)
			}
			if got != tc.template {
				t.Errorf("template = %q, want %q", got, tc.template)
			}
			if _, found := c.GetSQL(cache.Key("some question", "no filters active")); found {
				t.Error("ungated template was cached")
			}

			if _, err := svc.GenerateSQL(context.Background(), "some question", "no filters active"); err != nil {
				t.Fatalf("GenerateSQL() error on repeat: %v", err)
			}
			if hits != 2 {
				t.Errorf("model called %d times, want 2", hits)
			}
		})
	}
}

// A successful repair replaces the broken cached template, so the next
// ask of the same question gets the working version straight away.
func TestRepairSQLReplacesCachedTemplate(t *testing.T) {
	hits := 0
	svc, c := newTestService(t, dashScopeReply(gatedTemplate, &hits))

	key := cache.Key("revenue by country", "no filters active")
	stale := "SELECT bad_column FROM fact_orders WHERE __ORDERLENS_FILTERS__"
	c.SetSQL(key, stale)

	repaired, err := svc.RepairSQL(context.Background(), "revenue by country", "no filters active",
		stale, "Invalid column name 'bad_column'.")
	if err != nil {
		t.Fatalf("RepairSQL() error: %v", err)
	}
	if repaired != gatedTemplate {
		t.Fatalf("repaired = %q, want %q", repaired, gatedTemplate)
	}

	cached, found := c.GetSQL(key)
	if !found {
		t.Fatal("repaired template not cached")
	}
	if cached != gatedTemplate {
		t.Errorf("cache holds %q, want the repaired template", cached)
	}
}

func TestInvalidateSQLDropsEntry(t *testing.T) {
	hits := 0
	svc, c := newTestService(t, dashScopeReply(gatedTemplate, &hits))

	key := cache.Key("revenue by country", "no filters active")
	c.SetSQL(key, gatedTemplate)

	svc.InvalidateSQL("revenue by country", "no filters active")
	if _, found := c.GetSQL(key); found {
		t.Error("entry survived invalidation")
	}
}
