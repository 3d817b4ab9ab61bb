package feeds

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRSSSource_Fetch(t *testing.T) {
	recent := time.Now().Add(-10 * time.Minute).UTC().Format(time.RFC1123Z)
	old := time.Now().Add(-5 * time.Hour).UTC().Format(time.RFC1123Z)
	feed := fmt.Sprintf(`<?xml version="1.0"?>
<rss version="2.0"><channel><title>Markets</title>
<item><title>Acme beats estimates</title><link>https://example.com/acme</link>
<description>&lt;p&gt;Record quarter&lt;/p&gt;</description><pubDate>%s</pubDate><category>earnings</category></item>
<item><title>Old news</title><link>https://example.com/old</link><pubDate>%s</pubDate></item>
</channel></rss>`, recent, old)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			http.Error(w, "gone", http.StatusGone)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(feed))
	}))
	defer srv.Close()

	src := NewRSSSource([]string{srv.URL + "/feed", srv.URL + "/broken"}, NewFetcher(WithRateDelay(0)))
	articles, err := src.Fetch(context.Background(), time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	if len(articles) != 1 {
		t.Fatalf("got %d articles, want 1", len(articles))
	}
	a := articles[0]
	if a.URL != "https://example.com/acme" {
		t.Errorf("URL = %q", a.URL)
	}
	if a.Description != "Record quarter" {
		t.Errorf("Description = %q, want %q", a.Description, "Record quarter")
	}
	if len(a.Keywords) != 1 || a.Keywords[0] != "earnings" {
		t.Errorf("Keywords = %v, want [earnings]", a.Keywords)
	}
	if len(a.Insights) != 0 {
		t.Errorf("RSS articles should carry no insights, got %d", len(a.Insights))
	}
}

func TestFetcher_WaitHonorsContext(t *testing.T) {
	f := NewFetcher(WithRateDelay(time.Hour))
	ctx := context.Background()

	if err := f.wait(ctx, "example.com"); err != nil {
		t.Fatalf("first wait() error: %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := f.wait(cancelled, "example.com"); err == nil {
		t.Error("second wait() should return the context error")
	}

	if err := f.wait(ctx, "other.example.com"); err != nil {
		t.Errorf("wait() on another domain error: %v", err)
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://www.reuters.com/markets/acme", "www.reuters.com"},
		{"http://example.com:8080/x", "example.com"},
		{"://bad", "://bad"},
	}
	for _, tt := range tests {
		if got := extractDomain(tt.input); got != tt.want {
			t.Errorf("extractDomain(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
