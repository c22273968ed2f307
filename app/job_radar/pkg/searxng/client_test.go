package searxng

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/iWorld-y/job_radar/app/job_radar/pkg/search"
)

func TestClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/search" || q.Get("format") != "json" || q.Get("categories") != "general" {
			t.Errorf("request = %s", r.URL.String())
		}
		if q.Get("q") != "rust developer -site:spam.example" {
			t.Errorf("q = %q", q.Get("q"))
		}
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "Mozilla/5.0") {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		w.Write([]byte(`{"query":"rust","results":[
			{"title":"A","url":"https://a.example","content":"a","score":2.5},
			{"title":"B","url":"https://b.example","content":"b","score":1.0},
			{"title":"C","url":"https://c.example","content":"c","score":0.5}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", 5)
	resp, err := c.Search(context.Background(), &search.Request{Query: "rust developer", MaxResults: 2, ExcludeDomains: []string{"spam.example"}})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("Search() got %d results, want 2", len(resp.Results))
	}
	if resp.Results[0].Title != "A" || resp.Results[0].Score != 2.5 {
		t.Errorf("first = %+v", resp.Results[0])
	}
}

func TestClient_SearchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "format json disabled", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 0).Search(context.Background(), &search.Request{Query: "x"})
	if err == nil || !strings.Contains(err.Error(), "status 403") {
		t.Errorf("Search() error = %v, want status 403", err)
	}
}
