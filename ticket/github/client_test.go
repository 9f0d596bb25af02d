package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/randalmurphal/alertflow/ticket"
)

func TestSplitRepo(t *testing.T) {
	tests := []struct {
		ref       string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{"acme/mobile", "acme", "mobile", false},
		{"https://github.com/acme/mobile", "acme", "mobile", false},
		{"https://github.com/acme/mobile.git", "acme", "mobile", false},
		{"git@github.com:acme/mobile.git", "acme", "mobile", false},
		{"github.com/acme/mobile", "acme", "mobile", false},
		{"", "", "", true},
		{"mobile", "", "", true},
		{"/mobile", "", "", true},
		{"acme/", "", "", true},
		{"git@github.com", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			owner, repo, err := SplitRepo(tt.ref)
			if tt.wantErr {
				if !errors.Is(err, ErrRepoInvalid) {
					t.Errorf("SplitRepo(%q) error = %v, want ErrRepoInvalid", tt.ref, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SplitRepo(%q) error = %v", tt.ref, err)
			}
			if owner != tt.wantOwner || repo != tt.wantRepo {
				t.Errorf("SplitRepo(%q) = %q/%q, want %q/%q", tt.ref, owner, repo, tt.wantOwner, tt.wantRepo)
			}
		})
	}
}

func TestParseIssueID(t *testing.T) {
	tests := []struct {
		id      string
		wantNum int
		wantErr bool
	}{
		{"acme/mobile#42", 42, false},
		{"acme/mobile", 0, true},
		{"acme/mobile#", 0, true},
		{"acme/mobile#abc", 0, true},
		{"acme/mobile#0", 0, true},
		{"#42", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			owner, repo, number, err := ParseIssueID(tt.id)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseIssueID(%q) expected error, got %q/%q#%d", tt.id, owner, repo, number)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseIssueID(%q) error = %v", tt.id, err)
			}
			if owner != "acme" || repo != "mobile" || number != tt.wantNum {
				t.Errorf("ParseIssueID(%q) = %q/%q#%d", tt.id, owner, repo, number)
			}
		})
	}
}

// newTestClient points a Client at a test server standing in for the
// GitHub API.
func newTestClient(t *testing.T, repo string, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		Token:   "gh-token",
		Repo:    repo,
		BaseURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestClient_Create(t *testing.T) {
	var gotPath, gotAuth string
	var got struct {
		Title  string   `json:"title"`
		Body   string   `json:"body"`
		Labels []string `json:"labels"`
	}

	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"number":42,"html_url":"https://github.com/acme/mobile/issues/42","title":"Crash on startup"}`))
	})

	created, err := client.Create(context.Background(), ticket.CreateRequest{
		Project:     "acme/mobile",
		Title:       "Crash on startup",
		Description: "NullPointerException in session refresh.",
		Labels:      []string{"bug", "mobile"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if gotPath != "/api/v3/repos/acme/mobile/issues" {
		t.Errorf("path = %s, want /api/v3/repos/acme/mobile/issues", gotPath)
	}
	if gotAuth != "Bearer gh-token" {
		t.Errorf("Authorization = %q, want Bearer gh-token", gotAuth)
	}
	if got.Title != "Crash on startup" {
		t.Errorf("title = %q", got.Title)
	}
	if got.Body != "NullPointerException in session refresh." {
		t.Errorf("body = %q", got.Body)
	}
	if len(got.Labels) != 2 || got.Labels[0] != "bug" {
		t.Errorf("labels = %v", got.Labels)
	}

	if created.ID != "acme/mobile#42" {
		t.Errorf("Created.ID = %q, want acme/mobile#42", created.ID)
	}
	if created.URL != "https://github.com/acme/mobile/issues/42" {
		t.Errorf("Created.URL = %q", created.URL)
	}
}

func TestClient_CreateDefaultRepo(t *testing.T) {
	var gotPath string

	client := newTestClient(t, "acme/mobile", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"number":7,"html_url":"https://github.com/acme/mobile/issues/7"}`))
	})

	// A tracker-agnostic project name falls back to the configured repo.
	created, err := client.Create(context.Background(), ticket.CreateRequest{
		Project: "MOBILE",
		Title:   "Crash on startup",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if gotPath != "/api/v3/repos/acme/mobile/issues" {
		t.Errorf("path = %s, want /api/v3/repos/acme/mobile/issues", gotPath)
	}
	if created.ID != "acme/mobile#7" {
		t.Errorf("Created.ID = %q, want acme/mobile#7", created.ID)
	}
}

func TestClient_CreateNoRepo(t *testing.T) {
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		t.Error("request sent without a resolvable repo")
	})

	_, err := client.Create(context.Background(), ticket.CreateRequest{
		Project: "MOBILE",
		Title:   "Crash on startup",
	})
	if !errors.Is(err, ErrRepoRequired) {
		t.Errorf("Create() error = %v, want ErrRepoRequired", err)
	}
}

func TestClient_Get(t *testing.T) {
	var gotPath string

	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{
			"number": 42,
			"html_url": "https://github.com/acme/mobile/issues/42",
			"title": "Crash on startup",
			"body": "NullPointerException in session refresh.",
			"state": "open",
			"labels": [{"name": "bug"}, {"name": "mobile"}]
		}`))
	})

	tk, err := client.Get(context.Background(), "acme/mobile#42")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if gotPath != "/api/v3/repos/acme/mobile/issues/42" {
		t.Errorf("path = %s, want /api/v3/repos/acme/mobile/issues/42", gotPath)
	}
	if tk.ID != "acme/mobile#42" {
		t.Errorf("ID = %q", tk.ID)
	}
	if tk.Title != "Crash on startup" {
		t.Errorf("Title = %q", tk.Title)
	}
	if tk.Status != "open" {
		t.Errorf("Status = %q, want open", tk.Status)
	}
	if tk.Project != "acme/mobile" {
		t.Errorf("Project = %q, want acme/mobile", tk.Project)
	}
	if len(tk.Labels) != 2 || tk.Labels[0] != "bug" {
		t.Errorf("Labels = %v", tk.Labels)
	}
}

func TestClient_GetNotFound(t *testing.T) {
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Not Found"}`))
	})

	_, err := client.Get(context.Background(), "acme/mobile#404")
	if err == nil {
		t.Fatal("Get() expected error, got nil")
	}
	if !ticket.IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false, want true", err)
	}
}

func TestClient_ServerErrorIsTransient(t *testing.T) {
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Create(context.Background(), ticket.CreateRequest{
		Project: "acme/mobile",
		Title:   "Crash on startup",
	})
	if err == nil {
		t.Fatal("Create() expected error, got nil")
	}
	if !ticket.IsTransient(err) {
		t.Errorf("IsTransient(%v) = false, want true", err)
	}
}

func TestNewClient_NoToken(t *testing.T) {
	if _, err := NewClient(Config{}); !errors.Is(err, ErrTokenRequired) {
		t.Errorf("NewClient(Config{}) error = %v, want ErrTokenRequired", err)
	}
}
