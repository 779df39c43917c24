package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"
	"time"

	gh "ghauditor/internal/github"
	"ghauditor/internal/snapshot"
)

func newTestClient(t *testing.T, server *httptest.Server) *gh.Client {
	t.Helper()
	client, err := gh.NewClient(context.Background(), "dummy")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	base, _ := url.Parse(server.URL + "/")
	client.Client.BaseURL = base
	client.Client.UploadURL = base
	return client
}

func newTestProvider(t *testing.T, client *gh.Client, opts ...Option) *Provider {
	t.Helper()
	p, err := New(client, NewRequestBudget(), opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p
}

func TestProvider_Fetch(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	recent := time.Now().Add(-1 * time.Hour).UTC().Format(time.RFC3339)
	stale := time.Now().Add(-120 * 24 * time.Hour).UTC().Format(time.RFC3339)

	mux.HandleFunc("/orgs/acme", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "4000")
		fmt.Fprint(w, `{"login":"acme","two_factor_requirement_enabled":true}`)
	})
	mux.HandleFunc("/orgs/acme/members", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("role") {
		case "admin":
			fmt.Fprint(w, `[{"login":"alice"},{"login":"dave"},{"login":"erin"}]`)
		case "all":
			fmt.Fprint(w, `[{"login":"alice"},{"login":"bob"},{"login":"carol"},{"login":"dave"},{"login":"erin"}]`)
		default:
			t.Errorf("unexpected role query %q", r.URL.Query().Get("role"))
			http.Error(w, "bad role", http.StatusBadRequest)
		}
	})
	// alice pushed recently, erin only pushed long ago, dave's account is gone.
	mux.HandleFunc("/users/alice/events", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[{"type":"WatchEvent","created_at":"%s"},{"type":"PushEvent","created_at":"%s"}]`, recent, recent)
	})
	mux.HandleFunc("/users/erin/events", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[{"type":"PushEvent","created_at":"%s"},{"type":"WatchEvent","created_at":"%s"}]`, stale, recent)
	})
	mux.HandleFunc("/users/dave/events", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})
	// Non-administrative members must not be hydrated.
	mux.HandleFunc("/users/bob/events", func(w http.ResponseWriter, r *http.Request) {
		t.Error("events fetched for non-administrative member bob")
	})
	mux.HandleFunc("/users/carol/events", func(w http.ResponseWriter, r *http.Request) {
		t.Error("events fetched for non-administrative member carol")
	})
	mux.HandleFunc("/orgs/acme/repos", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"name":"web","default_branch":"main"},
			{"name":"api","default_branch":"trunk"},
			{"name":"empty","default_branch":""},
			{"name":"tool","default_branch":"main"}
		]`)
	})
	mux.HandleFunc("/repos/acme/web/branches/main", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name":"main","protected":true}`)
	})
	// Renamed default branch: protection state is unverifiable, not a finding.
	mux.HandleFunc("/repos/acme/api/branches/trunk", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Branch not found"}`, http.StatusNotFound)
	})
	mux.HandleFunc("/repos/acme/tool/branches/main", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name":"main","protected":false}`)
	})

	p := newTestProvider(t, newTestClient(t, server))
	snap, err := p.Fetch(context.Background(), "acme")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if snap.Org != "acme" {
		t.Errorf("Org = %q", snap.Org)
	}
	if !snap.RequiresTwoFactor {
		t.Error("RequiresTwoFactor = false, want true")
	}

	wantMembers := []snapshot.Member{
		{Login: "alice", Role: snapshot.RoleAdmin, HasRecentPushActivity: true},
		{Login: "bob", Role: snapshot.RoleMember},
		{Login: "carol", Role: snapshot.RoleMember},
		{Login: "dave", Role: snapshot.RoleAdmin},
		{Login: "erin", Role: snapshot.RoleAdmin},
	}
	if !reflect.DeepEqual(snap.Members, wantMembers) {
		t.Errorf("Members = %+v\nwant %+v", snap.Members, wantMembers)
	}

	wantRepos := []snapshot.Repository{
		{Name: "web", DefaultBranch: "main", DefaultBranchProtected: true},
		{Name: "api", DefaultBranch: "trunk", DefaultBranchProtected: true},
		{Name: "empty", DefaultBranch: "", DefaultBranchProtected: true},
		{Name: "tool", DefaultBranch: "main", DefaultBranchProtected: false},
	}
	if !reflect.DeepEqual(snap.Repositories, wantRepos) {
		t.Errorf("Repositories = %+v\nwant %+v", snap.Repositories, wantRepos)
	}
}

func TestProvider_Fetch_OrgNotFound(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/orgs/ghost", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})

	p := newTestProvider(t, newTestClient(t, server))
	_, err := p.Fetch(context.Background(), "ghost")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := KindOf(err); got != KindNotFound {
		t.Errorf("KindOf = %q, want %q", got, KindNotFound)
	}
}

func TestProvider_Fetch_Unauthorized(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/orgs/acme", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
	})

	p := newTestProvider(t, newTestClient(t, server))
	_, err := p.Fetch(context.Background(), "acme")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := KindOf(err); got != KindUnauthorized {
		t.Errorf("KindOf = %q, want %q", got, KindUnauthorized)
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error is %T, want *FetchError", err)
	}
	if fe.Retryable() {
		t.Error("unauthorized must not be retryable")
	}
}

func TestProvider_Fetch_MemberListingFailureAborts(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/orgs/acme", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"login":"acme","two_factor_requirement_enabled":true}`)
	})
	mux.HandleFunc("/orgs/acme/members", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"server error"}`, http.StatusInternalServerError)
	})

	p := newTestProvider(t, newTestClient(t, server))
	snap, err := p.Fetch(context.Background(), "acme")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := KindOf(err); got != KindTransient {
		t.Errorf("KindOf = %q, want %q", got, KindTransient)
	}
	if !reflect.DeepEqual(snap, snapshot.Snapshot{}) {
		t.Errorf("partial snapshot returned: %+v", snap)
	}
}

func TestProvider_Fetch_ArgumentValidation(t *testing.T) {
	server := httptest.NewServer(http.NewServeMux())
	defer server.Close()

	p := newTestProvider(t, newTestClient(t, server))

	var nilCtx context.Context
	if _, err := p.Fetch(nilCtx, "acme"); err == nil {
		t.Error("expected error for nil context")
	}
	if _, err := p.Fetch(context.Background(), "  "); err == nil {
		t.Error("expected error for blank organisation")
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, NewRequestBudget()); err == nil {
		t.Error("expected error for nil client")
	}
	if _, err := New(&gh.Client{}, NewRequestBudget()); err == nil {
		t.Error("expected error for client without API handle")
	}

	server := httptest.NewServer(http.NewServeMux())
	defer server.Close()
	if _, err := New(newTestClient(t, server), nil); err == nil {
		t.Error("expected error for nil budget")
	}
}

func TestProvider_ActivityWindowOption(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	// Push happened 10 days ago; a 5-day window must not count it.
	pushed := time.Now().Add(-10 * 24 * time.Hour).UTC().Format(time.RFC3339)

	mux.HandleFunc("/orgs/acme", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"login":"acme","two_factor_requirement_enabled":true}`)
	})
	mux.HandleFunc("/orgs/acme/members", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"login":"alice"}]`)
	})
	mux.HandleFunc("/users/alice/events", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[{"type":"PushEvent","created_at":"%s"}]`, pushed)
	})
	mux.HandleFunc("/orgs/acme/repos", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})

	p := newTestProvider(t, newTestClient(t, server), WithActivityWindow(5*24*time.Hour))
	snap, err := p.Fetch(context.Background(), "acme")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if snap.Members[0].HasRecentPushActivity {
		t.Error("push outside the activity window counted as recent")
	}
}
