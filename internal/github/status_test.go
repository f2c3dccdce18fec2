package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"refgate/internal/commitstatus"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *StatusClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewStatusClient("test-token", srv.URL, 100)
	if err != nil {
		t.Fatalf("NewStatusClient failed: %v", err)
	}
	return client
}

func TestStatusClient_GetStatus(t *testing.T) {
	var gotPath, gotAuth, gotPerPage string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotPerPage = r.URL.Query().Get("per_page")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"state": "pending",
			"statuses": [
				{"state": "success", "description": "Build passed", "context": "ci/build",
				 "target_url": "https://ci.example.com/1", "updated_at": "2026-03-01T11:50:00Z"},
				{"state": "pending", "description": "Tests running", "context": "ci/test"}
			]
		}`)
	})

	result, err := client.GetStatus(context.Background(), "acme/shop", "v4.2")
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}

	if gotPath != "/repos/acme/shop/commits/v4.2/status" {
		t.Errorf("Unexpected request path %q", gotPath)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Expected bearer token, got %q", gotAuth)
	}
	if gotPerPage != "100" {
		t.Errorf("Expected per_page=100, got %q", gotPerPage)
	}

	if result.State != commitstatus.StatePending {
		t.Errorf("Expected pending, got %q", result.State)
	}
	if len(result.Statuses) != 2 {
		t.Fatalf("Expected 2 statuses, got %d", len(result.Statuses))
	}

	first := result.Statuses[0]
	if first.State != "success" || first.Context != "ci/build" || first.Description != "Build passed" || first.TargetURL != "https://ci.example.com/1" {
		t.Errorf("Unexpected first status: %+v", first)
	}
	expected := time.Date(2026, 3, 1, 11, 50, 0, 0, time.UTC)
	if first.UpdatedAt == nil || !first.UpdatedAt.Equal(expected) {
		t.Errorf("Expected updated_at %v, got %v", expected, first.UpdatedAt)
	}
	if result.Statuses[1].UpdatedAt != nil {
		t.Error("Expected missing updated_at to stay nil")
	}
}

func TestStatusClient_EmptyStatuses(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"state": "pending", "statuses": []}`)
	})

	result, err := client.GetStatus(context.Background(), "acme/shop", "master")
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if len(result.Statuses) != 0 {
		t.Errorf("Expected no statuses, got %+v", result.Statuses)
	}
}

func TestStatusClient_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "No commit found for SHA: nope"}`)
	})

	_, err := client.GetStatus(context.Background(), "acme/shop", "nope")
	if !errors.Is(err, commitstatus.ErrReferenceNotFound) {
		t.Fatalf("Expected ErrReferenceNotFound, got %v", err)
	}
}

func TestStatusClient_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.GetStatus(context.Background(), "acme/shop", "v4.2")
	if err == nil {
		t.Fatal("Expected error on 500")
	}
	if errors.Is(err, commitstatus.ErrReferenceNotFound) {
		t.Error("A server error must not look like a missing reference")
	}
}

func TestStatusClient_InvalidRepository(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	if _, err := client.GetStatus(context.Background(), "not-a-repo", "v1"); err == nil {
		t.Fatal("Expected error for malformed repository path")
	}
}

func TestStatusClient_CancelledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"state": "success", "statuses": []}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.GetStatus(ctx, "acme/shop", "v1"); err == nil {
		t.Fatal("Expected error for cancelled context")
	}
}

func TestNewStatusClient_InvalidURL(t *testing.T) {
	if _, err := NewStatusClient("", "://bad", 1); err == nil {
		t.Fatal("Expected error for invalid API URL")
	}
}
