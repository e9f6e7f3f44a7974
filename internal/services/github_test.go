package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/plstat/internal/shared"
)

func TestGitHubService(t *testing.T) {
	ctx := context.Background()

	t.Run("DispatchWorkflow", func(t *testing.T) {
		t.Run("Posts Inputs With Bearer Token", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				if r.URL.Path != "/repos/owner/repo/actions/workflows/update-stats.yml/dispatches" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer tok" {
					t.Errorf("expected bearer token, got %q", got)
				}

				body, _ := io.ReadAll(r.Body)
				var req dispatchRequest
				if err := json.Unmarshal(body, &req); err != nil {
					t.Fatalf("failed to decode body: %v", err)
				}
				if req.Ref != "main" || req.Inputs["force_update"] != "true" {
					t.Errorf("unexpected request %+v", req)
				}
				w.WriteHeader(http.StatusNoContent)
			}))
			defer server.Close()

			gh, err := NewGitHubService(ctx, server.URL, "owner", "repo", "tok", server.Client())
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if err := gh.DispatchWorkflow(ctx, "update-stats.yml", "main", true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})

		t.Run("Unexpected Status", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`{"message":"Not Found"}`))
			}))
			defer server.Close()

			gh, _ := NewGitHubService(ctx, server.URL, "owner", "repo", "tok", server.Client())
			err := gh.DispatchWorkflow(ctx, "update-stats.yml", "main", false)
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})

		t.Run("Missing Workflow", func(t *testing.T) {
			gh, _ := NewGitHubService(ctx, "http://example.com", "owner", "repo", "tok", nil)
			if err := gh.DispatchWorkflow(ctx, "", "main", false); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})
	})

	t.Run("New", func(t *testing.T) {
		if _, err := NewGitHubService(ctx, "", "o", "r", "", nil); !errors.Is(err, shared.ErrMissingToken) {
			t.Errorf("expected ErrMissingToken, got %v", err)
		}
		if _, err := NewGitHubService(ctx, "", "", "r", "tok", nil); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
		gh, err := NewGitHubService(ctx, "", "o", "r", "tok", nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gh.api.baseURL != DefaultGitHubAPI {
			t.Errorf("expected default API URL, got %s", gh.api.baseURL)
		}
	})
}
