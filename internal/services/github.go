package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/desertthunder/plstat/internal/shared"
	"golang.org/x/oauth2"
)

// DefaultGitHubAPI is the public REST endpoint.
const DefaultGitHubAPI = "https://api.github.com"

// GitHubService triggers workflow runs through the REST API.
type GitHubService struct {
	api   *APIService
	owner string
	repo  string
}

// NewGitHubService creates a client authenticated with a static token.
//
// base, when non-nil, is the transport under the oauth2 layer.
func NewGitHubService(ctx context.Context, apiURL, owner, repo, token string, base *http.Client) (*GitHubService, error) {
	if token == "" {
		return nil, shared.ErrMissingToken
	}
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("%w: repository owner and name are required", shared.ErrInvalidConfig)
	}
	if apiURL == "" {
		apiURL = DefaultGitHubAPI
	}
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))

	api := NewAPIService(apiURL, client)
	api.SetHeader("Accept", "application/vnd.github+json")
	api.SetHeader("X-GitHub-Api-Version", "2022-11-28")
	return &GitHubService{api: api, owner: owner, repo: repo}, nil
}

type dispatchRequest struct {
	Ref    string            `json:"ref"`
	Inputs map[string]string `json:"inputs,omitempty"`
}

// DispatchWorkflow starts workflow on ref with the force_update input.
func (g *GitHubService) DispatchWorkflow(ctx context.Context, workflow, ref string, force bool) error {
	if workflow == "" {
		return fmt.Errorf("%w: workflow", shared.ErrMissingArgument)
	}
	body, err := json.Marshal(dispatchRequest{
		Ref:    ref,
		Inputs: map[string]string{"force_update": strconv.FormatBool(force)},
	})
	if err != nil {
		return fmt.Errorf("failed to encode dispatch request: %w", err)
	}

	path := fmt.Sprintf("/repos/%s/%s/actions/workflows/%s/dispatches",
		url.PathEscape(g.owner), url.PathEscape(g.repo), url.PathEscape(workflow))
	resp, err := g.api.Post(ctx, path, body)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: dispatch returned status %d: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}
	return nil
}
