// Package github reads combined commit statuses from the GitHub API.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"refgate/internal/commitstatus"
	"refgate/internal/project"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// MaxStatusesPerPage is the largest page GitHub serves for combined statuses
const MaxStatusesPerPage = 100

// StatusClient implements commitstatus.StatusProvider on top of
// GET /repos/{owner}/{repo}/commits/{ref}/status
type StatusClient struct {
	client  *github.Client
	limiter *rate.Limiter
}

// NewStatusClient creates a client. An empty token makes unauthenticated
// requests; apiURL (optional) points at a GitHub Enterprise API root.
// requestsPerSecond throttles calls made by this process.
func NewStatusClient(token, apiURL string, requestsPerSecond float64) (*StatusClient, error) {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	client := github.NewClient(httpClient)
	if apiURL != "" {
		baseURL, err := url.Parse(strings.TrimSuffix(apiURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", apiURL, err)
		}
		client.BaseURL = baseURL
	}

	return NewStatusClientWith(client, requestsPerSecond), nil
}

// NewStatusClientWith wraps an existing go-github client
func NewStatusClientWith(client *github.Client, requestsPerSecond float64) *StatusClient {
	burst := int(requestsPerSecond)
	if burst < 1 {
		burst = 1
	}

	return &StatusClient{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// GetStatus returns the combined status of reference. A 404 maps to
// commitstatus.ErrReferenceNotFound.
func (c *StatusClient) GetStatus(ctx context.Context, repositoryPath, reference string) (*commitstatus.Result, error) {
	owner, repo, err := project.SplitRepository(repositoryPath)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for GitHub rate limiter: %w", err)
	}

	combined, resp, err := c.client.Repositories.GetCombinedStatus(ctx, owner, repo, reference,
		&github.ListOptions{PerPage: MaxStatusesPerPage})
	if err != nil {
		var errResp *github.ErrorResponse
		if (resp != nil && resp.StatusCode == http.StatusNotFound) ||
			(errors.As(err, &errResp) && errResp.Response != nil && errResp.Response.StatusCode == http.StatusNotFound) {
			return nil, fmt.Errorf("%s@%s: %w", repositoryPath, reference, commitstatus.ErrReferenceNotFound)
		}
		return nil, fmt.Errorf("getting combined status of %s@%s: %w", repositoryPath, reference, err)
	}

	result := &commitstatus.Result{
		State:    combined.GetState(),
		Statuses: make([]commitstatus.Status, 0, len(combined.Statuses)),
	}

	for _, status := range combined.Statuses {
		entry := commitstatus.Status{
			State:       status.GetState(),
			Description: status.GetDescription(),
			Context:     status.GetContext(),
			TargetURL:   status.GetTargetURL(),
		}
		if status.UpdatedAt != nil {
			updatedAt := status.UpdatedAt.Time
			entry.UpdatedAt = &updatedAt
		}
		result.Statuses = append(result.Statuses, entry)
	}

	return result, nil
}
