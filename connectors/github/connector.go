// Package github is the builtin GitHub connector. It records the repository
// inventory of an organization, or of the token owner, as evidence.
package github

import (
	"context"
	"fmt"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/goliatone/go-integrations/core"
)

const (
	ConnectorType  = "github"
	defaultTimeout = 30 * time.Second
	defaultPerPage = 100
	defaultMaxPage = 50
)

type ClientFactory func(ctx context.Context, cfg core.GitHubConnectorConfig) (*gh.Client, error)

type Option func(*Connector)

func WithClientFactory(factory ClientFactory) Option {
	return func(c *Connector) {
		if factory != nil {
			c.newClient = factory
		}
	}
}

// WithMaxPages caps how many result pages one sync walks.
func WithMaxPages(pages int) Option {
	return func(c *Connector) {
		if pages > 0 {
			c.maxPages = pages
		}
	}
}

type Connector struct {
	newClient ClientFactory
	maxPages  int
}

func New(opts ...Option) *Connector {
	connector := &Connector{newClient: NewClient, maxPages: defaultMaxPage}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(connector)
	}
	return connector
}

func (*Connector) Type() string { return ConnectorType }

func (c *Connector) Sync(ctx context.Context, req core.ConnectorRequest) (core.SyncResult, error) {
	cfg, ok := req.Config.(core.GitHubConnectorConfig)
	if !ok {
		return core.SyncResult{}, core.ConfigurationError(
			fmt.Sprintf("github: unexpected connector config %T", req.Config),
			map[string]any{"integration_id": req.Integration.ID},
		)
	}
	client, err := c.newClient(ctx, cfg)
	if err != nil {
		return core.SyncResult{}, core.ConfigurationError("github: client setup failed: "+err.Error(), nil)
	}

	repos, pages, err := c.listRepositories(ctx, client, strings.TrimSpace(cfg.Organization))
	if err != nil {
		return core.SyncResult{}, err
	}

	inventory := make([]map[string]any, 0, len(repos))
	for _, repo := range repos {
		entry := map[string]any{
			"name":          repo.GetName(),
			"fullName":      repo.GetFullName(),
			"private":       repo.GetPrivate(),
			"archived":      repo.GetArchived(),
			"fork":          repo.GetFork(),
			"visibility":    repo.GetVisibility(),
			"defaultBranch": repo.GetDefaultBranch(),
		}
		if pushed := repo.GetPushedAt(); !pushed.IsZero() {
			entry["pushedAt"] = pushed.Format(time.RFC3339)
		}
		inventory = append(inventory, entry)
	}

	owner := cfg.Organization
	if owner == "" {
		owner = "authenticated user"
	}
	return core.SyncResult{
		Evidence: []core.EvidenceItem{{
			Title:       "GitHub repositories",
			Description: fmt.Sprintf("Repository inventory for %s", owner),
			Type:        "github_repositories",
			Data: map[string]any{
				"organization": cfg.Organization,
				"repositories": inventory,
			},
		}},
		Logs: []string{fmt.Sprintf("github: listed %d repositories across %d pages", len(repos), pages)},
	}, nil
}

func (c *Connector) listRepositories(ctx context.Context, client *gh.Client, org string) ([]*gh.Repository, int, error) {
	var (
		all   []*gh.Repository
		page  = 1
		pages int
	)
	for pages < c.maxPages {
		if err := ctx.Err(); err != nil {
			return nil, pages, core.ExecutionError(err, "github: listing cancelled", nil)
		}
		listOpts := gh.ListOptions{PerPage: defaultPerPage, Page: page}
		var (
			repos []*gh.Repository
			resp  *gh.Response
			err   error
		)
		if org != "" {
			repos, resp, err = client.Repositories.ListByOrg(ctx, org, &gh.RepositoryListByOrgOptions{
				Type:        "all",
				ListOptions: listOpts,
			})
		} else {
			repos, resp, err = client.Repositories.ListByAuthenticatedUser(ctx, &gh.RepositoryListByAuthenticatedUserOptions{
				Visibility:  "all",
				ListOptions: listOpts,
			})
		}
		pages++
		if err != nil {
			meta := map[string]any{"organization": org, "page": page}
			if resp != nil {
				meta["status"] = resp.StatusCode
			}
			return nil, pages, core.TransportError(err, "github: list repositories failed", meta)
		}
		all = append(all, repos...)
		if resp == nil || resp.NextPage == 0 {
			break
		}
		page = resp.NextPage
	}
	return all, pages, nil
}

// NewClient builds a token-authenticated client. BaseURL selects a GitHub
// Enterprise server.
func NewClient(ctx context.Context, cfg core.GitHubConnectorConfig) (*gh.Client, error) {
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}))
	httpClient.Timeout = defaultTimeout
	client := gh.NewClient(httpClient)

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" || strings.HasPrefix(baseURL, "https://api.github.com") {
		return client, nil
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	enterprise, err := client.WithEnterpriseURLs(baseURL, baseURL)
	if err != nil {
		return nil, fmt.Errorf("github: base url %q is invalid: %w", cfg.BaseURL, err)
	}
	return enterprise, nil
}

var _ core.Connector = (*Connector)(nil)
