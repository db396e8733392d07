package ghclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"

	"github.com/huangsam/prstats/internal/contract"
	"github.com/huangsam/prstats/schema"
)

// perPage is the page size for every list call.
const perPage = 100

// Provider collects pull requests of one repository at a time through the REST API.
type Provider struct {
	client        *github.Client
	baseURL       string
	retryInterval time.Duration
}

var _ contract.PRProvider = &Provider{} // Compile-time check

// NewProvider wraps a go-github client. baseURL identifies the API in cache keys.
func NewProvider(client *github.Client, baseURL string) *Provider {
	return &Provider{client: client, baseURL: baseURL, retryInterval: time.Second}
}

// BaseURL implements the PRProvider interface.
func (p *Provider) BaseURL() string {
	return p.baseURL
}

// CollectRepository implements the PRProvider interface. Pull requests are listed newest
// first and listing stops at the first one created before window.Since.
func (p *Provider) CollectRepository(ctx context.Context, repo string, window schema.ActivityWindow) ([]schema.PullRequest, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok {
		return nil, fmt.Errorf("invalid repository %q, expected owner/repo", repo)
	}

	listed, err := p.listPullRequests(ctx, owner, name, window)
	if err != nil {
		return nil, fmt.Errorf("listing pull requests of %s: %w", repo, err)
	}
	contract.Logger.Debugf("%s: %d pull requests in window", repo, len(listed))

	out := make([]schema.PullRequest, 0, len(listed))
	for _, number := range listed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pr, err := p.fetchPullRequest(ctx, owner, name, number)
		if err != nil {
			return nil, fmt.Errorf("%s#%d: %w", repo, number, err)
		}
		pr.Repository = repo
		out = append(out, pr)
	}
	return out, nil
}

func (p *Provider) listPullRequests(ctx context.Context, owner, name string, window schema.ActivityWindow) ([]int, error) {
	opts := &github.PullRequestListOptions{
		State:       "all",
		Sort:        "created",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var numbers []int
	for {
		var (
			page []*github.PullRequest
			resp *github.Response
		)
		err := p.withRetry(ctx, "list pull requests", func() (*github.Response, error) {
			var err error
			page, resp, err = p.client.PullRequests.List(ctx, owner, name, opts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		for _, pr := range page {
			created := pr.GetCreatedAt().Time
			if window.Since != nil && created.Before(*window.Since) {
				return numbers, nil
			}
			if window.Contains(created) {
				numbers = append(numbers, pr.GetNumber())
			}
		}

		if resp == nil || resp.NextPage == 0 {
			return numbers, nil
		}
		opts.Page = resp.NextPage
	}
}

// fetchPullRequest assembles one complete record. A failing timeline call degrades the
// record instead of failing it.
func (p *Provider) fetchPullRequest(ctx context.Context, owner, name string, number int) (schema.PullRequest, error) {
	var gh *github.PullRequest
	err := p.withRetry(ctx, "get pull request", func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		gh, resp, err = p.client.PullRequests.Get(ctx, owner, name, number)
		return resp, err
	})
	if err != nil {
		return schema.PullRequest{}, err
	}
	pr := convertPullRequest(gh)

	commits, err := paginate(ctx, p, "list commits", func(opts github.ListOptions) ([]*github.RepositoryCommit, *github.Response, error) {
		return p.client.PullRequests.ListCommits(ctx, owner, name, number, &opts)
	})
	if err != nil {
		return schema.PullRequest{}, err
	}
	for _, c := range commits {
		pr.Commits = append(pr.Commits, convertCommit(c))
	}

	reviews, err := paginate(ctx, p, "list reviews", func(opts github.ListOptions) ([]*github.PullRequestReview, *github.Response, error) {
		return p.client.PullRequests.ListReviews(ctx, owner, name, number, &opts)
	})
	if err != nil {
		return schema.PullRequest{}, err
	}
	for _, r := range reviews {
		if ev, ok := convertReview(r); ok {
			pr.Reviews = append(pr.Reviews, ev)
		}
	}

	reviewComments, err := paginate(ctx, p, "list review comments", func(opts github.ListOptions) ([]*github.PullRequestComment, *github.Response, error) {
		return p.client.PullRequests.ListComments(ctx, owner, name, number, &github.PullRequestListCommentsOptions{ListOptions: opts})
	})
	if err != nil {
		return schema.PullRequest{}, err
	}
	for _, c := range reviewComments {
		pr.Comments = append(pr.Comments, schema.CommentInfo{
			Author:     c.GetUser().GetLogin(),
			CreatedAt:  c.GetCreatedAt().Time,
			BodyLength: len(c.GetBody()),
			Kind:       schema.ReviewComment,
		})
	}

	issueComments, err := paginate(ctx, p, "list issue comments", func(opts github.ListOptions) ([]*github.IssueComment, *github.Response, error) {
		return p.client.Issues.ListComments(ctx, owner, name, number, &github.IssueListCommentsOptions{ListOptions: opts})
	})
	if err != nil {
		return schema.PullRequest{}, err
	}
	for _, c := range issueComments {
		pr.Comments = append(pr.Comments, schema.CommentInfo{
			Author:     c.GetUser().GetLogin(),
			CreatedAt:  c.GetCreatedAt().Time,
			BodyLength: len(c.GetBody()),
			Kind:       schema.IssueComment,
		})
	}

	timeline, err := paginate(ctx, p, "list timeline", func(opts github.ListOptions) ([]*github.Timeline, *github.Response, error) {
		return p.client.Issues.ListIssueTimeline(ctx, owner, name, number, &opts)
	})
	if err != nil {
		if ctx.Err() != nil {
			return schema.PullRequest{}, ctx.Err()
		}
		contract.Logger.WithError(err).Warnf("%s/%s#%d: timeline unavailable", owner, name, number)
		pr.TimelineUnavailable = true
		return pr, nil
	}
	applyTimeline(&pr, timeline)
	return pr, nil
}

// paginate follows NextPage until the last page.
func paginate[T any](ctx context.Context, p *Provider, what string, fetch func(github.ListOptions) ([]T, *github.Response, error)) ([]T, error) {
	opts := github.ListOptions{PerPage: perPage}
	var all []T
	for {
		var (
			page []T
			resp *github.Response
		)
		err := p.withRetry(ctx, what, func() (*github.Response, error) {
			var err error
			page, resp, err = fetch(opts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if resp == nil || resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}
