package ghclient

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/huangsam/prstats/internal/contract"
	"github.com/huangsam/prstats/schema"
)

// Collector fans repositories out over a bounded number of workers, one repository per worker.
type Collector struct {
	provider   contract.PRProvider
	maxWorkers int
}

var _ contract.PRCollector = &Collector{} // Compile-time check

// NewCollector returns a Collector using provider with at most maxWorkers concurrent repositories.
func NewCollector(provider contract.PRProvider, maxWorkers int) *Collector {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Collector{provider: provider, maxWorkers: maxWorkers}
}

// Collect returns the pull requests of every repository created inside window. The first
// failing repository cancels the others and its error is returned.
func (c *Collector) Collect(ctx context.Context, repos []string, window schema.ActivityWindow) (map[string][]schema.PullRequest, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxWorkers)

	var mu sync.Mutex
	out := make(map[string][]schema.PullRequest, len(repos))
	for _, repo := range repos {
		g.Go(func() error {
			prs, err := c.provider.CollectRepository(ctx, repo, window)
			if err != nil {
				return fmt.Errorf("collecting %s: %w", repo, err)
			}
			mu.Lock()
			out[repo] = prs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
