// Package github turns GitHub repository data into raw measurements.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	gh "github.com/google/go-github/v83/github"
	"github.com/mchmarny/healthscore/pkg/measurement"
	"github.com/mchmarny/reputer/pkg/score"
)

const (
	SignedCommitsType         = "signed_commits"
	ContributorReputationType = "contributor_reputation"

	pageSizeDefault     = 100
	commitLimitDefault  = 100
	contributorLimitMax = 500
	hoursPerDay         = 24
	percent             = 100
	repoURLFormat       = "https://github.com/%s/%s"
)

var errInvalidRepo = errors.New("owner and repo required")

// Client wraps the go-github client for a single repository.
type Client struct {
	gh    *gh.Client
	owner string
	repo  string
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New returns an adapter for owner/repo.
func New(client *gh.Client, owner, repo string) (*Client, error) {
	if client == nil {
		return nil, errors.New("github client required")
	}
	if owner == "" || repo == "" {
		return nil, errInvalidRepo
	}
	return &Client{gh: client, owner: owner, repo: repo, now: time.Now, sleep: sleepContext}, nil
}

func (c *Client) origin() string {
	return fmt.Sprintf(repoURLFormat, c.owner, c.repo)
}

// Collect returns all measurements the adapter knows how to produce.
func (c *Client) Collect(ctx context.Context, limit int) ([]*measurement.Measurement, error) {
	signed, err := c.CommitSigning(ctx, limit)
	if err != nil {
		return nil, err
	}
	rep, err := c.ContributorReputation(ctx, limit)
	if err != nil {
		return nil, err
	}
	return []*measurement.Measurement{signed, rep}, nil
}

// CommitSigning reports the percentage of the last limit commits with a
// verified signature.
func (c *Client) CommitSigning(ctx context.Context, limit int) (*measurement.Measurement, error) {
	commits, err := c.listCommits(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(commits) == 0 {
		return nil, fmt.Errorf("no commits found in %s/%s", c.owner, c.repo)
	}

	var verified int
	for _, rc := range commits {
		if rc.GetCommit().GetVerification().GetVerified() {
			verified++
		}
	}

	slog.Debug("commit signing",
		"repo", c.repo,
		"commits", len(commits),
		"verified", verified)

	return &measurement.Measurement{
		Type:     SignedCommitsType,
		Score:    ratio(verified, len(commits)),
		OriginID: c.origin(),
	}, nil
}

// ContributorReputation scores each contributor with the reputation model
// using repository-local signals and returns the commit-weighted mean.
func (c *Client) ContributorReputation(ctx context.Context, limit int) (*measurement.Measurement, error) {
	contributors, err := c.listContributors(ctx)
	if err != nil {
		return nil, err
	}
	if len(contributors) == 0 {
		return nil, fmt.Errorf("no contributors found in %s/%s", c.owner, c.repo)
	}

	commits, err := c.listCommits(ctx, limit)
	if err != nil {
		return nil, err
	}

	type activity struct {
		unverified int64
		last       time.Time
	}
	recent := make(map[string]*activity)
	for _, rc := range commits {
		login := rc.GetAuthor().GetLogin()
		if login == "" {
			continue
		}
		a, ok := recent[login]
		if !ok {
			a = &activity{}
			recent[login] = a
		}
		if !rc.GetCommit().GetVerification().GetVerified() {
			a.unverified++
		}
		if d := rc.GetCommit().GetAuthor().GetDate().Time; d.After(a.last) {
			a.last = d
		}
	}

	var total int64
	for _, u := range contributors {
		total += int64(u.GetContributions())
	}

	now := c.now()
	var sum, weights float64
	for _, u := range contributors {
		s := score.Signals{
			Commits:           int64(u.GetContributions()),
			TotalCommits:      total,
			TotalContributors: len(contributors),
		}
		if a, ok := recent[u.GetLogin()]; ok {
			s.UnverifiedCommits = a.unverified
			if !a.last.IsZero() {
				s.LastCommitDays = int64(now.Sub(a.last).Hours() / hoursPerDay)
			}
		}
		w := float64(s.Commits)
		sum += score.Compute(s) * w
		weights += w
	}

	if weights == 0 {
		return nil, fmt.Errorf("no contributions found in %s/%s", c.owner, c.repo)
	}

	v := int(math.Round(sum / weights * percent))
	slog.Debug("contributor reputation",
		"repo", c.repo,
		"contributors", len(contributors),
		"score", v)

	return &measurement.Measurement{
		Type:     ContributorReputationType,
		Score:    v,
		OriginID: c.origin(),
	}, nil
}

func (c *Client) listCommits(ctx context.Context, limit int) ([]*gh.RepositoryCommit, error) {
	if limit <= 0 {
		limit = commitLimitDefault
	}

	opt := &gh.CommitsListOptions{
		ListOptions: gh.ListOptions{PerPage: min(limit, pageSizeDefault)},
	}

	list := make([]*gh.RepositoryCommit, 0, limit)
	for len(list) < limit {
		items, resp, err := c.gh.Repositories.ListCommits(ctx, c.owner, c.repo, opt)
		if err != nil {
			return nil, fmt.Errorf("error listing commits for %s/%s: %w", c.owner, c.repo, err)
		}
		list = append(list, items...)
		if err := c.checkRateLimit(ctx, resp); err != nil {
			return nil, fmt.Errorf("waiting for rate limit reset: %w", err)
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (c *Client) listContributors(ctx context.Context) ([]*gh.Contributor, error) {
	opt := &gh.ListContributorsOptions{
		ListOptions: gh.ListOptions{PerPage: pageSizeDefault},
	}

	list := make([]*gh.Contributor, 0)
	for len(list) < contributorLimitMax {
		items, resp, err := c.gh.Repositories.ListContributors(ctx, c.owner, c.repo, opt)
		if err != nil {
			return nil, fmt.Errorf("error listing contributors for %s/%s: %w", c.owner, c.repo, err)
		}
		list = append(list, items...)
		if err := c.checkRateLimit(ctx, resp); err != nil {
			return nil, fmt.Errorf("waiting for rate limit reset: %w", err)
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}
	return list, nil
}

func ratio(n, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(n) / float64(total) * percent))
}
