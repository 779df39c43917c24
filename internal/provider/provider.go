package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	gh "ghauditor/internal/github"
	"ghauditor/internal/snapshot"

	"github.com/google/go-github/v81/github"
	"golang.org/x/sync/errgroup"
)

const (
	defaultConcurrency    = 5
	defaultActivityWindow = 90 * 24 * time.Hour
	pageSize              = 100
)

// Provider captures an immutable organisation snapshot from the GitHub API.
// It is the only component that performs I/O; the audit engine consumes the
// snapshot as a synchronous precondition.
type Provider struct {
	client         *gh.Client
	budget         *RequestBudget
	concurrency    int
	activityWindow time.Duration
	now            func() time.Time
}

type Option func(*Provider)

// WithConcurrency bounds concurrent per-member and per-repository hydration.
func WithConcurrency(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithActivityWindow sets how far back push activity counts as recent.
// The events API only retains roughly 90 days, which is also the default.
func WithActivityWindow(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.activityWindow = d
		}
	}
}

func New(client *gh.Client, budget *RequestBudget, opts ...Option) (*Provider, error) {
	if client == nil || client.Client == nil {
		return nil, fmt.Errorf("provider: nil GitHub client")
	}
	if budget == nil {
		return nil, fmt.Errorf("provider: nil request budget")
	}
	p := &Provider{
		client:         client,
		budget:         budget,
		concurrency:    defaultConcurrency,
		activityWindow: defaultActivityWindow,
		now:            time.Now,
	}
	for _, apply := range opts {
		if apply != nil {
			apply(p)
		}
	}
	return p, nil
}

// Fetch captures the organisation snapshot: settings, member roster with
// roles and push activity, and repository branch-protection state.
//
// Member and repository order follows GitHub's listing order and is fixed at
// capture time, so repeated audits of the same snapshot are deterministic.
// Any failure aborts the whole fetch: no partial snapshot is returned.
func (p *Provider) Fetch(ctx context.Context, org string) (snapshot.Snapshot, error) {
	if ctx == nil {
		return snapshot.Snapshot{}, fmt.Errorf("provider: nil context")
	}
	org = strings.TrimSpace(org)
	if org == "" {
		return snapshot.Snapshot{}, fmt.Errorf("provider: organisation is required")
	}

	snap := snapshot.Snapshot{Org: org}

	requiresTwoFactor, err := p.fetchOrgSettings(ctx, org)
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	snap.RequiresTwoFactor = requiresTwoFactor

	members, err := p.fetchMembers(ctx, org)
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	snap.Members = members

	repos, err := p.fetchRepositories(ctx, org)
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	snap.Repositories = repos

	return snap, nil
}

func (p *Provider) fetchOrgSettings(ctx context.Context, org string) (bool, error) {
	const op = "get organisation"

	if err := p.budget.Acquire(ctx, 1); err != nil {
		return false, &FetchError{Kind: KindTransient, Op: op, Err: err}
	}
	orgInfo, resp, err := p.client.Client.Organizations.Get(ctx, org)
	p.updateBudget(resp)
	if err != nil {
		return false, classify(op, resp, err)
	}
	// The field is only visible with sufficient token scope; an absent field
	// degrades to false (not required) rather than failing the audit.
	return orgInfo.GetTwoFactorRequirementEnabled(), nil
}

func (p *Provider) fetchMembers(ctx context.Context, org string) ([]snapshot.Member, error) {
	admins, err := p.listMemberLogins(ctx, org, "admin")
	if err != nil {
		return nil, err
	}
	adminSet := make(map[string]bool, len(admins))
	for _, login := range admins {
		adminSet[strings.ToLower(login)] = true
	}

	logins, err := p.listMemberLogins(ctx, org, "all")
	if err != nil {
		return nil, err
	}

	members := make([]snapshot.Member, len(logins))
	for i, login := range logins {
		role := snapshot.RoleMember
		if adminSet[strings.ToLower(login)] {
			role = snapshot.RoleAdmin
		}
		members[i] = snapshot.Member{Login: login, Role: role}
	}

	// Push activity is only consulted for administrative accounts, so only
	// those are hydrated. Indexed writes keep roster order independent of
	// completion order.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i := range members {
		if !members[i].Role.IsAdministrative() {
			continue
		}
		g.Go(func() error {
			active, err := p.hasRecentPushActivity(gctx, members[i].Login)
			if err != nil {
				return err
			}
			members[i].HasRecentPushActivity = active
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return members, nil
}

func (p *Provider) listMemberLogins(ctx context.Context, org, role string) ([]string, error) {
	op := fmt.Sprintf("list members (role=%s)", role)

	var logins []string
	opt := &github.ListMembersOptions{
		Role:        role,
		ListOptions: github.ListOptions{PerPage: pageSize},
	}
	for {
		if err := p.budget.Acquire(ctx, 1); err != nil {
			return nil, &FetchError{Kind: KindTransient, Op: op, Err: err}
		}
		users, resp, err := p.client.Client.Organizations.ListMembers(ctx, org, opt)
		p.updateBudget(resp)
		if err != nil {
			return nil, classify(op, resp, err)
		}
		for _, u := range users {
			if u.GetLogin() != "" {
				logins = append(logins, u.GetLogin())
			}
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}
	return logins, nil
}

func (p *Provider) hasRecentPushActivity(ctx context.Context, login string) (bool, error) {
	op := fmt.Sprintf("list events for %s", login)

	if err := p.budget.Acquire(ctx, 1); err != nil {
		return false, &FetchError{Kind: KindTransient, Op: op, Err: err}
	}
	events, resp, err := p.client.Client.Activity.ListEventsPerformedByUser(ctx, login, false, &github.ListOptions{PerPage: pageSize})
	p.updateBudget(resp)
	if err != nil {
		// A 404 here means the account is gone or hidden; no observable
		// activity is not evidence of a violation.
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, classify(op, resp, err)
	}

	cutoff := p.now().Add(-p.activityWindow)
	for _, e := range events {
		if e.GetType() != "PushEvent" {
			continue
		}
		if e.GetCreatedAt().After(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

func (p *Provider) fetchRepositories(ctx context.Context, org string) ([]snapshot.Repository, error) {
	const op = "list repositories"

	var ghRepos []*github.Repository
	opt := &github.RepositoryListByOrgOptions{
		ListOptions: github.ListOptions{PerPage: pageSize},
	}
	for {
		if err := p.budget.Acquire(ctx, 1); err != nil {
			return nil, &FetchError{Kind: KindTransient, Op: op, Err: err}
		}
		page, resp, err := p.client.Client.Repositories.ListByOrg(ctx, org, opt)
		p.updateBudget(resp)
		if err != nil {
			return nil, classify(op, resp, err)
		}
		ghRepos = append(ghRepos, page...)
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	repos := make([]snapshot.Repository, len(ghRepos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, r := range ghRepos {
		repos[i] = snapshot.Repository{
			Name:          r.GetName(),
			DefaultBranch: r.GetDefaultBranch(),
		}
		if repos[i].DefaultBranch == "" {
			// Empty repository: nothing to protect, nothing to flag.
			repos[i].DefaultBranchProtected = true
			continue
		}
		g.Go(func() error {
			protected, err := p.defaultBranchProtected(gctx, org, repos[i].Name, repos[i].DefaultBranch)
			if err != nil {
				return err
			}
			repos[i].DefaultBranchProtected = protected
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return repos, nil
}

func (p *Provider) defaultBranchProtected(ctx context.Context, org, repo, branch string) (bool, error) {
	op := fmt.Sprintf("get branch %s/%s@%s", org, repo, branch)

	if err := p.budget.Acquire(ctx, 1); err != nil {
		return false, &FetchError{Kind: KindTransient, Op: op, Err: err}
	}
	b, resp, err := p.client.Client.Repositories.GetBranch(ctx, org, repo, branch, 0)
	p.updateBudget(resp)
	if err != nil {
		// The default branch can trail reality for just-renamed or empty
		// repos; a missing branch is treated as nothing-to-protect.
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return true, nil
		}
		return false, classify(op, resp, err)
	}
	return b.GetProtected(), nil
}

func (p *Provider) updateBudget(resp *github.Response) {
	if resp != nil {
		p.budget.UpdateFromResponse(resp.Response)
	}
}
