package git

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/docblog/internal/config"
	"git.home.luguber.info/inful/docblog/internal/foundation/errors"
	"git.home.luguber.info/inful/docblog/internal/logfields"
)

// SyncResult describes what Sync did.
type SyncResult struct {
	// Commit is the checked out head.
	Commit string
	// Cloned is set when the checkout did not exist before.
	Cloned bool
	// Changed is set when the head moved.
	Changed bool
}

// Client syncs one checkout directory with a remote repository.
type Client struct {
	dir    string
	cfg    config.GitConfig
	logger *slog.Logger
}

// NewClient creates a client for the checkout in dir.
func NewClient(dir string, cfg config.GitConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{dir: dir, cfg: cfg, logger: logger.With(logfields.URL(cfg.URL))}
}

// Sync clones the repository when the checkout is missing and otherwise
// moves it to the head of the remote branch.
func (c *Client) Sync(ctx context.Context) (*SyncResult, error) {
	if _, err := os.Stat(filepath.Join(c.dir, ".git")); err != nil {
		return c.clone(ctx)
	}
	return c.update(ctx)
}

func (c *Client) clone(ctx context.Context) (*SyncResult, error) {
	c.logger.Info("Cloning source repository", slog.String("branch", c.cfg.Branch), logfields.Path(c.dir))
	if err := os.RemoveAll(c.dir); err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "clear checkout directory").
			WithContext("path", c.dir).
			Build()
	}
	auth, err := authMethod(c.cfg.Auth)
	if err != nil {
		return nil, err
	}
	opts := &git.CloneOptions{URL: c.cfg.URL, Auth: auth, Depth: c.cfg.Depth, Tags: git.NoTags}
	if c.cfg.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(c.cfg.Branch)
		opts.SingleBranch = true
	}
	repo, err := git.PlainCloneContext(ctx, c.dir, false, opts)
	if err != nil {
		return nil, classify("clone", c.cfg.URL, err)
	}
	head, err := repo.Head()
	if err != nil {
		return nil, classify("clone", c.cfg.URL, err)
	}
	c.logger.Info("Source repository cloned", slog.String("commit", short(head.Hash())))
	return &SyncResult{Commit: head.Hash().String(), Cloned: true, Changed: true}, nil
}

func (c *Client) update(ctx context.Context) (*SyncResult, error) {
	repo, err := git.PlainOpen(c.dir)
	if err != nil {
		return nil, classify("open", c.cfg.URL, err)
	}
	auth, err := authMethod(c.cfg.Auth)
	if err != nil {
		return nil, err
	}
	fetch := &git.FetchOptions{
		RemoteName: "origin",
		Auth:       auth,
		Depth:      c.cfg.Depth,
		Tags:       git.NoTags,
		RefSpecs:   []ggitcfg.RefSpec{"+refs/heads/*:refs/remotes/origin/*"},
	}
	if err := repo.FetchContext(ctx, fetch); err != nil && !stderrors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil, classify("fetch", c.cfg.URL, err)
	}

	branch := c.targetBranch(repo)
	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryGit, "remote branch not found").
			WithContext("url", c.cfg.URL).
			WithContext("branch", branch).
			WithContext("reason", ReasonNotFound).
			Build()
	}

	var before plumbing.Hash
	if head, herr := repo.Head(); herr == nil {
		before = head.Hash()
	}
	if !before.IsZero() && before != remoteRef.Hash() {
		if ok, aerr := isAncestor(repo, before, remoteRef.Hash()); aerr == nil && !ok {
			c.logger.Warn("Local checkout diverged from remote, resetting", slog.String("branch", branch))
		}
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, classify("worktree", c.cfg.URL, err)
	}
	local := plumbing.NewBranchReferenceName(branch)
	checkout := &git.CheckoutOptions{Branch: local, Force: true}
	if _, lerr := repo.Reference(local, true); lerr != nil {
		checkout.Create = true
		checkout.Hash = remoteRef.Hash()
	}
	if err := wt.Checkout(checkout); err != nil {
		return nil, classify("checkout", c.cfg.URL, err)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: remoteRef.Hash(), Mode: git.HardReset}); err != nil {
		return nil, classify("reset", c.cfg.URL, err)
	}

	res := &SyncResult{Commit: remoteRef.Hash().String(), Changed: before != remoteRef.Hash()}
	if res.Changed {
		c.logger.Info("Source repository updated", slog.String("branch", branch), slog.String("from", short(before)), slog.String("to", short(remoteRef.Hash())))
	} else {
		c.logger.Debug("Source repository up to date", slog.String("branch", branch), slog.String("commit", short(before)))
	}
	return res, nil
}

// targetBranch prefers the configured branch, then the current branch.
func (c *Client) targetBranch(repo *git.Repository) string {
	if c.cfg.Branch != "" {
		return c.cfg.Branch
	}
	if head, err := repo.Head(); err == nil && head.Name().IsBranch() {
		return head.Name().Short()
	}
	return config.DefaultGitBranch
}

// isAncestor reports whether a is reachable from b.
func isAncestor(repo *git.Repository, a, b plumbing.Hash) (bool, error) {
	if a == b {
		return true, nil
	}
	seen := map[plumbing.Hash]struct{}{}
	queue := []plumbing.Hash{b}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if h == a {
			return true, nil
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		commit, err := repo.CommitObject(h)
		if err != nil {
			// Shallow clones end in missing parents.
			if stderrors.Is(err, plumbing.ErrObjectNotFound) {
				continue
			}
			return false, err
		}
		queue = append(queue, commit.ParentHashes...)
	}
	return false, nil
}

func short(h plumbing.Hash) string {
	if h.IsZero() {
		return ""
	}
	return h.String()[:8]
}
