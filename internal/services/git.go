package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plstat/internal/shared"
)

// CheckoutDepth is the number of commits fetched on checkout; two are needed to diff HEAD against its parent.
const CheckoutDepth = 2

// Identity is the author used for statistics commits.
type Identity struct {
	Name  string
	Email string
}

// GitService drives the git binary inside a single working tree.
type GitService struct {
	dir    string
	binary string
	token  string
	exec   Executor
	logger *log.Logger
}

// GitOption configures a [GitService].
type GitOption func(*GitService)

// WithGitExecutor injects a custom executor (primarily for tests).
func WithGitExecutor(e Executor) GitOption {
	return func(g *GitService) {
		if e != nil {
			g.exec = e
		}
	}
}

// WithGitToken authenticates fetches and pushes with token via an HTTP extra header.
func WithGitToken(token string) GitOption {
	return func(g *GitService) { g.token = token }
}

// WithGitLogger sets the logger used for command tracing.
func WithGitLogger(l *log.Logger) GitOption {
	return func(g *GitService) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGitService creates a git client rooted at dir.
func NewGitService(dir string, opts ...GitOption) *GitService {
	g := &GitService{
		dir:    dir,
		binary: "git",
		exec:   CommandExecutor{},
		logger: shared.NewLogger(nil),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Dir returns the working tree path.
func (g *GitService) Dir() string { return g.dir }

// Checkout clones branch of remoteURL into the working tree with depth [CheckoutDepth].
//
// An existing repository is refreshed instead: the last [CheckoutDepth] commits of branch are fetched and the
// tree is reset to them, dropping leftovers of an earlier failed run. With no remoteURL it is left untouched.
func (g *GitService) Checkout(ctx context.Context, remoteURL, branch string) error {
	if info, err := os.Stat(filepath.Join(g.dir, ".git")); err == nil && info.IsDir() {
		if remoteURL == "" {
			g.logger.Info("repository already checked out", "dir", g.dir)
			return nil
		}
		return g.refresh(ctx, remoteURL, branch)
	}
	if remoteURL == "" {
		return fmt.Errorf("%w: no clone URL configured and %s is not a repository", shared.ErrCheckoutFailed, g.dir)
	}

	parent := filepath.Dir(g.dir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrCheckoutFailed, err)
	}

	args := append(g.authArgs(), "clone", fmt.Sprintf("--depth=%d", CheckoutDepth))
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, remoteURL, g.dir)

	if _, err := g.runIn(ctx, parent, args...); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrCheckoutFailed, err)
	}
	return nil
}

func (g *GitService) refresh(ctx context.Context, remoteURL, branch string) error {
	ref := branch
	if ref == "" {
		ref = "HEAD"
	}
	fetch := append(g.authArgs(), "fetch", fmt.Sprintf("--depth=%d", CheckoutDepth), remoteURL, ref)
	if _, err := g.run(ctx, fetch...); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrCheckoutFailed, err)
	}

	reset := []string{"reset", "--hard", "FETCH_HEAD"}
	if branch != "" {
		reset = []string{"checkout", "--force", "-B", branch, "FETCH_HEAD"}
	}
	if _, err := g.run(ctx, reset...); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrCheckoutFailed, err)
	}
	if _, err := g.run(ctx, "clean", "-fd"); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrCheckoutFailed, err)
	}
	g.logger.Info("refreshed working tree", "dir", g.dir, "ref", ref)
	return nil
}

// ChangedFiles lists paths changed between HEAD~1 and HEAD, or in HEAD alone when it has no parent.
func (g *GitService) ChangedFiles(ctx context.Context) ([]string, error) {
	res, err := g.run(ctx, "diff", "--name-only", "HEAD~1", "HEAD")
	if err != nil {
		res, err = g.run(ctx, "show", "--name-only", "--pretty=format:", "HEAD")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrGitFailed, err)
		}
	}
	return splitLines(res.Stdout), nil
}

// StageAll stages every change in the working tree.
func (g *GitService) StageAll(ctx context.Context) error {
	if _, err := g.run(ctx, "add", "-A"); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrGitFailed, err)
	}
	return nil
}

// HasChanges reports whether the index or working tree differs from HEAD.
func (g *GitService) HasChanges(ctx context.Context) (bool, error) {
	_, err := g.run(ctx, "diff-index", "--quiet", "HEAD", "--")
	if err == nil {
		return false, nil
	}
	if code, ok := ExitCode(err); ok && code == 1 {
		return true, nil
	}
	return false, fmt.Errorf("%w: %v", shared.ErrGitFailed, err)
}

// Commit records the staged changes with message under id.
func (g *GitService) Commit(ctx context.Context, message string, id Identity) error {
	args := []string{}
	if id.Name != "" {
		args = append(args, "-c", "user.name="+id.Name)
	}
	if id.Email != "" {
		args = append(args, "-c", "user.email="+id.Email)
	}
	args = append(args, "commit", "-m", message)

	if _, err := g.run(ctx, args...); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrCommitFailed, err)
	}
	return nil
}

// Push sends HEAD to branch on remote.
func (g *GitService) Push(ctx context.Context, remote, branch string) error {
	if remote == "" {
		remote = "origin"
	}
	ref := "HEAD"
	if branch != "" {
		ref = "HEAD:" + branch
	}
	args := append(g.authArgs(), "push", remote, ref)
	if _, err := g.run(ctx, args...); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrPushFailed, err)
	}
	return nil
}

// Head returns the current commit hash.
func (g *GitService) Head(ctx context.Context) (string, error) {
	res, err := g.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrGitFailed, err)
	}
	return strings.TrimSpace(res.Stdout), nil
}

func (g *GitService) run(ctx context.Context, args ...string) (Result, error) {
	return g.runIn(ctx, g.dir, args...)
}

func (g *GitService) runIn(ctx context.Context, dir string, args ...string) (Result, error) {
	g.logger.Debug("git", "args", redactArgs(args))
	res, err := g.exec.Run(ctx, Command{Dir: dir, Name: g.binary, Args: args})
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			exitErr.Command = "git " + strings.Join(redactArgs(args), " ")
		}
	}
	return res, err
}

// authArgs returns the -c flags that attach the token as a basic auth header.
func (g *GitService) authArgs() []string {
	if g.token == "" {
		return nil
	}
	basic := base64.StdEncoding.EncodeToString([]byte("x-access-token:" + g.token))
	return []string{"-c", "http.extraHeader=AUTHORIZATION: basic " + basic}
}

func redactArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if strings.HasPrefix(a, "http.extraHeader=") {
			a = "http.extraHeader=***"
		}
		out[i] = a
	}
	return out
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
