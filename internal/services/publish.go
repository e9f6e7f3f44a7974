package services

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plstat/internal/shared"
)

// DefaultCommitMessage is used when no message is configured. "[skip ci]" keeps the commit from retriggering the workflow.
const DefaultCommitMessage = "Update media statistics [skip ci]"

// Repository is the subset of [GitService] the publisher needs.
type Repository interface {
	StageAll(ctx context.Context) error
	HasChanges(ctx context.Context) (bool, error)
	Commit(ctx context.Context, message string, id Identity) error
	Push(ctx context.Context, remote, branch string) error
}

// PublishOpts configures a [Publisher].
type PublishOpts struct {
	Message  string
	Identity Identity
	Remote   string
	Branch   string
}

// PublishResult reports what the publisher did.
type PublishResult struct {
	Committed bool
	Pushed    bool
	Message   string
}

// Publisher stages, conditionally commits and pushes statistics changes.
type Publisher struct {
	repo   Repository
	opts   PublishOpts
	logger *log.Logger
}

// NewPublisher creates a publisher for repo.
func NewPublisher(repo Repository, opts PublishOpts, logger *log.Logger) *Publisher {
	if opts.Message == "" {
		opts.Message = DefaultCommitMessage
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Publisher{repo: repo, opts: opts, logger: logger}
}

// Publish stages everything and commits once when the tree differs from HEAD. The push is attempted either way.
func (p *Publisher) Publish(ctx context.Context) (*PublishResult, error) {
	if p.repo == nil {
		return nil, fmt.Errorf("%w: repository not initialized", shared.ErrServiceUnavailable)
	}

	result := &PublishResult{}
	if err := p.repo.StageAll(ctx); err != nil {
		return result, err
	}

	changed, err := p.repo.HasChanges(ctx)
	if err != nil {
		return result, err
	}

	if changed {
		if err := p.repo.Commit(ctx, p.opts.Message, p.opts.Identity); err != nil {
			return result, err
		}
		result.Committed = true
		result.Message = p.opts.Message
		p.logger.Info("committed statistics", "message", p.opts.Message)
	} else {
		p.logger.Info("no changes to commit")
	}

	if err := p.repo.Push(ctx, p.opts.Remote, p.opts.Branch); err != nil {
		return result, err
	}
	result.Pushed = true
	p.logger.Info("pushed", "remote", p.opts.Remote, "branch", p.opts.Branch)
	return result, nil
}
