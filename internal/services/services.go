package services

import "context"

// Updater regenerates statistics files in the working tree.
//
// force requests a full rebuild instead of reusing unchanged outputs.
type Updater interface {
	Update(ctx context.Context, force bool) error
}

// UpdaterFunc adapts a function to [Updater].
type UpdaterFunc func(ctx context.Context, force bool) error

func (f UpdaterFunc) Update(ctx context.Context, force bool) error { return f(ctx, force) }

var (
	_ Updater    = (*ScriptRunner)(nil)
	_ Repository = (*GitService)(nil)
)
