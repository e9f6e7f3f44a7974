package trigger

import (
	"fmt"
	"strings"

	"github.com/desertthunder/plstat/internal/shared"
	"github.com/gobwas/glob"
)

// PathFilter matches repository-relative paths against include and exclude globs.
type PathFilter struct {
	include []glob.Glob
	exclude []glob.Glob
}

// NewPathFilter compiles the given patterns.
func NewPathFilter(include, exclude []string) (*PathFilter, error) {
	f := &PathFilter{}
	for _, p := range include {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if neg, ok := strings.CutPrefix(p, "!"); ok {
			exclude = append(exclude, neg)
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("%w: bad path pattern %q: %v", shared.ErrInvalidConfig, p, err)
		}
		f.include = append(f.include, g)
	}
	if len(f.include) == 0 {
		return nil, fmt.Errorf("%w: at least one include pattern is required", shared.ErrInvalidConfig)
	}

	for _, p := range exclude {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("%w: bad ignore pattern %q: %v", shared.ErrInvalidConfig, p, err)
		}
		f.exclude = append(f.exclude, g)
	}
	return f, nil
}

// Match reports whether path is included and not excluded.
func (f *PathFilter) Match(path string) bool {
	path = shared.NormalizePath(path)
	if path == "" {
		return false
	}
	for _, g := range f.exclude {
		if g.Match(path) {
			return false
		}
	}
	for _, g := range f.include {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// Filter returns the matching paths in input order.
func (f *PathFilter) Filter(paths []string) []string {
	var out []string
	for _, p := range paths {
		if f.Match(p) {
			out = append(out, shared.NormalizePath(p))
		}
	}
	return out
}
