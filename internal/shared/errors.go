package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")
	ErrMissingToken  = fmt.Errorf("missing token")

	// Trigger errors
	ErrInvalidEvent = fmt.Errorf("invalid event")
	ErrUnknownEvent = fmt.Errorf("unsupported event")

	// Pipeline step errors
	ErrLocked         = fmt.Errorf("working tree locked by another run")
	ErrCheckoutFailed = fmt.Errorf("checkout failed")
	ErrScriptFailed   = fmt.Errorf("statistics updater failed")
	ErrCommitFailed   = fmt.Errorf("commit failed")
	ErrPushFailed     = fmt.Errorf("push failed")
	ErrGitFailed      = fmt.Errorf("git command failed")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrRunNotFound        = fmt.Errorf("run not found")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
