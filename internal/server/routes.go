package server

import (
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/plstat/internal/trigger"
)

// RouterOpts wires the handlers served by [NewRouter].
type RouterOpts struct {
	Secret     string
	Evaluator  *trigger.Evaluator
	Dispatcher *Dispatcher
	Runs       RunLister
	Logger     *log.Logger
}

// NewRouter builds the webhook service routes with request ID, logging and recovery middleware.
func NewRouter(opts RouterOpts) *BasicRouter {
	r := NewBasicRouter()
	if opts.Logger != nil {
		r.Use(RequestID(), Logging(opts.Logger), Recover(opts.Logger))
	} else {
		r.Use(RequestID())
	}

	var starter Starter
	if opts.Dispatcher != nil {
		starter = opts.Dispatcher
	}
	r.Handler(NewWebhookHandler(opts.Secret, opts.Evaluator, starter, opts.Logger))
	r.HandleFunc(http.MethodGet, "/health", HealthHandler(opts.Dispatcher))
	r.HandleFunc(http.MethodGet, "/runs", RunsHandler(opts.Runs))
	return r
}
