package main

import (
	"context"
	"net"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plstat/internal/server"
)

// Serve runs the webhook server until the context is cancelled, then waits for an in-flight run.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	host := cmd.String("host")
	if host == "" {
		host = r.config.Server.Host
	}
	port := cmd.Int("port")
	if port == 0 {
		port = r.config.Server.Port
	}

	evaluator, err := r.evaluator()
	if err != nil {
		return err
	}
	engine, err := r.engine()
	if err != nil {
		return err
	}

	dispatcher := server.NewDispatcher(ctx, engine, r.child("dispatch"))
	opts := server.RouterOpts{
		Secret:     r.config.WebhookSecret(r.getenv),
		Evaluator:  evaluator,
		Dispatcher: dispatcher,
		Logger:     r.child("http"),
	}
	if runs, _ := r.repositories(); runs != nil {
		opts.Runs = runs
	}
	if opts.Secret == "" {
		r.logger.Warn("webhook signatures are not verified", "env", r.config.Server.WebhookSecretEnv)
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	srv := server.New(addr, server.NewRouter(opts), r.child("server"))

	err = srv.ListenAndServe(ctx)
	dispatcher.Wait()
	return err
}
