package services

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plstat/internal/shared"
	"golang.org/x/time/rate"
)

// DefaultPurgeDelay is the pause before purge requests so the pushed commit is visible to the CDN.
const DefaultPurgeDelay = 10 * time.Second

// PurgeResult records the outcome of one purge request.
type PurgeResult struct {
	URL        string
	StatusCode int
	Err        error
}

// OK reports a 2xx response without transport error.
func (r PurgeResult) OK() bool {
	return r.Err == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// PurgeService issues CDN cache purge requests. Failures are logged, never returned.
type PurgeService struct {
	api     *APIService
	delay   time.Duration
	limiter *rate.Limiter
	logger  *log.Logger
}

// PurgeOpts configures a [PurgeService].
type PurgeOpts struct {
	Endpoint   string
	Delay      time.Duration
	RateLimit  float64 // Requests per second, zero disables limiting
	HTTPClient *http.Client
	Logger     *log.Logger
}

// NewPurgeService creates a purge client for the endpoint.
func NewPurgeService(opts PurgeOpts) *PurgeService {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &PurgeService{
		api:     NewAPIService(opts.Endpoint, opts.HTTPClient),
		delay:   opts.Delay,
		limiter: limiter,
		logger:  logger,
	}
}

// Purge waits for the configured delay, then requests every path concurrently.
//
// Results keep the order of paths. Cancellation during the delay returns the context error with no results.
func (p *PurgeService) Purge(ctx context.Context, paths []string) ([]PurgeResult, error) {
	if p.delay > 0 {
		p.logger.Info("waiting before cache purge", "delay", p.delay)
		timer := time.NewTimer(p.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	results := make([]PurgeResult, len(paths))
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			results[i] = p.purgeOne(ctx, path)
		}(i, path)
	}
	wg.Wait()

	for _, r := range results {
		switch {
		case r.Err != nil:
			p.logger.Warn("cache purge failed", "url", r.URL, "error", r.Err)
		case !r.OK():
			p.logger.Warn("cache purge rejected", "url", r.URL, "status", r.StatusCode)
		default:
			p.logger.Info("cache purged", "url", r.URL, "status", r.StatusCode)
		}
	}
	return results, nil
}

func (p *PurgeService) purgeOne(ctx context.Context, path string) PurgeResult {
	res := PurgeResult{URL: p.api.URL(path)}
	if err := p.limiter.Wait(ctx); err != nil {
		res.Err = err
		return res
	}
	resp, err := p.api.Get(ctx, path)
	if err != nil {
		res.Err = err
		return res
	}
	res.StatusCode = resp.StatusCode
	return res
}

// CountPurges tallies successful and failed results.
func CountPurges(results []PurgeResult) (ok, failed int) {
	for _, r := range results {
		if r.OK() {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}
