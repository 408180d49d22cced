// Package collyfetcher implements athlete.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/athlete-pipeline/internal/athlete"
	"github.com/JakeFAU/athlete-pipeline/internal/metrics"
)

// Defaults applied when Config leaves a field empty.
const (
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Waiter gates outgoing requests, e.g. a per-host token bucket.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Fetcher implements athlete.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	limiter       Waiter
	logger        *zap.Logger
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher. limiter may be nil.
func New(cfg Config, limiter Waiter, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := colly.NewCollector(colly.Async(false))
	c.UserAgent = cfg.UserAgent
	c.IgnoreRobotsTxt = true
	// Cached profiles are refreshed within a single process, so the same URL
	// may legitimately be visited more than once.
	c.AllowURLRevisit = true
	// Error statuses are classified here rather than by colly.
	c.ParseHTTPErrorResponse = true
	c.WithTransport(newHTTPTransport())
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		limiter:       limiter,
		logger:        logger,
	}
}

type fetchState struct {
	statusCode int
	body       []byte
	err        error
}

// Fetch executes a single HTTP GET and returns the body of a 2xx response.
// Any other outcome yields an *athlete.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, url); err != nil {
			return nil, &athlete.FetchError{Kind: athlete.FetchErrorNetwork, URL: url, Err: err}
		}
	}

	start := time.Now()
	state := &fetchState{}
	collector := f.baseCollector.Clone()
	collector.Context = ctx
	f.configureCollectorHooks(collector, state)

	var (
		body []byte
		err  error
	)
	if visitErr := f.runCollector(ctx, collector, url); ctx.Err() != nil {
		// The visit goroutine may still be running; state must not be read.
		if visitErr == nil {
			visitErr = ctx.Err()
		}
		err = &athlete.FetchError{Kind: kindOf(visitErr), URL: url, Err: visitErr}
	} else {
		body, err = f.classify(url, state, visitErr)
	}
	metrics.ObserveFetch(outcomeOf(err), time.Since(start))
	if err != nil {
		f.logger.Debug("fetch failed", zap.String("url", url), zap.Error(err))
		return nil, err
	}
	f.logger.Debug("fetch succeeded",
		zap.String("url", url),
		zap.Int("status", state.statusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)),
	)
	return body, nil
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, state *fetchState) {
	hooks.OnResponse(func(r *colly.Response) {
		state.statusCode = r.StatusCode
		state.body = append([]byte(nil), r.Body...)
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			state.statusCode = r.StatusCode
		}
		state.err = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		return err
	}
}

func (f *Fetcher) classify(url string, state *fetchState, visitErr error) ([]byte, error) {
	err := visitErr
	if err == nil {
		err = state.err
	}
	if err != nil {
		return nil, &athlete.FetchError{Kind: kindOf(err), URL: url, StatusCode: state.statusCode, Err: err}
	}
	if state.statusCode < 200 || state.statusCode >= 300 {
		return nil, &athlete.FetchError{Kind: athlete.FetchErrorHTTPStatus, URL: url, StatusCode: state.statusCode}
	}
	return state.body, nil
}

func kindOf(err error) athlete.FetchErrorKind {
	if isTimeout(err) {
		return athlete.FetchErrorTimeout
	}
	return athlete.FetchErrorNetwork
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func outcomeOf(err error) string {
	switch athlete.FetchErrorKindOf(err) {
	case "":
		return metrics.OutcomeSuccess
	case athlete.FetchErrorTimeout:
		return metrics.OutcomeTimeout
	case athlete.FetchErrorHTTPStatus:
		return metrics.OutcomeHTTPStatus
	default:
		return metrics.OutcomeNetwork
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
	}
}
