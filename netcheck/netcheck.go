// ABOUTME: Connectivity probe for the model endpoint, directly and through configured proxies
// ABOUTME: Retries each target a bounded number of times under an overall cutoff and reports latency
package netcheck

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultAttempts       = 3
	DefaultCutoff         = 15 * time.Second
	DefaultAttemptTimeout = 5 * time.Second
	DefaultEndpoint       = "https://generativelanguage.googleapis.com"
)

// Target is one network path to test.
type Target struct {
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
	// Proxy is empty for a direct connection.
	Proxy string `json:"proxy,omitempty"`
}

// Result is the outcome for one target.
type Result struct {
	Target   Target        `json:"target"`
	OK       bool          `json:"ok"`
	Attempts int           `json:"attempts"`
	Status   int           `json:"status,omitempty"`
	Latency  time.Duration `json:"latency"`
	Elapsed  time.Duration `json:"elapsed"`
	Error    string        `json:"error,omitempty"`
}

// Targets builds the direct target plus one per proxy URL.
func Targets(endpoint string, proxies []string) []Target {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	out := []Target{{Name: "direct", Endpoint: endpoint}}
	for _, p := range proxies {
		if p == "" {
			continue
		}
		out = append(out, Target{Name: "proxy " + redact(p), Endpoint: endpoint, Proxy: p})
	}
	return out
}

// redact strips credentials from a proxy URL.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = nil
	return u.String()
}

// Prober runs connectivity checks.
type Prober struct {
	Attempts        uint64
	Cutoff          time.Duration
	AttemptTimeout  time.Duration
	InitialInterval time.Duration
	Logger          zerolog.Logger

	// transport builds the round tripper for a target; tests replace it.
	transport func(Target) (http.RoundTripper, error)
}

// NewProber returns a prober with the default limits.
func NewProber(log zerolog.Logger) *Prober {
	return &Prober{
		Attempts:        DefaultAttempts,
		Cutoff:          DefaultCutoff,
		AttemptTimeout:  DefaultAttemptTimeout,
		InitialInterval: 200 * time.Millisecond,
		Logger:          log,
	}
}

// Probe checks every target concurrently. Results keep the order of targets.
func (p *Prober) Probe(ctx context.Context, targets []Target) []Result {
	ctx, cancel := context.WithTimeout(ctx, p.Cutoff)
	defer cancel()

	results := make([]Result, len(targets))
	var g errgroup.Group
	for i, t := range targets {
		g.Go(func() error {
			results[i] = p.probeOne(ctx, t)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (p *Prober) roundTripper(t Target) (http.RoundTripper, error) {
	if p.transport != nil {
		return p.transport(t)
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.Proxy = nil
	if t.Proxy != "" {
		u, err := url.Parse(t.Proxy)
		if err != nil {
			return nil, fmt.Errorf("failed to parse proxy url: %w", err)
		}
		tr.Proxy = http.ProxyURL(u)
	}
	return tr, nil
}

func (p *Prober) probeOne(ctx context.Context, t Target) Result {
	res := Result{Target: t}
	start := time.Now()
	log := p.Logger.With().Str("target", t.Name).Logger()

	rt, err := p.roundTripper(t)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	client := &http.Client{Transport: rt, Timeout: p.AttemptTimeout}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialInterval
	exp.Multiplier = 2
	exp.MaxElapsedTime = 0
	attempts := p.Attempts
	if attempts == 0 {
		attempts = DefaultAttempts
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, attempts-1), ctx)

	op := func() error {
		res.Attempts++
		attemptStart := time.Now()
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, t.Endpoint, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		_ = resp.Body.Close()
		res.Status = resp.StatusCode
		res.Latency = time.Since(attemptStart)
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("endpoint returned %d", resp.StatusCode)
		}
		return nil
	}

	err = backoff.Retry(op, policy)
	res.Elapsed = time.Since(start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
			err = fmt.Errorf("cutoff reached after %d attempts: %w", res.Attempts, err)
		}
		res.Error = err.Error()
		log.Warn().Err(err).Int("attempts", res.Attempts).Msg("target unreachable")
		return res
	}

	res.OK = true
	log.Debug().Int("attempts", res.Attempts).Dur("latency", res.Latency).Msg("target reachable")
	return res
}

// AllOK reports whether every result succeeded.
func AllOK(results []Result) bool {
	for _, r := range results {
		if !r.OK {
			return false
		}
	}
	return len(results) > 0
}
