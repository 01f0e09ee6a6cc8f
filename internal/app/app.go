// Package app is the run entry point: it validates a run request, owns the
// browser session and guarantees the output file is written exactly once.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"

	"ListingScraper/internal/browser"
	"ListingScraper/internal/output"
	"ListingScraper/internal/scraper"
	"ListingScraper/internal/scraper/amazon"
	"ListingScraper/pkg/config"
)

// ErrInvalidRun is returned when a run request fails validation. Nothing is
// launched or written in that case.
var ErrInvalidRun = errors.New("invalid run request")

// RunConfig is one scrape request.
type RunConfig struct {
	LandingURL string
	MaxPages   int
	OutputPath string
	Browser    config.BrowserConfig
	Identity   config.IdentityConfig
	Timing     config.TimingConfig
}

// RunConfigFrom builds a request from the loaded configuration.
func RunConfigFrom(cfg *config.Config, landingURL string, maxPages int) RunConfig {
	return RunConfig{
		LandingURL: landingURL,
		MaxPages:   maxPages,
		OutputPath: cfg.Output.Path,
		Browser:    cfg.Browser,
		Identity:   cfg.Identity,
		Timing:     cfg.Timing,
	}
}

// Validate checks the request before any browser work happens.
func (rc RunConfig) Validate() error {
	u, err := url.Parse(rc.LandingURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: landing URL must be an absolute http(s) URL, got %q", ErrInvalidRun, rc.LandingURL)
	}
	if rc.MaxPages < 1 {
		return fmt.Errorf("%w: max pages must be at least 1, got %d", ErrInvalidRun, rc.MaxPages)
	}
	if rc.OutputPath == "" {
		return fmt.Errorf("%w: output path is empty", ErrInvalidRun)
	}
	return nil
}

// Session is what a run needs from the browser.
type Session interface {
	scraper.Session
	NavigateAndAwaitLogin(ctx context.Context, url string, wait config.Delay) error
	Close() error
}

// Opener starts a browser session.
type Opener func(ctx context.Context, opts browser.Options) (Session, error)

func openBrowser(ctx context.Context, opts browser.Options) (Session, error) {
	return browser.Open(ctx, opts)
}

// Run scrapes up to rc.MaxPages listing pages and returns the output path.
func Run(ctx context.Context, rc RunConfig) (string, error) {
	return run(ctx, rc, openBrowser)
}

func run(ctx context.Context, rc RunConfig, open Opener) (path string, err error) {
	if err := rc.Validate(); err != nil {
		return "", err
	}

	log.Printf("--- Starting listing scrape: %s (max %d pages) ---", rc.LandingURL, rc.MaxPages)

	sink := output.NewSink(rc.OutputPath)
	defer func() {
		if flushErr := sink.Flush(); flushErr != nil {
			err = errors.Join(err, flushErr)
		}
	}()

	session, err := open(ctx, browser.Options{
		Browser:           rc.Browser,
		Identity:          rc.Identity,
		NavigationTimeout: rc.Timing.NavigationTimeout,
	})
	if err != nil {
		return rc.OutputPath, fmt.Errorf("browser session failed: %w", err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			log.Printf("Failed to close browser: %v", closeErr)
		}
	}()

	if err := session.NavigateAndAwaitLogin(ctx, rc.LandingURL, rc.Timing.LoginWait); err != nil {
		return rc.OutputPath, fmt.Errorf("failed to open landing page: %w", err)
	}

	sum, err := amazon.New(session, rc.Timing).ScrapeListing(ctx, rc.LandingURL, rc.MaxPages, sink)
	if err != nil {
		return rc.OutputPath, fmt.Errorf("scrape stopped: %w", err)
	}

	log.Printf("--- Listing scrape finished (%s): %d pages, %d products saved, %d skipped ---",
		sum.State, sum.Pages, sum.Products, sum.Failed)
	return rc.OutputPath, nil
}
