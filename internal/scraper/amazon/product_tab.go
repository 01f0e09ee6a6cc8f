package amazon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"ListingScraper/internal/models"
	"ListingScraper/internal/scraper"
)

// ErrRobotCheck is returned when the product page is a captcha interstitial.
var ErrRobotCheck = errors.New("robot check detected")

const (
	productReadySelector = "#dp, #ppd, #productTitle"
	captchaFormSelector  = `form[action="/errors/validateCaptcha"]`
)

// ScrapeProduct opens url in a fresh tab, extracts it and tears the tab
// down again. The tab is closed and the listing tab re-activated on every
// path, including panics. Any error means the product is discarded.
func (s *AmazonScraper) ScrapeProduct(ctx context.Context, url string) (rec models.ProductRecord, err error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return models.ProductRecord{}, err
	}

	tab, err := s.Session.NewTab(ctx)
	if err != nil {
		return models.ProductRecord{}, fmt.Errorf("failed to open tab: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			rec, err = models.ProductRecord{}, fmt.Errorf("panic while scraping %s: %v", url, r)
		}
		if closeErr := tab.Close(); closeErr != nil {
			log.Printf("Failed to close product tab: %v", closeErr)
		}
		if focusErr := s.Session.Main().Activate(); focusErr != nil {
			log.Printf("Failed to refocus listing tab: %v", focusErr)
		}
	}()

	if err := tab.Activate(); err != nil {
		log.Printf("Failed to focus product tab: %v", err)
	}

	log.Printf("Starting to scrape %s", url)
	if err := s.navigate(ctx, tab, url); err != nil {
		return models.ProductRecord{}, err
	}

	err = scraper.WaitUntil(ctx, s.Timing.ProductReadyTimeout, s.Timing.PollInterval, func() (bool, error) {
		return tab.Has(productReadySelector)
	})
	switch {
	case ctx.Err() != nil:
		return models.ProductRecord{}, ctx.Err()
	case err != nil:
		log.Printf("Product container not found for %s, extracting anyway", url)
	}

	if err := scraper.Sleep(ctx, s.Timing.ProductSettle.Duration()); err != nil {
		return models.ProductRecord{}, err
	}

	if err := checkRobot(tab); err != nil {
		return models.ProductRecord{}, fmt.Errorf("%w for %s", err, url)
	}

	return s.Pipeline.Extract(ctx, tab)
}

// navigate loads url within the navigation timeout. A page that never
// finishes loading fails this product only.
func (s *AmazonScraper) navigate(ctx context.Context, tab scraper.Tab, url string) error {
	if s.Timing.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timing.NavigationTimeout)
		defer cancel()
	}
	if err := tab.Navigate(ctx, url); err != nil {
		return fmt.Errorf("failed to load %s: %w", url, err)
	}
	return nil
}

func checkRobot(page scraper.Page) error {
	if has, err := page.Has(captchaFormSelector); err == nil && has {
		return ErrRobotCheck
	}
	if title, err := page.Text("title"); err == nil {
		lower := strings.ToLower(title)
		if strings.Contains(lower, "robot check") || strings.Contains(lower, "captcha") {
			return ErrRobotCheck
		}
	}
	return nil
}
