package amazon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"

	"ListingScraper/internal/models"
	"ListingScraper/internal/scraper"
	"ListingScraper/pkg/config"
	"ListingScraper/utils"
)

const (
	listingAnchorSelector = "a.a-link-normal.s-no-outline"
	nextPageSelector      = "a.s-pagination-next:not(.s-pagination-disabled), ul.a-pagination li.a-last a"
)

// State is a state of the pagination driver.
type State int

const (
	Loading State = iota
	ExtractingPage
	Paginating
	Done
	Aborted
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case ExtractingPage:
		return "extracting-page"
	case Paginating:
		return "paginating"
	case Done:
		return "done"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ProductScraper turns one product URL into a record.
type ProductScraper interface {
	ScrapeProduct(ctx context.Context, url string) (models.ProductRecord, error)
}

// Summary describes how a listing run ended.
type Summary struct {
	State    State
	Pages    int
	Products int
	Failed   int
}

// Driver walks the listing page by page. It is strictly sequential.
type Driver struct {
	Listing  scraper.Page
	Products ProductScraper
	Sink     Sink
	Timing   config.TimingConfig
	BaseURL  *url.URL
	MaxPages int
}

// ScrapeListing runs the pagination driver over the session's main tab,
// which must already show the first listing page.
func (s *AmazonScraper) ScrapeListing(ctx context.Context, landingURL string, maxPages int, sink Sink) (Summary, error) {
	base, err := url.Parse(landingURL)
	if err != nil {
		return Summary{State: Aborted}, fmt.Errorf("invalid landing URL: %w", err)
	}
	d := &Driver{
		Listing:  s.Session.Main(),
		Products: s,
		Sink:     sink,
		Timing:   s.Timing,
		BaseURL:  base,
		MaxPages: maxPages,
	}
	return d.Run(ctx)
}

// Run executes the state machine until Done or Aborted. Aborting keeps every
// record already handed to the sink; only a cancelled ctx is reported as an
// error.
func (d *Driver) Run(ctx context.Context) (Summary, error) {
	sum := Summary{State: Loading}
	page := 1
	var urls []string

	for {
		if err := ctx.Err(); err != nil {
			sum.State = Aborted
			return sum, err
		}

		switch sum.State {
		case Loading:
			log.Printf("Loading listing page %d", page)
			found, err := d.step(func() ([]string, error) { return d.awaitListing(ctx) })
			if err != nil {
				log.Printf("Listing page %d did not load: %v", page, err)
				sum.State = Aborted
				continue
			}
			urls = found
			sum.Pages = page
			log.Printf("Found %d product links on page %d", len(urls), page)
			sum.State = ExtractingPage

		case ExtractingPage:
			if _, err := d.step(func() ([]string, error) { return nil, d.extractPage(ctx, urls, &sum) }); err != nil {
				log.Printf("Processing of page %d failed: %v", page, err)
				sum.State = Aborted
				continue
			}
			if page >= d.MaxPages {
				sum.State = Done
			} else {
				sum.State = Paginating
			}

		case Paginating:
			if _, err := d.step(func() ([]string, error) { return nil, d.advance(ctx, fingerprint(urls)) }); err != nil {
				log.Printf("No more pages after page %d: %v", page, err)
				sum.State = Aborted
				continue
			}
			page++
			sum.State = Loading

		case Done, Aborted:
			log.Printf("Listing finished in state %s: %d pages, %d products, %d failed",
				sum.State, sum.Pages, sum.Products, sum.Failed)
			return sum, nil
		}
	}
}

// step runs one state's work, turning a panic into an error so the run can
// still flush what it collected.
func (d *Driver) step(fn func() ([]string, error)) (out []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// awaitListing waits for the listing anchors and returns their absolute,
// de-duplicated URLs in page order.
func (d *Driver) awaitListing(ctx context.Context) ([]string, error) {
	err := scraper.WaitUntil(ctx, d.Timing.ListingTimeout, d.Timing.PollInterval, func() (bool, error) {
		return d.Listing.Has(listingAnchorSelector)
	})
	if err != nil {
		return nil, err
	}
	return d.productURLs()
}

func (d *Driver) productURLs() ([]string, error) {
	hrefs, err := d.Listing.Attributes(listingAnchorSelector, "href")
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(hrefs))
	for _, href := range hrefs {
		urls = append(urls, d.resolve(href))
	}
	return utils.UniqueStrings(urls), nil
}

func (d *Driver) resolve(href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if d.BaseURL == nil {
		return ref.String()
	}
	return d.BaseURL.ResolveReference(ref).String()
}

// extractPage dispatches every product URL in order. A failing product is
// logged and skipped.
func (d *Driver) extractPage(ctx context.Context, urls []string, sum *Summary) error {
	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Printf("[%d/%d] Scraping product %s", i+1, len(urls), u)
		rec, err := d.Products.ScrapeProduct(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			sum.Failed++
			log.Printf("Skipping product %s: %v", u, err)
			continue
		}
		d.Sink.Add(rec)
		sum.Products++
	}
	return nil
}

// fingerprint identifies the listing page currently shown.
func fingerprint(urls []string) string {
	if len(urls) == 0 {
		return ""
	}
	return urls[0]
}

var errNoNextPage = errors.New("next page control not found")

// advance clicks the next-page control and waits until the listing shows a
// different first product.
func (d *Driver) advance(ctx context.Context, before string) error {
	err := scraper.WaitUntil(ctx, d.Timing.PaginationTimeout, d.Timing.PollInterval, func() (bool, error) {
		return d.Listing.Has(nextPageSelector)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errNoNextPage, err)
	}

	if err := d.Listing.ScrollIntoView(nextPageSelector); err != nil {
		log.Printf("Failed to scroll next page control into view: %v", err)
	}
	if err := scraper.Sleep(ctx, d.Timing.PaginationPacing.Duration()); err != nil {
		return err
	}
	if err := d.Listing.Click(nextPageSelector); err != nil {
		return fmt.Errorf("failed to click next page: %w", err)
	}

	err = scraper.WaitUntil(ctx, d.Timing.PaginationTimeout, d.Timing.PollInterval, func() (bool, error) {
		urls, err := d.productURLs()
		if err != nil {
			return false, err
		}
		first := fingerprint(urls)
		return first != "" && first != before, nil
	})
	if err != nil {
		return fmt.Errorf("listing did not change after clicking next: %w", err)
	}
	return nil
}
