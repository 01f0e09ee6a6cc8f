package amazon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ListingScraper/internal/models"
	"ListingScraper/internal/scraper"
	"ListingScraper/internal/scraper/htmlpage"
	"ListingScraper/pkg/config"
)

func fastTiming() config.TimingConfig {
	return config.TimingConfig{
		ListingTimeout:      50 * time.Millisecond,
		PaginationTimeout:   50 * time.Millisecond,
		ProductReadyTimeout: 50 * time.Millisecond,
		NavigationTimeout:   50 * time.Millisecond,
		PollInterval:        time.Millisecond,
		ScrollStep:          600,
		MaxScrollSteps:      5,
	}
}

// listingHTML renders a search results page with one anchor per href.
func listingHTML(hasNext bool, hrefs ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><div class=\"s-main-slot\">")
	for _, h := range hrefs {
		fmt.Fprintf(&b, `<div><a class="a-link-normal s-no-outline" href="%s"><img></a></div>`, h)
	}
	b.WriteString("</div>")
	if hasNext {
		b.WriteString(`<a class="s-pagination-item s-pagination-next" href="#">Next</a>`)
	} else {
		b.WriteString(`<span class="s-pagination-item s-pagination-next s-pagination-disabled">Next</span>`)
	}
	b.WriteString("</body></html>")
	return b.String()
}

// productHTML renders a minimal product page.
func productHTML(title, price string) string {
	return fmt.Sprintf(`<html><head><title>%s</title></head><body><div id="dp">
<span id="productTitle">%s</span>
<span class="a-price"><span class="a-price-whole">%s</span></span>
</div></body></html>`, title, title, price)
}

// listingTab shows a fixed sequence of listing pages; clicking the next
// control moves to the following one.
type listingTab struct {
	scraper.Page
	pages     []*htmlpage.Page
	cur       int
	activated int
}

func newListingTab(pages ...string) *listingTab {
	t := &listingTab{}
	for _, p := range pages {
		t.pages = append(t.pages, htmlpage.MustParse(p))
	}
	t.Page = t.pages[0]
	return t
}

func (t *listingTab) Click(selector string) error {
	if selector != nextPageSelector {
		return t.Page.Click(selector)
	}
	if has, _ := t.Page.Has(selector); !has {
		return scraper.ErrNotFound
	}
	if t.cur+1 < len(t.pages) {
		t.cur++
		t.Page = t.pages[t.cur]
	}
	return nil
}

func (t *listingTab) Navigate(context.Context, string) error { return nil }
func (t *listingTab) Activate() error                        { t.activated++; return nil }
func (t *listingTab) Close() error                           { return nil }

// productTab serves product pages by URL.
type productTab struct {
	scraper.Page
	site   map[string]string
	closed bool
}

func (t *productTab) Navigate(_ context.Context, url string) error {
	markup, ok := t.site[url]
	if !ok {
		return fmt.Errorf("navigation failed: %s", url)
	}
	t.Page = htmlpage.MustParse(markup)
	return nil
}

func (t *productTab) Activate() error { return nil }
func (t *productTab) Close() error    { t.closed = true; return nil }

// panicPage blows up on any text lookup.
type panicPage struct {
	scraper.Page
}

func (panicPage) Text(string) (string, error) { panic("renderer crashed") }

type fakeSession struct {
	main *listingTab
	site map[string]string

	// panics lists product URLs whose page panics during extraction.
	panics map[string]bool
	// hangs lists product URLs whose load never finishes.
	hangs   map[string]bool
	tabs    []*productTab
	openErr error
}

func (s *fakeSession) Main() scraper.Tab { return s.main }

func (s *fakeSession) NewTab(context.Context) (scraper.Tab, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	if n := len(s.tabs); n > 0 && !s.tabs[n-1].closed {
		return nil, errors.New("previous product tab still open")
	}
	tab := &productTab{Page: htmlpage.MustParse("<html></html>"), site: s.site}
	s.tabs = append(s.tabs, tab)
	return &scriptedTab{productTab: tab, panics: s.panics, hangs: s.hangs}, nil
}

// scriptedTab never finishes loading URLs marked to hang, and swaps in a
// panicPage after navigating to a URL marked to panic.
type scriptedTab struct {
	*productTab
	panics map[string]bool
	hangs  map[string]bool
}

func (t *scriptedTab) Navigate(ctx context.Context, url string) error {
	if t.hangs[url] {
		<-ctx.Done()
		return ctx.Err()
	}
	if err := t.productTab.Navigate(ctx, url); err != nil {
		return err
	}
	if t.panics[url] {
		t.productTab.Page = panicPage{Page: t.productTab.Page}
	}
	return nil
}

// recordingSink keeps records in insertion order.
type recordingSink struct {
	records []models.ProductRecord
}

func (s *recordingSink) Add(rec models.ProductRecord) { s.records = append(s.records, rec) }

func (s *recordingSink) titles() []string {
	out := make([]string, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Title)
	}
	return out
}

// scriptedProducts is a ProductScraper that answers from a table.
type scriptedProducts struct {
	calls []string
	fail  map[string]error
}

func (p *scriptedProducts) ScrapeProduct(_ context.Context, url string) (models.ProductRecord, error) {
	p.calls = append(p.calls, url)
	if err := p.fail[url]; err != nil {
		return models.ProductRecord{}, err
	}
	rec := models.NewProductRecord()
	rec.Title = url
	return rec, nil
}
