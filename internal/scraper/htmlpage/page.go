// Package htmlpage implements scraper.Page over a static HTML document.
//
// It lets the extraction pipeline run against saved product pages, which is
// how the extract task and most tests drive it. Interactions that only make
// sense in a live browser (clicks, scrolling) succeed without changing the
// document.
package htmlpage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"ListingScraper/internal/scraper"

	"github.com/PuerkitoBio/goquery"
)

// Page is a parsed HTML document.
type Page struct {
	doc *goquery.Document
}

// New parses the document read from r.
func New(r io.Reader) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Page{doc: doc}, nil
}

// MustParse parses markup and panics on error. Meant for tests.
func MustParse(markup string) *Page {
	p, err := New(strings.NewReader(markup))
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Page) first(selector string) (*goquery.Selection, error) {
	sel := p.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, scraper.ErrNotFound
	}
	return sel, nil
}

func (p *Page) Text(selector string) (string, error) {
	sel, err := p.first(selector)
	if err != nil {
		return "", err
	}
	return InnerText(sel.Get(0)), nil
}

func (p *Page) HTML(selector string) (string, error) {
	sel, err := p.first(selector)
	if err != nil {
		return "", err
	}
	return goquery.OuterHtml(sel)
}

func (p *Page) Attributes(selector, name string) ([]string, error) {
	var values []string
	p.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr(name); ok {
			values = append(values, v)
		}
	})
	return values, nil
}

func (p *Page) PageHTML() (string, error) {
	return p.doc.Html()
}

func (p *Page) Has(selector string) (bool, error) {
	return p.doc.Find(selector).Length() > 0, nil
}

func (p *Page) Click(selector string) error {
	_, err := p.first(selector)
	return err
}

func (p *Page) ClickAll(ctx context.Context, selector string, settle time.Duration) (int, error) {
	return p.doc.Find(selector).Length(), ctx.Err()
}

func (p *Page) ScrollIntoView(selector string) error {
	_, err := p.first(selector)
	return err
}

// ScrollBy always reports the bottom: a static document has nothing to lazy-load.
func (p *Page) ScrollBy(dy int) (bool, error) {
	return true, nil
}
