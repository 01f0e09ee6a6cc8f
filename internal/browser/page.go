package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"ListingScraper/internal/scraper"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// opTimeout bounds every single CDP call so a wedged tab cannot stall the run.
const opTimeout = 10 * time.Second

// Page adapts a rod page to scraper.Tab.
type Page struct {
	page       *rod.Page
	navTimeout time.Duration
}

func newPage(p *rod.Page, navTimeout time.Duration) *Page {
	return &Page{page: p, navTimeout: navTimeout}
}

// bounded returns the page limited to opTimeout and the func that releases
// the limit. Elements found through it share the limit, so release only once
// they are no longer used.
func (p *Page) bounded() (*rod.Page, func()) {
	pg := p.page.Timeout(opTimeout)
	return pg, func() { pg.CancelTimeout() }
}

func find(pg *rod.Page, selector string) (*rod.Element, error) {
	has, el, err := pg.Has(selector)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, scraper.ErrNotFound
	}
	return el, nil
}

func (p *Page) Text(selector string) (string, error) {
	pg, release := p.bounded()
	defer release()
	el, err := find(pg, selector)
	if err != nil {
		return "", err
	}
	return el.Text()
}

func (p *Page) HTML(selector string) (string, error) {
	pg, release := p.bounded()
	defer release()
	el, err := find(pg, selector)
	if err != nil {
		return "", err
	}
	return el.HTML()
}

func (p *Page) Attributes(selector, name string) ([]string, error) {
	pg, release := p.bounded()
	defer release()
	els, err := pg.Elements(selector)
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(els))
	for _, el := range els {
		v, err := el.Attribute(name)
		if err != nil || v == nil {
			continue
		}
		values = append(values, *v)
	}
	return values, nil
}

func (p *Page) PageHTML() (string, error) {
	pg, release := p.bounded()
	defer release()
	return pg.HTML()
}

func (p *Page) Has(selector string) (bool, error) {
	pg, release := p.bounded()
	defer release()
	has, _, err := pg.Has(selector)
	return has, err
}

func (p *Page) Click(selector string) error {
	pg, release := p.bounded()
	defer release()
	el, err := find(pg, selector)
	if err != nil {
		return err
	}
	if err := el.ScrollIntoView(); err != nil {
		return fmt.Errorf("failed to scroll %q into view: %w", selector, err)
	}
	return click(el)
}

// click tries a real mouse click first and falls back to a DOM click, which
// still works when an overlay covers the element.
func click(el *rod.Element) error {
	limited := el.Timeout(5 * time.Second)
	err := limited.Click(proto.InputMouseButtonLeft, 1)
	limited.CancelTimeout()
	if err == nil {
		return nil
	}
	if _, jsErr := el.Eval(`() => this.click()`); jsErr != nil {
		return errors.Join(err, jsErr)
	}
	return nil
}

func (p *Page) ClickAll(ctx context.Context, selector string, settle time.Duration) (int, error) {
	pg, release := p.bounded()
	els, err := pg.Elements(selector)
	release()
	if err != nil {
		return 0, err
	}
	clicked := 0
	for _, el := range els {
		// each click gets its own limit; the settle pauses are not CDP calls
		limited := el.Context(ctx).Timeout(opTimeout)
		_, err := limited.Eval(`() => this.click()`)
		limited.CancelTimeout()
		if err != nil {
			log.Printf("Failed to click %q: %v", selector, err)
			continue
		}
		clicked++
		if err := scraper.Sleep(ctx, settle); err != nil {
			return clicked, err
		}
	}
	return clicked, nil
}

func (p *Page) ScrollIntoView(selector string) error {
	pg, release := p.bounded()
	defer release()
	el, err := find(pg, selector)
	if err != nil {
		return err
	}
	return el.ScrollIntoView()
}

func (p *Page) ScrollBy(dy int) (bool, error) {
	pg, release := p.bounded()
	defer release()
	res, err := pg.Eval(`(dy) => {
		window.scrollBy(0, dy);
		return window.innerHeight + window.pageYOffset >= document.body.scrollHeight - 10;
	}`, dy)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

// Navigate loads url and waits for the load event, both within the
// navigation timeout.
func (p *Page) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx)
	if p.navTimeout > 0 {
		page = page.Timeout(p.navTimeout)
		defer page.CancelTimeout()
	}
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("failed to wait for load of %s: %w", url, err)
	}
	return nil
}

func (p *Page) Activate() error {
	_, err := p.page.Activate()
	return err
}

func (p *Page) Close() error {
	return p.page.Close()
}
