package amazon

import (
	"context"
	"log"
	"strings"

	"ListingScraper/internal/models"
	"ListingScraper/internal/scraper"
	"ListingScraper/pkg/config"
	"ListingScraper/utils"
)

const (
	titleSelector       = "#productTitle"
	priceSelector       = "span.a-price-whole"
	bulletsSelector     = "#feature-bullets"
	bookDescSelector    = "#bookDescription_feature_div span"
	prodDetailsSelector = "#prodDetails"
	detailBulletsSel    = "#detailBullets_feature_div"
	expanderSelector    = `a.a-expander-header[aria-expanded="false"]`
	plainDescSelector   = "#productDescription"
)

// richDescSelectors are tried in order; the first present block is used.
var richDescSelectors = []string{"#aplus_feature_div", "#aplus"}

// strategy is one tier of a field's fallback chain. It reports false when
// it found nothing usable; it never fails the whole product.
type strategy[T any] func(ctx context.Context, page scraper.Page) (T, bool)

// firstOf runs the strategies in order and returns the first present value,
// or fallback when every tier comes up empty.
func firstOf[T any](ctx context.Context, page scraper.Page, field string, fallback T, tiers ...strategy[T]) T {
	for i, tier := range tiers {
		if ctx.Err() != nil {
			break
		}
		if v, ok := tier(ctx, page); ok {
			if i > 0 {
				log.Printf("%s: used fallback tier %d", field, i+1)
			}
			return v
		}
	}
	log.Printf("%s: not found", field)
	return fallback
}

// Pipeline extracts a ProductRecord from a loaded product page.
type Pipeline struct {
	Timing config.TimingConfig
}

// NewPipeline returns a pipeline paced by timing.
func NewPipeline(timing config.TimingConfig) *Pipeline {
	return &Pipeline{Timing: timing}
}

// Extract runs every field chain independently. It only fails when ctx is
// done; missing markup degrades to the "N/A" sentinel.
func (pl *Pipeline) Extract(ctx context.Context, page scraper.Page) (models.ProductRecord, error) {
	rec := models.NewProductRecord()

	rec.Title = firstOf(ctx, page, "title", models.NotAvailable,
		textOf(titleSelector, strings.TrimSpace))
	log.Printf("Title extraction completed: %s", rec.Title)

	rec.Price = firstOf(ctx, page, "price", models.NotAvailable,
		textOf(priceSelector, utils.CleanPrice))
	log.Printf("Price extraction completed: %s", rec.Price)

	rec.AboutBullets = firstOf(ctx, page, "about", models.NotAvailable,
		textOf(bulletsSelector, CleanBullets),
		textOf(bookDescSelector, strings.TrimSpace))
	log.Printf("About extraction completed: %d chars", len(rec.AboutBullets))

	pl.revealDetails(ctx, page)
	rec.ProductInfo = firstOf(ctx, page, "product information", models.NotAvailable,
		detailTable,
		textOf(prodDetailsSelector, StripBoilerplate),
		textOf(detailBulletsSel, StripBoilerplate))
	log.Printf("Product information extraction completed: %d chars", len(rec.ProductInfo))

	rec.Description = firstOf(ctx, page, "description", models.EmptyDescription(),
		richDescription,
		plainDescription)
	log.Printf("Description extraction completed: %d chars, %d images, video=%t",
		len(rec.Description.Text), len(rec.Description.Images), rec.Description.Video != "")

	if err := ctx.Err(); err != nil {
		return models.ProductRecord{}, err
	}
	return rec, nil
}

// textOf reads the text of selector and cleans it; an empty result is absent.
func textOf(selector string, clean func(string) string) strategy[string] {
	return func(_ context.Context, page scraper.Page) (string, bool) {
		text, err := page.Text(selector)
		if err != nil {
			return "", false
		}
		text = clean(text)
		return text, text != ""
	}
}

// revealDetails scrolls to the bottom in steps so lazy sections render, then
// opens every collapsed expander.
func (pl *Pipeline) revealDetails(ctx context.Context, page scraper.Page) {
	for i := 0; i < pl.Timing.MaxScrollSteps; i++ {
		atBottom, err := page.ScrollBy(pl.Timing.ScrollStep)
		if err != nil {
			log.Printf("Error during scrolling: %v", err)
			break
		}
		if atBottom {
			break
		}
		if err := scraper.Sleep(ctx, pl.Timing.ScrollPause); err != nil {
			return
		}
	}

	n, err := page.ClickAll(ctx, expanderSelector, pl.Timing.ExpanderSettle)
	if err != nil {
		log.Printf("Failed to expand detail sections: %v", err)
	}
	if n > 0 {
		log.Printf("Expanded %d detail sections", n)
	}
}

func detailTable(_ context.Context, page scraper.Page) (string, bool) {
	markup, err := page.PageHTML()
	if err != nil {
		return "", false
	}
	rows, err := ParseDetailRows(markup)
	if err != nil || len(rows) == 0 {
		return "", false
	}
	return strings.Join(rows, "\n"), true
}

func richDescription(_ context.Context, page scraper.Page) (models.Description, bool) {
	for _, sel := range richDescSelectors {
		markup, err := page.HTML(sel)
		if err != nil {
			continue
		}
		text, _ := page.Text(sel)
		desc := models.Description{
			Text:   CleanDescription(text),
			Images: ExtractImageURLs(markup),
		}
		if desc.Text == "" && len(desc.Images) == 0 {
			continue
		}
		if desc.Text == "" {
			desc.Text = models.NotAvailable
		}
		if whole, err := page.PageHTML(); err == nil {
			desc.Video = FindVideoURL(whole)
		}
		return desc, true
	}
	return models.Description{}, false
}

func plainDescription(ctx context.Context, page scraper.Page) (models.Description, bool) {
	text, ok := textOf(plainDescSelector, strings.TrimSpace)(ctx, page)
	if !ok {
		return models.Description{}, false
	}
	return models.Description{Text: text, Images: []string{}}, true
}
