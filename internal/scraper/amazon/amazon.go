package amazon

import (
	"ListingScraper/internal/models"
	"ListingScraper/internal/scraper"
	"ListingScraper/pkg/config"

	"golang.org/x/time/rate"
)

// Sink receives the records of a run in discovery order.
type Sink interface {
	Add(rec models.ProductRecord)
}

// AmazonScraper drives one session through a search listing and its
// product pages.
type AmazonScraper struct {
	Session  scraper.Session
	Timing   config.TimingConfig
	Pipeline *Pipeline

	limiter *rate.Limiter
}

// New wires a scraper to an open session.
func New(session scraper.Session, timing config.TimingConfig) *AmazonScraper {
	limit := rate.Inf
	if timing.MinProductInterval > 0 {
		limit = rate.Every(timing.MinProductInterval)
	}
	return &AmazonScraper{
		Session:  session,
		Timing:   timing,
		Pipeline: NewPipeline(timing),
		limiter:  rate.NewLimiter(limit, 1),
	}
}
