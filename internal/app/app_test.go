package app

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ListingScraper/internal/browser"
	"ListingScraper/internal/models"
	"ListingScraper/internal/scraper"
	"ListingScraper/internal/scraper/htmlpage"
	"ListingScraper/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingHTML = `<html><body>
<a class="a-link-normal s-no-outline" href="/dp/B001">one</a>
</body></html>`

const productHTML = `<html><body><div id="dp">
<span id="productTitle"> Kettle </span>
<span class="a-price-whole">24.</span>
</div></body></html>`

type fakeTab struct {
	scraper.Page
	site   map[string]string
	closed bool
}

func (t *fakeTab) Navigate(_ context.Context, url string) error {
	markup, ok := t.site[url]
	if !ok {
		return errors.New("no such page: " + url)
	}
	t.Page = htmlpage.MustParse(markup)
	return nil
}

func (t *fakeTab) Activate() error { return nil }

func (t *fakeTab) Close() error {
	t.closed = true
	return nil
}

type fakeSession struct {
	main   *fakeTab
	site   map[string]string
	closed bool
}

func newFakeSession(site map[string]string) *fakeSession {
	return &fakeSession{main: &fakeTab{Page: htmlpage.MustParse("<html></html>"), site: site}, site: site}
}

func (s *fakeSession) Main() scraper.Tab { return s.main }

func (s *fakeSession) NewTab(context.Context) (scraper.Tab, error) {
	return &fakeTab{Page: htmlpage.MustParse("<html></html>"), site: s.site}, nil
}

func (s *fakeSession) NavigateAndAwaitLogin(ctx context.Context, url string, _ config.Delay) error {
	return s.main.Navigate(ctx, url)
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

func fastTiming() config.TimingConfig {
	return config.TimingConfig{
		ListingTimeout:      50 * time.Millisecond,
		PaginationTimeout:   50 * time.Millisecond,
		ProductReadyTimeout: 50 * time.Millisecond,
		PollInterval:        time.Millisecond,
	}
}

func testRun(t *testing.T, landing string, pages int) RunConfig {
	t.Helper()
	return RunConfig{
		LandingURL: landing,
		MaxPages:   pages,
		OutputPath: filepath.Join(t.TempDir(), "products.json"),
		Timing:     fastTiming(),
	}
}

func readRecords(t *testing.T, path string) []models.ProductRecord {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var recs []models.ProductRecord
	require.NoError(t, json.Unmarshal(data, &recs))
	return recs
}

func TestRunRejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		pages int
	}{
		{"zero pages", "https://www.amazon.com/s?k=kettle", 0},
		{"negative pages", "https://www.amazon.com/s?k=kettle", -1},
		{"empty url", "", 1},
		{"relative url", "/s?k=kettle", 1},
		{"ftp url", "ftp://www.amazon.com/s", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := testRun(t, tt.url, tt.pages)
			opened := false
			_, err := run(context.Background(), rc, func(context.Context, browser.Options) (Session, error) {
				opened = true
				return nil, errors.New("unexpected")
			})
			require.ErrorIs(t, err, ErrInvalidRun)
			assert.False(t, opened, "browser must not be launched")
			assert.NoFileExists(t, rc.OutputPath)
		})
	}
}

func TestRunSessionFailureStillWritesOutput(t *testing.T) {
	rc := testRun(t, "https://www.amazon.com/s?k=kettle", 1)
	boom := errors.New("no browser")

	path, err := run(context.Background(), rc, func(context.Context, browser.Options) (Session, error) {
		return nil, boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, rc.OutputPath, path)
	assert.Empty(t, readRecords(t, path))
}

func TestRunScrapesListingToFile(t *testing.T) {
	landing := "https://www.amazon.com/s?k=kettle"
	session := newFakeSession(map[string]string{
		landing:                         listingHTML,
		"https://www.amazon.com/dp/B001": productHTML,
	})
	rc := testRun(t, landing, 3)

	path, err := run(context.Background(), rc, func(context.Context, browser.Options) (Session, error) {
		return session, nil
	})

	require.NoError(t, err)
	assert.True(t, session.closed)
	recs := readRecords(t, path)
	require.Len(t, recs, 1)
	assert.Equal(t, "Kettle", recs[0].Title)
	assert.Equal(t, "24", recs[0].Price)
	assert.Equal(t, models.NotAvailable, recs[0].AboutBullets)
}

func TestRunCancelledStillFlushes(t *testing.T) {
	landing := "https://www.amazon.com/s?k=kettle"
	session := newFakeSession(map[string]string{landing: listingHTML})
	rc := testRun(t, landing, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path, err := run(ctx, rc, func(context.Context, browser.Options) (Session, error) {
		return session, nil
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, session.closed)
	assert.Empty(t, readRecords(t, path))
}

func TestRunConfigFrom(t *testing.T) {
	cfg := config.Default()
	rc := RunConfigFrom(cfg, "https://www.amazon.com/s?k=x", 2)

	assert.Equal(t, cfg.Output.Path, rc.OutputPath)
	assert.Equal(t, cfg.Timing, rc.Timing)
	assert.Equal(t, 2, rc.MaxPages)
	assert.NoError(t, rc.Validate())
}
