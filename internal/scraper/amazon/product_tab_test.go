package amazon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScraper(listing *listingTab, site map[string]string) (*AmazonScraper, *fakeSession) {
	session := &fakeSession{main: listing, site: site, panics: map[string]bool{}, hangs: map[string]bool{}}
	return New(session, fastTiming()), session
}

func assertTabsClosed(t *testing.T, session *fakeSession) {
	t.Helper()
	for i, tab := range session.tabs {
		assert.True(t, tab.closed, "tab %d left open", i)
	}
}

func TestScrapeListingTwoProducts(t *testing.T) {
	listing := newListingTab(listingHTML(false, "/dp/K1", "/dp/K2"))
	s, session := newTestScraper(listing, map[string]string{
		abs("/dp/K1"): fullProductPage,
		abs("/dp/K2"): productHTML("Acme Toaster", "49."),
	})
	sink := &recordingSink{}

	sum, err := s.ScrapeListing(context.Background(), testLanding, 1, sink)

	require.NoError(t, err)
	assert.Equal(t, Summary{State: Done, Pages: 1, Products: 2}, sum)
	require.Len(t, sink.records, 2)
	assert.Equal(t, "Acme Kettle 1.7L", sink.records[0].Title)
	assert.Equal(t, "Brushed steel body.", sink.records[0].Description.Text)
	assert.Equal(t, "Acme Toaster", sink.records[1].Title)
	assert.Equal(t, "49", sink.records[1].Price)
	for _, rec := range sink.records {
		assert.True(t, rec.Complete())
	}
	assert.Len(t, session.tabs, 2)
	assertTabsClosed(t, session)
	assert.Equal(t, 2, listing.activated, "listing tab refocused after each product")
}

func TestScrapeListingSurvivesPanickingProduct(t *testing.T) {
	listing := newListingTab(listingHTML(false, "/dp/P1", "/dp/P2", "/dp/P3"))
	s, session := newTestScraper(listing, map[string]string{
		abs("/dp/P1"): productHTML("One", "1."),
		abs("/dp/P2"): productHTML("Two", "2."),
		abs("/dp/P3"): productHTML("Three", "3."),
	})
	session.panics[abs("/dp/P2")] = true
	sink := &recordingSink{}

	sum, err := s.ScrapeListing(context.Background(), testLanding, 1, sink)

	require.NoError(t, err)
	assert.Equal(t, Summary{State: Done, Pages: 1, Products: 2, Failed: 1}, sum)
	assert.Equal(t, []string{"One", "Three"}, sink.titles())
	assert.Len(t, session.tabs, 3)
	assertTabsClosed(t, session)
}

func TestScrapeListingSkipsProductThatNeverLoads(t *testing.T) {
	listing := newListingTab(listingHTML(false, "/dp/P1", "/dp/P2", "/dp/P3"))
	s, session := newTestScraper(listing, map[string]string{
		abs("/dp/P1"): productHTML("One", "1."),
		abs("/dp/P3"): productHTML("Three", "3."),
	})
	session.hangs[abs("/dp/P2")] = true
	sink := &recordingSink{}

	sum, err := s.ScrapeListing(context.Background(), testLanding, 1, sink)

	require.NoError(t, err)
	assert.Equal(t, Summary{State: Done, Pages: 1, Products: 2, Failed: 1}, sum)
	assert.Equal(t, []string{"One", "Three"}, sink.titles())
	assertTabsClosed(t, session)
}

func TestScrapeProductNavigationTimeout(t *testing.T) {
	listing := newListingTab(listingHTML(false))
	s, session := newTestScraper(listing, nil)
	session.hangs[abs("/dp/H")] = true

	start := time.Now()
	_, err := s.ScrapeProduct(context.Background(), abs("/dp/H"))

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
	assertTabsClosed(t, session)
	assert.Equal(t, 1, listing.activated)
}

func TestScrapeProductClosesTabOnNavigationError(t *testing.T) {
	listing := newListingTab(listingHTML(false))
	s, session := newTestScraper(listing, map[string]string{})

	_, err := s.ScrapeProduct(context.Background(), abs("/dp/missing"))

	require.Error(t, err)
	require.Len(t, session.tabs, 1)
	assertTabsClosed(t, session)
	assert.Equal(t, 1, listing.activated)
}

func TestScrapeProductRecoversPanic(t *testing.T) {
	listing := newListingTab(listingHTML(false))
	s, session := newTestScraper(listing, map[string]string{abs("/dp/X"): productHTML("X", "1.")})
	session.panics[abs("/dp/X")] = true

	rec, err := s.ScrapeProduct(context.Background(), abs("/dp/X"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
	assert.Empty(t, rec.Title)
	assertTabsClosed(t, session)
	assert.Equal(t, 1, listing.activated)
}

func TestScrapeProductDetectsRobotCheck(t *testing.T) {
	listing := newListingTab(listingHTML(false))
	s, session := newTestScraper(listing, map[string]string{
		abs("/dp/R"): `<html><head><title>Robot Check</title></head><body>
<form action="/errors/validateCaptcha"><input name="field-keywords"></form></body></html>`,
	})

	_, err := s.ScrapeProduct(context.Background(), abs("/dp/R"))

	require.ErrorIs(t, err, ErrRobotCheck)
	assertTabsClosed(t, session)
}

func TestScrapeProductTabOpenFailure(t *testing.T) {
	listing := newListingTab(listingHTML(false))
	s, session := newTestScraper(listing, nil)
	session.openErr = errors.New("target closed")

	_, err := s.ScrapeProduct(context.Background(), abs("/dp/A"))

	require.Error(t, err)
	assert.Empty(t, session.tabs)
}

func TestScrapeProductRespectsMinimumInterval(t *testing.T) {
	listing := newListingTab(listingHTML(false))
	site := map[string]string{abs("/dp/A"): productHTML("A", "1."), abs("/dp/B"): productHTML("B", "2.")}
	timing := fastTiming()
	timing.MinProductInterval = 40 * time.Millisecond
	session := &fakeSession{main: listing, site: site}
	s := New(session, timing)

	start := time.Now()
	_, err := s.ScrapeProduct(context.Background(), abs("/dp/A"))
	require.NoError(t, err)
	_, err = s.ScrapeProduct(context.Background(), abs("/dp/B"))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}
