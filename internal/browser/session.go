// Package browser owns the single rod browser session of a run: launch flags,
// identity, stealth tabs, the initial navigation and the login pause.
package browser

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"ListingScraper/internal/scraper"
	"ListingScraper/pkg/config"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Options configures Open.
type Options struct {
	Browser  config.BrowserConfig
	Identity config.IdentityConfig
	// NavigationTimeout bounds every page load of the session; zero means
	// loads are bounded only by the caller's context.
	NavigationTimeout time.Duration
}

// Session is one launched browser plus its main (listing) tab.
type Session struct {
	launcher   *launcher.Launcher
	browser    *rod.Browser
	main       *Page
	identity   Identity
	navTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

var _ scraper.Session = (*Session)(nil)

// Open launches the browser with automation signals suppressed and opens the
// main tab. Any failure here is a session-level failure.
func Open(ctx context.Context, opts Options) (*Session, error) {
	id := PickIdentity(opts.Identity, nil)
	log.Printf("Opening browser session (headless=%t, lang=%s, user-agent=%q)", opts.Browser.Headless, id.Language, id.UserAgent)

	l := launcher.New().
		Context(ctx).
		Headless(opts.Browser.Headless).
		NoSandbox(opts.Browser.NoSandbox)
	if opts.Browser.Bin != "" {
		l = l.Bin(opts.Browser.Bin)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("start-maximized"))
	l.Set(flags.Flag("lang"), id.Language)
	if id.UserAgent != "" {
		l.Set(flags.Flag("user-agent"), id.UserAgent)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	s := &Session{launcher: l, browser: b, identity: id, navTimeout: opts.NavigationTimeout}

	main, err := s.newStealthPage()
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to open main tab: %w", err)
	}
	s.main = main
	return s, nil
}

func (s *Session) newStealthPage() (*Page, error) {
	page, err := stealth.Page(s.browser)
	if err != nil {
		return nil, err
	}
	if s.identity.UserAgent != "" {
		err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      s.identity.UserAgent,
			AcceptLanguage: s.identity.Language,
		})
		if err != nil {
			_ = page.Close()
			return nil, fmt.Errorf("failed to set user agent: %w", err)
		}
	}
	return newPage(page, s.navTimeout), nil
}

// Main returns the listing tab.
func (s *Session) Main() scraper.Tab {
	return s.main
}

// NewTab opens a stealth tab carrying the session identity.
func (s *Session) NewTab(ctx context.Context) (scraper.Tab, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.newStealthPage()
}

// NavigateAndAwaitLogin loads url in the main tab and then blocks for the
// login pause so a human can clear any sign-in prompt. Login state is never
// checked.
func (s *Session) NavigateAndAwaitLogin(ctx context.Context, url string, wait config.Delay) error {
	if err := s.main.Navigate(ctx, url); err != nil {
		return err
	}
	d := wait.Duration()
	log.Printf("Waiting %s for login if needed...", d)
	return scraper.Sleep(ctx, d)
}

// Close shuts the browser down. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		log.Println("Closing browser session")
		s.closeErr = s.browser.Close()
		s.launcher.Cleanup()
	})
	return s.closeErr
}
