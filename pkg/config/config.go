package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables that override config.yml,
// e.g. LISTING_BROWSER_HEADLESS=true or LISTING_TIMING_LISTINGTIMEOUT=20s.
const EnvPrefix = "LISTING"

// Delay is a pacing interval drawn uniformly from [Min, Max].
// A zero Delay disables the pause.
type Delay struct {
	Min time.Duration `yaml:"min"`
	Max time.Duration `yaml:"max"`
}

// Duration picks one interval from the range.
func (d Delay) Duration() time.Duration {
	if d.Max <= d.Min {
		return d.Min
	}
	return d.Min + time.Duration(rand.Int63n(int64(d.Max-d.Min)+1))
}

// BrowserConfig holds settings for launching the browser.
type BrowserConfig struct {
	Headless  bool   `yaml:"headless"`
	NoSandbox bool   `yaml:"no_sandbox"`
	Bin       string `yaml:"bin"`
}

// IdentityConfig is the session identity policy, fixed when the session opens.
type IdentityConfig struct {
	UserAgents         []string `yaml:"user_agents"`
	RandomizeUserAgent bool     `yaml:"randomize_user_agent"`
	FixedUserAgent     string   `yaml:"fixed_user_agent"`
	Language           string   `yaml:"language"`
}

// TimingConfig holds every bounded wait and pacing delay of a run.
type TimingConfig struct {
	LoginWait           Delay         `yaml:"login_wait"`
	NavigationTimeout   time.Duration `yaml:"navigation_timeout"`
	ListingTimeout      time.Duration `yaml:"listing_timeout"`
	PaginationTimeout   time.Duration `yaml:"pagination_timeout"`
	PaginationPacing    Delay         `yaml:"pagination_pacing"`
	ProductReadyTimeout time.Duration `yaml:"product_ready_timeout"`
	ProductSettle       Delay         `yaml:"product_settle"`
	MinProductInterval  time.Duration `yaml:"min_product_interval"`
	PollInterval        time.Duration `yaml:"poll_interval"`
	ScrollStep          int           `yaml:"scroll_step"`
	ScrollPause         time.Duration `yaml:"scroll_pause"`
	MaxScrollSteps      int           `yaml:"max_scroll_steps"`
	ExpanderSettle      time.Duration `yaml:"expander_settle"`
}

// OutputConfig controls where the run snapshot is written.
type OutputConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds settings of the web front-end.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Config is the complete structure for the config.yml file.
type Config struct {
	Browser  BrowserConfig  `yaml:"browser"`
	Identity IdentityConfig `yaml:"identity"`
	Timing   TimingConfig   `yaml:"timing"`
	Output   OutputConfig   `yaml:"output"`
	Server   ServerConfig   `yaml:"server"`
}

// Default returns the configuration used when config.yml is absent.
func Default() *Config {
	return &Config{
		Browser: BrowserConfig{Headless: false},
		Identity: IdentityConfig{
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
				"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36 Edg/123.0.0.0",
			},
			RandomizeUserAgent: true,
			Language:           "en-US",
		},
		Timing: TimingConfig{
			LoginWait:           Delay{Min: 3 * time.Second, Max: 7 * time.Second},
			NavigationTimeout:   40 * time.Second,
			ListingTimeout:      15 * time.Second,
			PaginationTimeout:   10 * time.Second,
			PaginationPacing:    Delay{Min: 2 * time.Second, Max: 4 * time.Second},
			ProductReadyTimeout: 15 * time.Second,
			ProductSettle:       Delay{Min: 3 * time.Second, Max: 6 * time.Second},
			MinProductInterval:  time.Second,
			PollInterval:        250 * time.Millisecond,
			ScrollStep:          600,
			ScrollPause:         300 * time.Millisecond,
			MaxScrollSteps:      40,
			ExpanderSettle:      500 * time.Millisecond,
		},
		Output: OutputConfig{Path: "amazon_products.json"},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// LoadConfig reads filepath on top of the defaults, then applies environment
// overrides. A missing file is not an error.
func LoadConfig(filepath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Printf("Config file %s not found, using defaults", filepath)
	case err != nil:
		return nil, fmt.Errorf("error reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error unmarshalling config YAML: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error applying environment overrides: %w", err)
	}
	return cfg, nil
}
