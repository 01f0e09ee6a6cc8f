package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ListingScraper/internal/app"
	"ListingScraper/internal/scraper/amazon"
	"ListingScraper/internal/scraper/htmlpage"
	"ListingScraper/pkg/config"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	task := flag.String("task", "scrape", "Task to run: scrape or extract")
	configPath := flag.String("config", "config.yml", "Path to the config file")
	landingURL := flag.String("url", "", "Search results URL to start from (scrape)")
	pages := flag.Int("pages", 1, "Maximum number of listing pages to visit (scrape)")
	out := flag.String("out", "", "Output file, overrides output.path (scrape)")
	file := flag.String("file", "", "Saved product page to extract (extract)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Running task: %s", *task)

	switch *task {
	case "scrape":
		rc := app.RunConfigFrom(cfg, *landingURL, *pages)
		if *out != "" {
			rc.OutputPath = *out
		}
		path, err := app.Run(ctx, rc)
		if err != nil {
			log.Fatalf("Scrape failed: %v", err)
		}
		log.Printf("Products written to %s", path)

	case "extract":
		if err := extractFile(ctx, cfg, *file); err != nil {
			log.Fatalf("Extract failed: %v", err)
		}

	default:
		log.Fatalf("Unknown task: %s.", *task)
	}
}

// extractFile runs the product pipeline over a saved product page and prints
// the record.
func extractFile(ctx context.Context, cfg *config.Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	page, err := htmlpage.New(f)
	if err != nil {
		return err
	}
	rec, err := amazon.NewPipeline(cfg.Timing).Extract(ctx, page)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	return enc.Encode(rec)
}
