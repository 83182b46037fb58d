// Command extract runs the AP2 report extraction pipeline over a
// directory of downloaded reports and writes the delivery workbook.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"ap2_extraction/pkg/core/config"
	"ap2_extraction/pkg/core/document"
	"ap2_extraction/pkg/core/logging"
	"ap2_extraction/pkg/core/output"
	"ap2_extraction/pkg/core/pattern"
	"ap2_extraction/pkg/core/pipeline"
	"ap2_extraction/pkg/core/reconcile"
	"ap2_extraction/pkg/core/schema"
	"ap2_extraction/pkg/core/semantic"
	"ap2_extraction/pkg/core/store"
	"ap2_extraction/pkg/core/table"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "extract:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to YAML config")
	inputDir := flag.String("input", "", "input directory (overrides config)")
	outputDir := flag.String("output", "", "output directory (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *inputDir != "" {
		cfg.InputDir = *inputDir
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}

	log, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	catalog := schema.Default()
	if cfg.CatalogPath != "" {
		catalog, err = schema.Load(cfg.CatalogPath)
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var saver pipeline.RunSaver
	if cfg.StoreRuns {
		if err := store.Connect(ctx); err != nil {
			return fmt.Errorf("run history requested but unavailable: %w", err)
		}
		defer store.Close()
		saver = store.NewRunRepo()
	}

	reconciler := reconcile.New(catalog, log,
		table.NewExtractor(log),
		pattern.NewMatcher(log),
		semantic.NewExtractor(log, cfg.Semantic.MaxAttempts, buildProviders(cfg, log)...),
	)
	orch := pipeline.New(reconciler, log, cfg.Concurrency, cfg.ReportKind, saver)

	docs, err := loadDocuments(cfg.InputDir, log)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no report files found in %s", cfg.InputDir)
	}

	outcomes, err := orch.RunAll(ctx, docs)
	if err != nil {
		return err
	}

	records := pipeline.Records(outcomes)
	if len(records) == 0 {
		return fmt.Errorf("extraction produced no usable records")
	}

	writer := output.NewWriter(log)
	res, err := writer.WriteAll(cfg.OutputDir, catalog, records)
	if err != nil {
		return err
	}

	log.Info("run complete",
		zap.Int("documents", len(docs)),
		zap.Int("records", len(records)),
		zap.Float64("fill_rate", res.FillRate),
		zap.String("workbook", res.XLSXPath))
	return nil
}

// buildProviders assembles the semantic fallback chain from config:
// every OpenRouter model in order, then Gemini as the last resort.
func buildProviders(cfg *config.Config, log *zap.Logger) []semantic.Provider {
	var providers []semantic.Provider

	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		for _, model := range cfg.Semantic.Models {
			providers = append(providers, semantic.NewOpenRouterProvider(key, model))
		}
	} else if len(cfg.Semantic.Models) > 0 {
		log.Warn("OPENROUTER_API_KEY not set, skipping OpenRouter models")
	}

	if cfg.Semantic.GeminiModel != "" {
		if os.Getenv("GEMINI_API_KEY") != "" {
			providers = append(providers, &semantic.GeminiProvider{Model: cfg.Semantic.GeminiModel})
		} else {
			log.Warn("GEMINI_API_KEY not set, skipping Gemini fallback")
		}
	}

	if len(providers) == 0 {
		log.Warn("semantic tier disabled: no provider credentials")
	}
	return providers
}

// loadDocuments scans the input directory for report files. The year
// comes from the filename; PDF text layers come from .txt sidecars,
// which are not themselves treated as inputs when the PDF exists.
func loadDocuments(dir string, log *zap.Logger) ([]*document.Document, error) {
	var docs []*document.Document

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		switch ext {
		case ".pdf", ".html", ".htm", ".txt":
		default:
			return nil
		}
		if ext == ".txt" {
			pdf := strings.TrimSuffix(path, filepath.Ext(path)) + ".pdf"
			if _, statErr := os.Stat(pdf); statErr == nil {
				return nil // sidecar of a PDF input
			}
		}

		year, ok := document.YearFromFilename(path)
		if !ok {
			log.Warn("skipping file without a report year in its name", zap.String("file", path))
			return nil
		}

		doc, err := document.Load(path, year)
		if err != nil {
			if errors.Is(err, document.ErrNoTextLayer) {
				log.Error("skipping document without text layer", zap.String("file", path))
				return nil
			}
			return err
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	return docs, nil
}
