// Package importer seeds a draft run from a live landing page.
package importer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dtnitsch/landing-ops/models"
	"github.com/dtnitsch/landing-ops/pkg/detector"
	"github.com/dtnitsch/landing-ops/pkg/fetcher"
	"github.com/dtnitsch/landing-ops/pkg/parser"
)

const maxSupporting = 3

type Importer struct {
	fetcher  *fetcher.Fetcher
	parser   *parser.Parser
	detector *detector.Detector
	logger   *slog.Logger
}

func New(f *fetcher.Fetcher, logger *slog.Logger) *Importer {
	if f == nil {
		f = fetcher.NewFetcher()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{fetcher: f, parser: &parser.Parser{}, detector: detector.New(), logger: logger}
}

// Import fetches rawURL and extracts an ImportedPage from it.
func (im *Importer) Import(ctx context.Context, rawURL string, maxBlocks int) (*models.ImportedPage, error) {
	resp, err := im.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	im.logger.Debug("fetched page", "url", rawURL, "bytes", len(resp.Body), "from_cache", resp.FromCache)

	page, err := im.parser.Parse(models.ParseRequest{URL: rawURL, HTML: string(resp.Body), MaxBodyBlocks: maxBlocks})
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", rawURL, err)
	}
	page.FinalURL = resp.FinalURL
	page.FromCache = resp.FromCache
	im.detector.Analyze(page)

	im.logger.Info("imported page", "url", rawURL, "language", page.Language, "intent", page.Intent, "words", page.WordCount, "faq", len(page.FAQ))
	return page, nil
}

// ToNewRun maps an imported page onto a draft. An empty primary keyword
// takes the first suggestion; the next suggestions become supporting
// keywords unless supporting is given.
func ToNewRun(page *models.ImportedPage, primary string, supporting []string) models.NewRun {
	primary = strings.TrimSpace(primary)
	suggestions := page.Keywords
	if primary == "" && len(suggestions) > 0 {
		primary, suggestions = suggestions[0], suggestions[1:]
	}
	if len(supporting) == 0 {
		for _, k := range suggestions {
			if strings.Contains(primary, k) {
				continue
			}
			supporting = append(supporting, k)
			if len(supporting) == maxSupporting {
				break
			}
		}
	}

	return models.NewRun{
		MetaTitle:          page.Title,
		MetaDescription:    page.MetaDescription,
		LandingText:        page.Text,
		PrimaryKeyword:     primary,
		SupportingKeywords: supporting,
		Intent:             page.Intent,
		H1:                 page.H1,
		BodyHTML:           page.BodyHTML,
		FAQ:                page.FAQ,
		CanonicalURL:       page.CanonicalURL,
	}
}
