package feed

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/GriffinCanCode/feedproxy/internal/providers/scraper"
	"go.uber.org/zap"
)

// Extractor picks the best feed candidate from a stabilized page.
type Extractor struct {
	minLength int
	logger    *zap.Logger
}

// NewExtractor creates an extractor rejecting candidates shorter than
// minLength after trimming.
func NewExtractor(minLength int) *Extractor {
	return &Extractor{minLength: minLength, logger: zap.NewNop()}
}

// WithLogger sets the logger.
func (e *Extractor) WithLogger(l *zap.Logger) *Extractor {
	if l != nil {
		e.logger = l
	}
	return e
}

// Extract reads one snapshot of the page and runs the strategies on it.
func (e *Extractor) Extract(ctx context.Context, page Page) (ExtractionResult, error) {
	markup, err := page.HTML(ctx)
	if err != nil {
		return ExtractionResult{Source: SourceNone}, err
	}
	return e.ExtractFrom(markup), nil
}

// ExtractFrom runs the strategies in order on serialized page markup:
//
//  1. the whole document, if it classifies as a feed
//  2. the first <pre> element, if its text classifies as a feed
//  3. the body text, unconditionally
//
// A candidate shorter than the minimum length never wins.
func (e *Extractor) ExtractFrom(markup string) ExtractionResult {
	if e.longEnough(markup) && IsLikelyFeedContent(markup) {
		return ExtractionResult{Candidate: markup, Found: true, Source: SourceDirectBody}
	}

	snap, err := scraper.ParseSnapshot(markup)
	if err != nil {
		e.logger.Warn("failed to parse page snapshot", zap.Error(err))
		return ExtractionResult{Source: SourceNone}
	}

	if pre, ok := snap.PreText(); ok && e.longEnough(pre) && IsLikelyFeedContent(pre) {
		return ExtractionResult{Candidate: pre, Found: true, Source: SourcePreTag}
	}

	if body := snap.BodyText(); e.longEnough(body) {
		return ExtractionResult{Candidate: body, Found: true, Source: SourceBodyText}
	}

	return ExtractionResult{Source: SourceNone}
}

func (e *Extractor) longEnough(text string) bool {
	trimmed := strings.TrimSpace(text)
	return trimmed != "" && utf8.RuneCountInString(trimmed) >= e.minLength
}
