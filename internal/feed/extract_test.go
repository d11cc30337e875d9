package feed

import (
	"context"
	"errors"
	"html"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bareRSSRoot is how the engine serializes a document served as XML:
// the root element only, no declaration and no html wrapper.
const bareRSSRoot = `<rss version="2.0"><channel><title>Example</title><item><title>One</title></item></channel></rss>`

func TestExtractFromStrategies(t *testing.T) {
	escapedFeed := html.EscapeString(atomFeed)
	longText := strings.Repeat("not a feed at all ", 5)

	tests := []struct {
		name       string
		markup     string
		wantSource Source
		wantFound  bool
		want       string
	}{
		{
			name:       "whole document is a feed",
			markup:     rssFeed,
			wantSource: SourceDirectBody,
			wantFound:  true,
			want:       rssFeed,
		},
		{
			name:       "feed rendered inside pre",
			markup:     "<html><head></head><body><pre>" + escapedFeed + "</pre></body></html>",
			wantSource: SourcePreTag,
			wantFound:  true,
			want:       atomFeed,
		},
		{
			name:       "pre that is not a feed falls through to body",
			markup:     "<html><body><pre>" + longText + "</pre></body></html>",
			wantSource: SourceBodyText,
			wantFound:  true,
			want:       longText,
		},
		{
			name:       "body text used regardless of classifier",
			markup:     "<html><body><div>" + longText + "</div></body></html>",
			wantSource: SourceBodyText,
			wantFound:  true,
			want:       longText,
		},
		{
			name:       "short body yields nothing",
			markup:     "<html><body><h1>Access Denied</h1></body></html>",
			wantSource: SourceNone,
		},
		{
			name:       "short feed-like document yields nothing",
			markup:     "<rss></rss>",
			wantSource: SourceNone,
		},
		{
			// 31 characters, 51 bytes.
			name:       "minimum length counts characters not bytes",
			markup:     "<rss>" + strings.Repeat("é", 20) + "</rss>",
			wantSource: SourceNone,
		},
		{
			name:       "bare xml root without declaration",
			markup:     bareRSSRoot,
			wantSource: SourceDirectBody,
			wantFound:  true,
			want:       bareRSSRoot,
		},
	}

	extractor := NewExtractor(50)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractor.ExtractFrom(tt.markup)
			assert.Equal(t, tt.wantSource, got.Source)
			assert.Equal(t, tt.wantFound, got.Found)
			if tt.wantFound {
				assert.Equal(t, tt.want, got.Candidate)
			}
		})
	}
}

func TestExtractReadsOneSnapshot(t *testing.T) {
	page := &fakePage{pages: []string{"<html><body><pre>" + html.EscapeString(rssFeed) + "</pre></body></html>"}}

	got, err := NewExtractor(50).Extract(context.Background(), page)
	require.NoError(t, err)

	assert.Equal(t, SourcePreTag, got.Source)
	assert.Equal(t, rssFeed, got.Candidate)
	assert.Equal(t, 1, page.HTMLCalls())
}

func TestExtractPageError(t *testing.T) {
	page := &fakePage{htmlErr: errors.New("target closed")}

	got, err := NewExtractor(50).Extract(context.Background(), page)
	assert.Error(t, err)
	assert.False(t, got.Found)
}
