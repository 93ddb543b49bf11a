package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
	policy       *bluemonday.Policy
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
		policy:       bluemonday.StrictPolicy(),
	}
}

// Run parses raw RSS/Atom/JSON feed data into entries. A feed without items
// yields an empty slice and no error.
func (p *Parser) Run(data []byte) ([]Entry, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, p.normalizeItem(item))
	}

	return entries, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) Entry {
	entry := Entry{
		Permalink: strings.TrimSpace(cmp.Or(item.Link, item.GUID)),
		Title:     strings.TrimSpace(item.Title),
		Summary:   p.plainText(cmp.Or(item.Description, item.Content)),
	}

	// Updated wins over published, like most readers do
	var ts *time.Time
	if item.UpdatedParsed != nil {
		ts = item.UpdatedParsed
	} else if item.PublishedParsed != nil {
		ts = item.PublishedParsed
	}
	if ts != nil {
		local := ts.In(time.Local)
		entry.UpdatedAt = &local
	}

	return entry
}

func (p *Parser) plainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(p.policy.Sanitize(s)))
}
