package feeds

import (
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"

	"github.com/hoanghai1803/newspulse/internal/models"
)

// parseFeedItems converts gofeed items into articles published at or after
// since. Items with nil PublishedParsed are always included. Items with empty
// Title or URL are skipped. Feed items carry no analyst insights.
func parseFeedItems(feed *gofeed.Feed, since time.Time) []models.Article {
	var articles []models.Article
	for _, item := range feed.Items {
		if item.Title == "" || item.Link == "" {
			continue
		}

		// Filter by publication date when available.
		if item.PublishedParsed != nil && item.PublishedParsed.Before(since) {
			continue
		}

		var publishedAt time.Time
		if item.PublishedParsed != nil {
			publishedAt = item.PublishedParsed.UTC()
		}

		keywords := make([]string, 0, len(item.Categories))
		for _, c := range item.Categories {
			if c = strings.TrimSpace(c); c != "" {
				keywords = append(keywords, c)
			}
		}

		articles = append(articles, models.Article{
			Title:       strings.TrimSpace(item.Title),
			URL:         item.Link,
			Description: strings.TrimSpace(stripHTML(item.Description)),
			PublishedAt: publishedAt,
			Tickers:     []string{},
			Keywords:    keywords,
			Insights:    []models.Insight{},
		})
	}

	return articles
}

// stripHTML returns the text content of an HTML fragment with entities
// unescaped. Script and style bodies are dropped.
func stripHTML(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var sb strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return sb.String()
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
			}
		case html.StartTagToken:
			if name, _ := z.TagName(); isRawTextTag(name) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isRawTextTag(name) && skip > 0 {
				skip--
			}
		}
	}
}

func isRawTextTag(name []byte) bool {
	return string(name) == "script" || string(name) == "style"
}
