// Package pipeline turns fetched articles into scored, rolled-up, and
// alert-classified articles, and orchestrates a full ingest run around that.
package pipeline

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/hoanghai1803/newspulse/internal/models"
	"github.com/hoanghai1803/newspulse/internal/scoring"
)

// Extract partitions one article's raw insights. The returned slots always
// have one entry per raw insight. Neutral and unrecognized insights are
// resolved in place; positive and negative ones leave an empty slot and
// produce a WorkUnit pointing at it.
func Extract(articleIndex int, a *models.Article) ([]models.ScoredInsight, []scoring.WorkUnit) {
	slots := make([]models.ScoredInsight, len(a.Insights))
	var units []scoring.WorkUnit

	for i, in := range a.Insights {
		slots[i] = models.ScoredInsight{
			Index:     i,
			Ticker:    in.Ticker,
			Sentiment: in.Sentiment,
		}

		switch {
		case in.Sentiment == models.SentimentNeutral:
			slots[i].Reasoning = scoring.ReasonNeutralInput
			slots[i].Status = models.InsightSkipped

		case in.Sentiment.Scorable():
			units = append(units, scoring.WorkUnit{
				ArticleIndex: articleIndex,
				InsightIndex: i,
				Text:         insightText(in, a.Title),
				Sentiment:    in.Sentiment,
				Ticker:       in.Ticker,
				Title:        a.Title,
				PublishedAt:  a.PublishedAt,
			})

		default:
			slog.Warn("skipping insight with unrecognized sentiment",
				"article", a.URL, "insight", i, "sentiment", string(in.Sentiment))
			slots[i].Reasoning = fmt.Sprintf("Unrecognized sentiment %q; skipped scoring.", string(in.Sentiment))
			slots[i].Status = models.InsightSkipped
		}
	}

	return slots, units
}

// insightText collapses whitespace in the analyst rationale, falling back to
// the article title when the rationale is empty.
func insightText(in models.Insight, title string) string {
	text := strings.Join(strings.Fields(in.Reasoning), " ")
	if text == "" {
		return strings.Join(strings.Fields(title), " ")
	}
	return text
}
