package pipeline

import (
	"fmt"
	"strings"

	"github.com/hoanghai1803/newspulse/internal/models"
)

// Thresholds gate which insights count as strong.
type Thresholds struct {
	MinScore           int
	MinModelConfidence float64
	MinRuleConfidence  float64
}

// Direction is the side of a strong signal.
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
)

// Alert is one article selected for notification and the insight that
// qualified it.
type Alert struct {
	Direction Direction            `json:"direction"`
	Article   models.Article       `json:"article"`
	Insight   models.ScoredInsight `json:"insight"`
}

// AlertSet holds the selected candidates for each direction.
type AlertSet struct {
	Bullish []Alert `json:"bullish"`
	Bearish []Alert `json:"bearish"`
}

// Empty reports whether no article qualified.
func (s AlertSet) Empty() bool {
	return len(s.Bullish) == 0 && len(s.Bearish) == 0
}

// ClassifyArticle returns the first insight qualifying the article as strong
// bullish and the first qualifying it as strong bearish. Either may be nil.
func ClassifyArticle(a *models.Article, th Thresholds) (bullish, bearish *models.ScoredInsight) {
	for i := range a.SentimentInsights {
		in := &a.SentimentInsights[i]
		if in.Sentiment == models.SentimentNeutral || in.Status == models.InsightSkipped {
			continue
		}
		if in.ConfidenceModel < th.MinModelConfidence || in.ConfidenceRule < th.MinRuleConfidence {
			continue
		}
		if bullish == nil && in.Score >= th.MinScore {
			bullish = in
		}
		if bearish == nil && in.Score <= -th.MinScore {
			bearish = in
		}
	}
	return bullish, bearish
}

// SelectAlerts keeps the first topN strong candidates per direction in the
// order the articles were given. An article can appear on both sides.
func SelectAlerts(articles []models.Article, th Thresholds, topN int) AlertSet {
	set := AlertSet{Bullish: []Alert{}, Bearish: []Alert{}}
	for i := range articles {
		bull, bear := ClassifyArticle(&articles[i], th)
		if bull != nil && len(set.Bullish) < topN {
			set.Bullish = append(set.Bullish, Alert{Direction: Bullish, Article: articles[i], Insight: *bull})
		}
		if bear != nil && len(set.Bearish) < topN {
			set.Bearish = append(set.Bearish, Alert{Direction: Bearish, Article: articles[i], Insight: *bear})
		}
	}
	return set
}

const maxAlertTitle = 80

// FormatAlerts renders the plain-text summary sent to the notifier.
func FormatAlerts(set AlertSet, scored int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "News updated: %d article(s) scored.\n", scored)
	writeSection(&b, "Strong bullish", set.Bullish)
	writeSection(&b, "Strong bearish", set.Bearish)
	return strings.TrimRight(b.String(), "\n")
}

func writeSection(b *strings.Builder, heading string, alerts []Alert) {
	if len(alerts) == 0 {
		fmt.Fprintf(b, "\n%s: none\n", heading)
		return
	}
	fmt.Fprintf(b, "\n%s (%d):\n", heading, len(alerts))
	for i, a := range alerts {
		fmt.Fprintf(b, "%d. %s [%s] score %+d (model %.2f, rule %.2f)\n   %s\n",
			i+1, truncateTitle(a.Article.Title), alertTickers(a), a.Insight.Score,
			a.Insight.ConfidenceModel, a.Insight.ConfidenceRule, a.Article.URL)
	}
}

func alertTickers(a Alert) string {
	if len(a.Article.Tickers) > 0 {
		return strings.Join(a.Article.Tickers, ", ")
	}
	if a.Insight.Ticker != nil {
		return *a.Insight.Ticker
	}
	return "-"
}

func truncateTitle(title string) string {
	title = strings.Join(strings.Fields(title), " ")
	r := []rune(title)
	if len(r) <= maxAlertTitle {
		return title
	}
	return string(r[:maxAlertTitle-3]) + "..."
}
