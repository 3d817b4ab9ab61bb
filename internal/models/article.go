package models

import "time"

// Sentiment is the analyst label attached to a raw insight.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Scorable reports whether the sentiment is sent to the external scorer.
func (s Sentiment) Scorable() bool {
	return s == SentimentPositive || s == SentimentNegative
}

// Known reports whether s is one of the three recognized labels.
func (s Sentiment) Known() bool {
	return s.Scorable() || s == SentimentNeutral
}

// Insight is a ticker-scoped sentiment claim delivered with an article.
type Insight struct {
	Ticker    *string   `json:"ticker"`
	Sentiment Sentiment `json:"sentiment"`
	Reasoning string    `json:"sentiment_reasoning"`
}

// InsightStatus records how a ScoredInsight was produced.
type InsightStatus string

const (
	InsightScored   InsightStatus = "scored"
	InsightFallback InsightStatus = "fallback"
	InsightSkipped  InsightStatus = "skipped"
)

// ScoredInsight is the scoring result for the raw insight at the same index.
type ScoredInsight struct {
	Index           int           `json:"index"`
	Ticker          *string       `json:"ticker"`
	Sentiment       Sentiment     `json:"sentiment"`
	Score           int           `json:"score"`
	ConfidenceModel float64       `json:"confidence_model"`
	ConfidenceRule  float64       `json:"confidence_rule"`
	Reasoning       string        `json:"reasoning"`
	Status          InsightStatus `json:"status"`
}

// RollupStatus distinguishes an article that was never scored from one that
// was scored and came out neutral.
type RollupStatus string

const (
	RollupScored    RollupStatus = "scored"
	RollupNotScored RollupStatus = "not_scored"
)

// ArticleRollup is the article-level aggregate of its scored insights.
type ArticleRollup struct {
	Status          RollupStatus `json:"status"`
	Score           int          `json:"score"`
	ConfidenceModel float64      `json:"confidence_model"`
	ConfidenceRule  float64      `json:"confidence_rule"`
	Reasoning       string       `json:"reasoning"`
}

// Scored reports whether the rollup carries computed values.
func (r ArticleRollup) Scored() bool {
	return r.Status == RollupScored
}

// Article is a news item together with its raw insights and, once a run has
// scored it, the outbound sentiment fields.
type Article struct {
	ID          int64     `json:"id,omitempty"`
	URL         string    `json:"article_url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PublishedAt time.Time `json:"published_utc"`
	Tickers     []string  `json:"tickers"`
	Keywords    []string  `json:"keywords"`
	Insights    []Insight `json:"insights"`

	SentimentScore           *int            `json:"sentiment_score"`
	SentimentConfidenceModel *float64        `json:"sentiment_confidence_model"`
	SentimentConfidenceRule  *float64        `json:"sentiment_confidence_rule"`
	SentimentReasoning       *string         `json:"sentiment_reasoning"`
	SentimentInsights        []ScoredInsight `json:"sentiment_insights"`

	CreatedAt time.Time `json:"created_at,omitzero"`
}

// ApplyRollup copies the rollup and per-insight results onto the outbound
// fields. A rollup that was not scored leaves the aggregate fields nil.
func (a *Article) ApplyRollup(r ArticleRollup, insights []ScoredInsight) {
	a.SentimentInsights = insights
	if !r.Scored() {
		a.SentimentScore = nil
		a.SentimentConfidenceModel = nil
		a.SentimentConfidenceRule = nil
		a.SentimentReasoning = nil
		return
	}

	score, model, rule, reasoning := r.Score, r.ConfidenceModel, r.ConfidenceRule, r.Reasoning
	a.SentimentScore = &score
	a.SentimentConfidenceModel = &model
	a.SentimentConfidenceRule = &rule
	a.SentimentReasoning = &reasoning
}

// Scored reports whether the article carries an aggregate sentiment.
func (a *Article) Scored() bool {
	return a.SentimentScore != nil
}
