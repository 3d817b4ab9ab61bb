package pipeline

import (
	"fmt"
	"math"

	"github.com/hoanghai1803/newspulse/internal/calibrate"
	"github.com/hoanghai1803/newspulse/internal/classify"
	"github.com/hoanghai1803/newspulse/internal/models"
)

const maxRollupReasoning = 300

// ArticleSignals classifies an article's source and event type.
func ArticleSignals(a *models.Article) (classify.SourceTier, classify.EventCategory) {
	source := classify.SourceTierFromURL(a.URL)
	event := classify.EventFromText(a.Keywords, a.Title+" "+a.Description)
	return source, event
}

// Aggregate rolls an article's scored insights into one result. Skipped
// insights do not count; with none left the rollup is marked not scored.
func Aggregate(cal *calibrate.Calibrator, insights []models.ScoredInsight,
	source classify.SourceTier, event classify.EventCategory) models.ArticleRollup {

	var (
		weighted, totalWeight float64
		n, positive, negative int
		strongest             *models.ScoredInsight
	)
	for i := range insights {
		in := &insights[i]
		if in.Status == models.InsightSkipped || in.Status == "" {
			continue
		}

		w := in.ConfidenceModel
		if math.IsNaN(w) || math.IsInf(w, 0) {
			w = 0.5
		}
		weighted += float64(in.Score) * w
		totalWeight += w
		n++

		switch in.Sentiment {
		case models.SentimentPositive:
			positive++
		case models.SentimentNegative:
			negative++
		}
		if strongest == nil || abs(in.Score) > abs(strongest.Score) {
			strongest = in
		}
	}

	if n == 0 {
		return models.ArticleRollup{Status: models.RollupNotScored}
	}

	score := 0
	if totalWeight > 0 {
		score = calibrate.ClampScore(int(math.Round(weighted / totalWeight)))
	}
	modelConf := calibrate.Clamp01(totalWeight / float64(n))

	res := cal.Calibrate(calibrate.Input{
		Score:           score,
		ConfidenceModel: modelConf,
		Source:          source,
		Event:           event,
	})

	return models.ArticleRollup{
		Status:          models.RollupScored,
		Score:           res.PseudoScore,
		ConfidenceModel: modelConf,
		ConfidenceRule:  res.ConfidenceRule,
		Reasoning:       rollupReasoning(n, positive, negative, strongest),
	}
}

func rollupReasoning(n, positive, negative int, strongest *models.ScoredInsight) string {
	s := fmt.Sprintf("%d insight(s): %d positive, %d negative.", n, positive, negative)
	if strongest != nil && strongest.Reasoning != "" {
		s += " Strongest: " + strongest.Reasoning
	}
	r := []rune(s)
	if len(r) > maxRollupReasoning {
		return string(r[:maxRollupReasoning])
	}
	return s
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
