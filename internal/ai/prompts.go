package ai

import (
	"fmt"
	"strings"
)

const scoreInsightsSystemPrompt = `You are a financial sentiment analyzer.
For EACH insight, assign a sentiment score from -100 (extremely negative) to +100 (extremely positive), 0 is neutral.
Consider tone, language intensity, and potential market impact (lawsuits, FDA/M&A, earnings, guidance, partnerships, layoffs, accounting issues).
Return ONLY a valid JSON array. No extra text.

Rules:
- "sentiment_score": integer in [-100, 100]
- "confidence": float in [0, 1] with two decimals
- "reasoning_summary": <= 25 words; concise and specific
- Preserve input order via "index"
- If info is insufficient, use score 0 and confidence <= 0.40

Output JSON schema:
[
  { "index": <number>, "sentiment_score": <int>, "confidence": <float>, "reasoning_summary": "<string>" },
  ...
]`

// ScoreInsightsPrompt builds the system and user prompts for one scoring
// batch. The output depends only on the entries, so identical batches always
// produce identical prompts.
func ScoreInsightsPrompt(entries []InsightEntry) (systemPrompt string, userPrompt string) {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- INSIGHT %d ---\n", e.Index)
		fmt.Fprintf(&b, "Title: %s\n", e.Title)
		fmt.Fprintf(&b, "Ticker: %s\n", e.Ticker)
		fmt.Fprintf(&b, "Analyst label: %s\n", e.Label)
		fmt.Fprintf(&b, "Insight: %s\n", e.Text)
		fmt.Fprintf(&b, "Published UTC: %s", e.PublishedAt)
	}
	b.WriteString("\n\nReturn the JSON array now.")

	return scoreInsightsSystemPrompt, b.String()
}

// ExtractJSONArray returns the outermost bracketed substring of s, from the
// first '[' to the last ']'. Prose or code fences around the array are
// dropped. If no bracket pair exists, the trimmed input is returned as is.
func ExtractJSONArray(s string) string {
	s = strings.TrimSpace(s)
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}
