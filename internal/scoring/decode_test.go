package scoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeResponse(t *testing.T) {
	t.Run("valid array", func(t *testing.T) {
		got, err := DecodeResponse(`[
			{"index": 0, "sentiment_score": 80, "confidence": 0.9, "reasoning_summary": "Strong beat."},
			{"index": 1, "sentiment_score": -40, "confidence": 0.6, "reasoning_summary": " Weak guide. "}
		]`)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, ModelResult{Index: 0, Score: 80, Confidence: 0.9, Reasoning: "Strong beat."}, got[0])
		assert.Equal(t, ModelResult{Index: 1, Score: -40, Confidence: 0.6, Reasoning: "Weak guide."}, got[1])
	})

	t.Run("fenced with prose", func(t *testing.T) {
		got, err := DecodeResponse("Sure:\n```json\n[{\"index\":0,\"sentiment_score\":5,\"confidence\":0.5,\"reasoning_summary\":\"ok\"}]\n```")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 5, got[0].Score)
	})

	t.Run("clamps out of range numbers", func(t *testing.T) {
		got, err := DecodeResponse(`[
			{"index": 0, "sentiment_score": 250, "confidence": 1.7, "reasoning_summary": "x"},
			{"index": 1, "sentiment_score": -1e400, "confidence": -0.2, "reasoning_summary": "y"}
		]`)
		require.NoError(t, err)
		assert.Equal(t, 100, got[0].Score)
		assert.Equal(t, 1.0, got[0].Confidence)
		assert.Equal(t, -100, got[1].Score)
		assert.Equal(t, 0.0, got[1].Confidence)
	})

	t.Run("truncates fractional scores", func(t *testing.T) {
		got, err := DecodeResponse(`[{"index": 0, "sentiment_score": 42.9, "confidence": 0.5}]`)
		require.NoError(t, err)
		assert.Equal(t, 42, got[0].Score)
	})

	t.Run("numeric strings accepted", func(t *testing.T) {
		got, err := DecodeResponse(`[{"index": "0", "sentiment_score": "-15", "confidence": "0.4"}]`)
		require.NoError(t, err)
		assert.Equal(t, -15, got[0].Score)
		assert.Equal(t, 0.4, got[0].Confidence)
	})

	t.Run("truncates long reasoning", func(t *testing.T) {
		long := strings.Repeat("é", 400)
		got, err := DecodeResponse(`[{"index": 0, "sentiment_score": 1, "confidence": 0.5, "reasoning_summary": "` + long + `"}]`)
		require.NoError(t, err)
		assert.Equal(t, 300, len([]rune(got[0].Reasoning)))
	})

	t.Run("missing or bad index uses position", func(t *testing.T) {
		got, err := DecodeResponse(`[
			{"sentiment_score": 1, "confidence": 0.5},
			{"index": -3, "sentiment_score": 2, "confidence": 0.5},
			{"index": null, "sentiment_score": 3, "confidence": 0.5}
		]`)
		require.NoError(t, err)
		assert.Equal(t, 0, got[0].Index)
		assert.Equal(t, 1, got[1].Index)
		assert.Equal(t, 2, got[2].Index)
	})

	t.Run("wrong-typed fields default per element", func(t *testing.T) {
		got, err := DecodeResponse(`[
			{"index": 0, "sentiment_score": 30, "confidence": "high", "reasoning_summary": "Beat."},
			{"index": 1, "sentiment_score": 20, "confidence": 0.7},
			{"index": 2, "sentiment_score": true, "confidence": 0.4, "reasoning_summary": 12}
		]`)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, ModelResult{Index: 0, Score: 30, Confidence: 0, Reasoning: "Beat."}, got[0])
		assert.Equal(t, ModelResult{Index: 1, Score: 20, Confidence: 0.7}, got[1])
		assert.Equal(t, ModelResult{Index: 2, Score: 0, Confidence: 0.4}, got[2])
	})

	t.Run("empty array", func(t *testing.T) {
		got, err := DecodeResponse(`[]`)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	errCases := []struct {
		name  string
		input string
		want  error
	}{
		{name: "object", input: `{"index": 0, "sentiment_score": 10}`, want: ErrNotArray},
		{name: "bare number", input: `42`, want: ErrNotArray},
		{name: "not json", input: `I cannot help with that.`, want: ErrValidation},
		{name: "broken array", input: `[{"index": 0,]`, want: ErrValidation},
		{name: "element not object", input: `[1, 2]`, want: ErrValidation},
	}
	for _, tt := range errCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeResponse(tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
