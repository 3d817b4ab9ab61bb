package scoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hoanghai1803/newspulse/internal/ai"
)

const maxReasoningRunes = 300

var (
	// ErrNotArray is returned when the model response is valid JSON but not
	// an array.
	ErrNotArray = errors.New("model response is not a JSON array")

	// ErrValidation is returned when the response violates the item schema.
	ErrValidation = errors.New("model response failed validation")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ModelResult is one validated, clamped element of a scorer response.
type ModelResult struct {
	Index      int     `validate:"min=0"`
	Score      int     `validate:"min=-100,max=100"`
	Confidence float64 `validate:"min=0,max=1"`
	Reasoning  string  `validate:"max=300"`
}

// wireItem mirrors one response element before type checks.
type wireItem struct {
	Index            json.RawMessage `json:"index"`
	SentimentScore   json.RawMessage `json:"sentiment_score"`
	Confidence       json.RawMessage `json:"confidence"`
	ReasoningSummary json.RawMessage `json:"reasoning_summary"`
}

// DecodeResponse extracts the JSON array from a raw scorer reply and decodes
// each element. Out-of-range numbers are clamped and over-long reasoning is
// truncated; a field of the wrong type defaults to zero. A non-array yields
// ErrNotArray and a non-object element yields ErrValidation. An element whose index is missing or not a finite number is
// assigned its position in the array.
func DecodeResponse(text string) ([]ModelResult, error) {
	candidate := strings.TrimSpace(ai.ExtractJSONArray(text))
	if !strings.HasPrefix(candidate, "[") {
		if json.Valid([]byte(candidate)) {
			return nil, ErrNotArray
		}
		return nil, fmt.Errorf("%w: response is not JSON", ErrValidation)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &elems); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	results := make([]ModelResult, 0, len(elems))
	for pos, raw := range elems {
		res, err := decodeItem(raw, pos)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrValidation, pos, err)
		}
		if err := validate.Struct(res); err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrValidation, pos, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func decodeItem(raw json.RawMessage, pos int) (ModelResult, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ModelResult{}, errors.New("element is not an object")
	}

	var item wireItem
	if err := json.Unmarshal(trimmed, &item); err != nil {
		return ModelResult{}, err
	}

	res := ModelResult{Index: pos}

	if idx, ok, _ := number(item.Index); ok && !math.IsInf(idx, 0) {
		if t := math.Trunc(idx); t >= 0 && t <= math.MaxInt32 {
			res.Index = int(t)
		}
	}

	// A wrong-typed field defaults to its zero value; siblings still count.
	score, present, err := number(item.SentimentScore)
	if err != nil {
		slog.Warn("coercing scorer field to default", "field", "sentiment_score", "element", pos, "error", err)
	}
	if present {
		res.Score = int(math.Max(-100, math.Min(100, math.Trunc(score))))
	}

	conf, present, err := number(item.Confidence)
	if err != nil {
		slog.Warn("coercing scorer field to default", "field", "confidence", "element", pos, "error", err)
	}
	if present {
		res.Confidence = math.Max(0, math.Min(1, conf))
	}

	reasoning, err := text(item.ReasoningSummary)
	if err != nil {
		slog.Warn("coercing scorer field to default", "field", "reasoning_summary", "element", pos, "error", err)
	}
	res.Reasoning = truncateRunes(reasoning, maxReasoningRunes)

	return res, nil
}

// number decodes a JSON number or numeric string. Missing and null values
// report present=false. Overflowing literals saturate to ±Inf.
func number(raw json.RawMessage) (v float64, present bool, err error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false, nil
	}

	var lit string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &lit); err != nil {
			return 0, false, err
		}
		lit = strings.TrimSpace(lit)
	} else {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, false, fmt.Errorf("want number, got %s", raw)
		}
		lit = n.String()
	}

	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return f, true, nil
		}
		return 0, false, fmt.Errorf("want number, got %s", raw)
	}
	if math.IsNaN(f) {
		return 0, false, fmt.Errorf("want number, got %s", raw)
	}
	return f, true, nil
}

func text(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("want string, got %s", raw)
	}
	return strings.TrimSpace(s), nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
