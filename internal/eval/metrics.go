// Package eval scores extraction output against annotated ground truth.
package eval

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FieldMetrics accumulates match counters for one field. Derived rates are
// computed on read so the counters stay the single source of truth.
type FieldMetrics struct {
	FieldName      string
	TruePositives  int
	FalsePositives int
	FalseNegatives int
	ExactMatches   int
	PartialMatches int
	TotalSamples   int
}

func (m *FieldMetrics) Precision() float64 {
	denom := m.TruePositives + m.FalsePositives
	if denom == 0 {
		return 0
	}
	return float64(m.TruePositives) / float64(denom)
}

func (m *FieldMetrics) Recall() float64 {
	denom := m.TruePositives + m.FalseNegatives
	if denom == 0 {
		return 0
	}
	return float64(m.TruePositives) / float64(denom)
}

func (m *FieldMetrics) F1() float64 {
	p, r := m.Precision(), m.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// Accuracy is the exact-match rate over all scored samples.
func (m *FieldMetrics) Accuracy() float64 {
	if m.TotalSamples == 0 {
		return 0
	}
	return float64(m.ExactMatches) / float64(m.TotalSamples)
}

// EvaluationResults aggregates field metrics and document-level counters for
// one evaluation run.
type EvaluationResults struct {
	FieldMetrics          map[string]*FieldMetrics
	ProcessingTimes       []float64
	TotalDocuments        int
	SuccessfulExtractions int
	FailedExtractions     int
}

func NewEvaluationResults() *EvaluationResults {
	return &EvaluationResults{FieldMetrics: make(map[string]*FieldMetrics)}
}

func (r *EvaluationResults) SuccessRate() float64 {
	if r.TotalDocuments == 0 {
		return 0
	}
	return float64(r.SuccessfulExtractions) / float64(r.TotalDocuments)
}

// AvgProcessingTime returns the mean per-document time in milliseconds.
func (r *EvaluationResults) AvgProcessingTime() float64 {
	if len(r.ProcessingTimes) == 0 {
		return 0
	}
	var sum float64
	for _, t := range r.ProcessingTimes {
		sum += t
	}
	return sum / float64(len(r.ProcessingTimes))
}

// Macro metrics are unweighted means over fields.

func (r *EvaluationResults) MacroPrecision() float64 {
	return r.macro(func(m *FieldMetrics) float64 { return m.Precision() })
}

func (r *EvaluationResults) MacroRecall() float64 {
	return r.macro(func(m *FieldMetrics) float64 { return m.Recall() })
}

func (r *EvaluationResults) MacroF1() float64 {
	return r.macro(func(m *FieldMetrics) float64 { return m.F1() })
}

func (r *EvaluationResults) macro(metric func(*FieldMetrics) float64) float64 {
	if len(r.FieldMetrics) == 0 {
		return 0
	}
	var sum float64
	for _, m := range r.FieldMetrics {
		sum += metric(m)
	}
	return sum / float64(len(r.FieldMetrics))
}

// ToMap serializes the run as a {summary, fields} document.
func (r *EvaluationResults) ToMap() map[string]any {
	fields := make(map[string]any, len(r.FieldMetrics))
	for name, m := range r.FieldMetrics {
		fields[name] = map[string]any{
			"precision":       m.Precision(),
			"recall":          m.Recall(),
			"f1_score":        m.F1(),
			"accuracy":        m.Accuracy(),
			"true_positives":  m.TruePositives,
			"false_positives": m.FalsePositives,
			"false_negatives": m.FalseNegatives,
			"exact_matches":   m.ExactMatches,
			"partial_matches": m.PartialMatches,
			"total_samples":   m.TotalSamples,
		}
	}
	return map[string]any{
		"summary": map[string]any{
			"total_documents":        r.TotalDocuments,
			"successful_extractions": r.SuccessfulExtractions,
			"failed_extractions":     r.FailedExtractions,
			"success_rate":           r.SuccessRate(),
			"avg_processing_time_ms": r.AvgProcessingTime(),
			"macro_precision":        r.MacroPrecision(),
			"macro_recall":           r.MacroRecall(),
			"macro_f1":               r.MacroF1(),
		},
		"fields": fields,
	}
}

// ResultsFromMap rebuilds a run from its serialized {summary, fields} form,
// as stored by the repository. Only counters are restored; derived rates are
// recomputed on read as usual. The average processing time survives as a
// single synthetic sample.
func ResultsFromMap(m map[string]any) *EvaluationResults {
	r := NewEvaluationResults()

	if summary, ok := m["summary"].(map[string]any); ok {
		r.TotalDocuments = intFrom(summary["total_documents"])
		r.SuccessfulExtractions = intFrom(summary["successful_extractions"])
		r.FailedExtractions = intFrom(summary["failed_extractions"])
		if avg, ok := summary["avg_processing_time_ms"].(float64); ok && avg > 0 {
			r.ProcessingTimes = []float64{avg}
		}
	}

	fields, ok := m["fields"].(map[string]any)
	if !ok {
		return r
	}
	for name, raw := range fields {
		fm, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		r.FieldMetrics[name] = &FieldMetrics{
			FieldName:      name,
			TruePositives:  intFrom(fm["true_positives"]),
			FalsePositives: intFrom(fm["false_positives"]),
			FalseNegatives: intFrom(fm["false_negatives"]),
			ExactMatches:   intFrom(fm["exact_matches"]),
			PartialMatches: intFrom(fm["partial_matches"]),
			TotalSamples:   intFrom(fm["total_samples"]),
		}
	}
	return r
}

func intFrom(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case float64:
		return int(t)
	default:
		return 0
	}
}

var punctReplacer = strings.NewReplacer(
	".", " ", ",", " ", ";", " ", ":", " ", "-", " ", "_", " ", "'", " ",
)

// NormalizeValue renders a value for comparison: lowercase, punctuation
// replaced by spaces, whitespace runs collapsed. Idempotent.
func NormalizeValue(value any) string {
	if value == nil {
		return ""
	}
	s := strings.ToLower(strings.TrimSpace(stringify(value)))
	s = strings.Join(strings.Fields(s), " ")
	s = punctReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// CompareValues scores a predicted value against ground truth. A nil
// expected value is unscored; a nil prediction against a real expectation is
// a miss the caller counts as a false negative. Numbers match exactly when
// their parsed values are equal, and partially when within 1% relative
// difference (denominator floored at 1 to keep tiny expectations sane).
// Non-exact values also match partially when one normalized form contains
// the other; short numeric tokens can therefore partial-match longer ones,
// a known scoring quirk kept for continuity of historical scores.
func CompareValues(predicted, expected any, fieldType string) (exact, partial bool) {
	if expected == nil || predicted == nil {
		return false, false
	}

	predNorm := NormalizeValue(predicted)
	expNorm := NormalizeValue(expected)
	exact = predNorm == expNorm

	predNum, predOK := parseNumber(predicted)
	expNum, expOK := parseNumber(expected)
	if !exact && fieldType == "number" && predOK && expOK && predNum == expNum {
		exact = true
	}

	if !exact {
		switch {
		case strings.Contains(predNorm, expNorm) || strings.Contains(expNorm, predNorm):
			partial = true
		case fieldType == "number" && predOK && expOK:
			denom := math.Max(math.Abs(expNum), 1)
			partial = math.Abs(predNum-expNum)/denom < 0.01
		}
	}
	return exact, partial
}

// parseNumber reads a numeric value from raw JSON shapes, tolerating French
// formatting in strings (spaces as grouping, comma as decimal separator).
func parseNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		cleaned := strings.NewReplacer(" ", "", " ", "", "€", "", ",", ".").Replace(strings.TrimSpace(v))
		f, err := strconv.ParseFloat(cleaned, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// FieldTypeFor infers comparison behavior from the field name.
func FieldTypeFor(field string) string {
	for _, marker := range []string{"total", "amount", "price", "tva"} {
		if strings.Contains(field, marker) {
			return "number"
		}
	}
	if strings.Contains(field, "date") {
		return "date"
	}
	return "string"
}

// CalculateFieldMetrics scores paired prediction/truth maps field by field.
// Samples where the truth omits the field still count toward total_samples
// but move no match counter.
func CalculateFieldMetrics(predictions, truths []map[string]any, fields []string) map[string]*FieldMetrics {
	metrics := make(map[string]*FieldMetrics, len(fields))
	for _, f := range fields {
		metrics[f] = &FieldMetrics{FieldName: f}
	}

	n := len(predictions)
	if len(truths) < n {
		n = len(truths)
	}
	for i := 0; i < n; i++ {
		for _, f := range fields {
			m := metrics[f]
			m.TotalSamples++

			predValue := predictions[i][f]
			truthValue := truths[i][f]
			if truthValue == nil {
				continue
			}
			if predValue == nil {
				m.FalseNegatives++
				continue
			}

			exact, partial := CompareValues(predValue, truthValue, FieldTypeFor(f))
			switch {
			case exact:
				m.TruePositives++
				m.ExactMatches++
			case partial:
				m.TruePositives++
				m.PartialMatches++
			default:
				m.FalsePositives++
			}
		}
	}
	return metrics
}

// BuildConfusionMatrix counts truth/prediction label pairs; pairs with a
// label outside the given set are dropped.
func BuildConfusionMatrix(predictions, truths, labels []string) map[string]map[string]int {
	matrix := make(map[string]map[string]int, len(labels))
	known := make(map[string]struct{}, len(labels))
	for _, truth := range labels {
		known[truth] = struct{}{}
		row := make(map[string]int, len(labels))
		for _, pred := range labels {
			row[pred] = 0
		}
		matrix[truth] = row
	}

	n := len(predictions)
	if len(truths) < n {
		n = len(truths)
	}
	for i := 0; i < n; i++ {
		if _, ok := known[truths[i]]; !ok {
			continue
		}
		if _, ok := known[predictions[i]]; !ok {
			continue
		}
		matrix[truths[i]][predictions[i]]++
	}
	return matrix
}
