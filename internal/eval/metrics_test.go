package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeValue(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{"  Hello,   WORLD ", "hello world"},
		{"ACME-SARL", "acme sarl"},
		{"l'entreprise", "l entreprise"},
		{1200.0, "1200"},
		{nil, ""},
		{"a_b;c:d", "a b c d"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeValue(tc.in), "input %v", tc.in)
	}
}

func TestNormalizeValueIsIdempotent(t *testing.T) {
	for _, in := range []string{"  Hello,   WORLD ", "Total T.T.C: 1 200,00", "déjà normalisé"} {
		once := NormalizeValue(in)
		assert.Equal(t, once, NormalizeValue(once))
	}
}

func TestCompareValuesNullHandling(t *testing.T) {
	exact, partial := CompareValues("x", nil, "string")
	assert.False(t, exact)
	assert.False(t, partial)

	exact, partial = CompareValues(nil, "x", "string")
	assert.False(t, exact)
	assert.False(t, partial)
}

func TestCompareValuesNumbers(t *testing.T) {
	// French decimal string against a float: same quantity, exact.
	exact, partial := CompareValues("1200,00", 1200.0, "number")
	assert.True(t, exact)
	assert.False(t, partial)

	// 0.83% relative difference: partial only.
	exact, partial = CompareValues("1210", 1200.0, "number")
	assert.False(t, exact)
	assert.True(t, partial)

	// 5% off: no match.
	exact, partial = CompareValues(1260.0, 1200.0, "number")
	assert.False(t, exact)
	assert.False(t, partial)

	// Tiny expectations use a denominator floor of 1.
	exact, partial = CompareValues(0.5, 0.501, "number")
	assert.False(t, exact)
	assert.True(t, partial)
}

func TestCompareValuesStrings(t *testing.T) {
	exact, _ := CompareValues("ACME SARL", "acme-sarl", "string")
	assert.True(t, exact)

	// Substring either way is a partial match.
	exact, partial := CompareValues("ACME", "ACME SARL", "string")
	assert.False(t, exact)
	assert.True(t, partial)

	exact, partial = CompareValues("totally different", "acme", "string")
	assert.False(t, exact)
	assert.False(t, partial)
}

func TestCompareValuesShortNumericSubstringQuirk(t *testing.T) {
	// "12" inside "120" registers as partial; kept for score continuity.
	_, partial := CompareValues("12", "120", "string")
	assert.True(t, partial)
}

func TestFieldTypeFor(t *testing.T) {
	assert.Equal(t, "number", FieldTypeFor("total_ttc"))
	assert.Equal(t, "number", FieldTypeFor("total_amount"))
	assert.Equal(t, "number", FieldTypeFor("unit_price"))
	assert.Equal(t, "number", FieldTypeFor("tva_rate"))
	assert.Equal(t, "date", FieldTypeFor("signature_date"))
	assert.Equal(t, "string", FieldTypeFor("supplier_name"))
}

func TestCalculateFieldMetrics(t *testing.T) {
	preds := []map[string]any{
		{"invoice_number": "FA-1", "total_ttc": 1210.0, "supplier_name": nil},
		{"invoice_number": "WRONG", "total_ttc": nil, "supplier_name": "ACME"},
	}
	truths := []map[string]any{
		{"invoice_number": "FA-1", "total_ttc": 1200.0, "supplier_name": "ACME"},
		{"invoice_number": "FA-2", "total_ttc": 1300.0, "supplier_name": nil},
	}

	m := CalculateFieldMetrics(preds, truths, []string{"invoice_number", "total_ttc", "supplier_name"})

	num := m["invoice_number"]
	assert.Equal(t, 2, num.TotalSamples)
	assert.Equal(t, 1, num.TruePositives)
	assert.Equal(t, 1, num.ExactMatches)
	assert.Equal(t, 1, num.FalsePositives)
	assert.Equal(t, 0, num.FalseNegatives)

	ttc := m["total_ttc"]
	assert.Equal(t, 1, ttc.TruePositives)
	assert.Equal(t, 1, ttc.PartialMatches)
	assert.Equal(t, 0, ttc.ExactMatches)
	assert.Equal(t, 1, ttc.FalseNegatives)

	sup := m["supplier_name"]
	// Truth only defined on the first sample, where the prediction missed.
	assert.Equal(t, 2, sup.TotalSamples)
	assert.Equal(t, 1, sup.FalseNegatives)
	assert.Equal(t, 0, sup.TruePositives)
	assert.Equal(t, 0, sup.FalsePositives)

	for _, fm := range m {
		assert.Equal(t, fm.TruePositives, fm.ExactMatches+fm.PartialMatches)
		assert.LessOrEqual(t, fm.TruePositives+fm.FalsePositives+fm.FalseNegatives, fm.TotalSamples)
	}
}

func TestFieldMetricsDerived(t *testing.T) {
	m := &FieldMetrics{TruePositives: 3, FalsePositives: 1, FalseNegatives: 2, ExactMatches: 2, TotalSamples: 6}
	assert.InDelta(t, 0.75, m.Precision(), 1e-9)
	assert.InDelta(t, 0.6, m.Recall(), 1e-9)
	assert.InDelta(t, 2*0.75*0.6/(0.75+0.6), m.F1(), 1e-9)
	assert.InDelta(t, 2.0/6.0, m.Accuracy(), 1e-9)

	empty := &FieldMetrics{}
	assert.Zero(t, empty.Precision())
	assert.Zero(t, empty.Recall())
	assert.Zero(t, empty.F1())
	assert.Zero(t, empty.Accuracy())
}

func TestEvaluationResultsMacroAndSummary(t *testing.T) {
	r := NewEvaluationResults()
	r.TotalDocuments = 4
	r.SuccessfulExtractions = 3
	r.FailedExtractions = 1
	r.ProcessingTimes = []float64{100, 200}
	r.FieldMetrics["a"] = &FieldMetrics{TruePositives: 1, TotalSamples: 1, ExactMatches: 1}
	r.FieldMetrics["b"] = &FieldMetrics{FalsePositives: 1, TotalSamples: 1}

	assert.InDelta(t, 0.75, r.SuccessRate(), 1e-9)
	assert.InDelta(t, 150, r.AvgProcessingTime(), 1e-9)
	assert.InDelta(t, 0.5, r.MacroPrecision(), 1e-9)
	assert.InDelta(t, 0.5, r.MacroRecall(), 1e-9)
	assert.InDelta(t, 0.5, r.MacroF1(), 1e-9)

	out := r.ToMap()
	summary, ok := out["summary"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 4, summary["total_documents"])
	fields, ok := out["fields"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, fields, 2)
}

func TestResultsFromMapRoundTrip(t *testing.T) {
	r := NewEvaluationResults()
	r.TotalDocuments = 5
	r.SuccessfulExtractions = 4
	r.FailedExtractions = 1
	r.ProcessingTimes = []float64{50, 150}
	r.FieldMetrics["total_ttc"] = &FieldMetrics{
		FieldName: "total_ttc", TruePositives: 3, FalsePositives: 1,
		ExactMatches: 2, PartialMatches: 1, TotalSamples: 5,
	}

	back := ResultsFromMap(r.ToMap())

	assert.Equal(t, r.TotalDocuments, back.TotalDocuments)
	assert.Equal(t, r.SuccessfulExtractions, back.SuccessfulExtractions)
	assert.InDelta(t, r.AvgProcessingTime(), back.AvgProcessingTime(), 1e-9)
	require.Contains(t, back.FieldMetrics, "total_ttc")
	m := back.FieldMetrics["total_ttc"]
	assert.Equal(t, 3, m.TruePositives)
	assert.Equal(t, 1, m.PartialMatches)
	assert.InDelta(t, 0.75, m.Precision(), 1e-9)
}

func TestBuildConfusionMatrix(t *testing.T) {
	labels := []string{"invoice", "contract"}
	preds := []string{"invoice", "contract", "invoice", "unknown"}
	truths := []string{"invoice", "invoice", "contract", "invoice"}

	m := BuildConfusionMatrix(preds, truths, labels)

	assert.Equal(t, 1, m["invoice"]["invoice"])
	assert.Equal(t, 1, m["invoice"]["contract"])
	assert.Equal(t, 1, m["contract"]["invoice"])
	assert.Equal(t, 0, m["contract"]["contract"])
}
