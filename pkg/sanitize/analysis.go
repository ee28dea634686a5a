package sanitize

// Analysis is the structured output contract for the analyst step:
// three required text fields. The analyst prompt asks for strict JSON
// matching these keys; see ExtractStructured for how near-misses are
// recovered.
type Analysis struct {
	KeyInsights         string `json:"key_insights"`
	ComparativeAnalysis string `json:"comparative_analysis"`
	Narrative           string `json:"narrative"`
}

// requiredFields lists the Analysis JSON keys in validation-report order.
var requiredFields = []string{"key_insights", "comparative_analysis", "narrative"}
