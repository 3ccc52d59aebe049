package automation

// Severity classifies a diagnostic.
type Severity string

// Diagnostic severities.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic codes.
//
// Errors mark documents Home Assistant would reject or that can never
// fire; warnings mark resolutions worth a second look. Neither blocks the
// compile: the document is always returned alongside its diagnostics.
const (
	// CodeMissingTrigger: the document has no triggers.
	CodeMissingTrigger = "missing_trigger"

	// CodeMissingAction: the document has no service actions (delays
	// alone do nothing).
	CodeMissingAction = "missing_action"

	// CodeUnknownEntity: a referenced entity is no longer in the catalog.
	CodeUnknownEntity = "unknown_entity"

	// CodeUnresolvedMention: a mention matched no catalog entity.
	CodeUnresolvedMention = "unresolved_mention"

	// CodeLowConfidence: a fuzzy match was accepted below the review
	// threshold.
	CodeLowConfidence = "low_confidence"
)

// Diagnostic is one finding about a compiled document.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`

	// Subject is the mention text or entity ID the finding refers to,
	// when there is one.
	Subject string `json:"subject,omitempty"`
}

// Diagnostics is an ordered list of findings: structural errors first,
// then resolution warnings in utterance order.
type Diagnostics []Diagnostic

// HasErrors reports whether any diagnostic is an error.
func (ds Diagnostics) HasErrors() bool {
	for i := range ds {
		if ds[i].Severity == SeverityError {
			return true
		}
	}
	return false
}

// Counts returns the number of errors and warnings.
func (ds Diagnostics) Counts() (errs, warnings int) {
	for i := range ds {
		switch ds[i].Severity {
		case SeverityError:
			errs++
		case SeverityWarning:
			warnings++
		}
	}
	return errs, warnings
}
