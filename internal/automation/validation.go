package automation

import (
	"fmt"

	"github.com/autoscribe/autoscribe-core/internal/catalog"
	"github.com/autoscribe/autoscribe-core/internal/resolve"
)

// Validation constants.
const (
	// lowConfidenceFloor is the resolution confidence below which an
	// accepted fuzzy match is flagged for review.
	lowConfidenceFloor = 0.75
)

// Validate checks a synthesised document and its resolution outcomes,
// returning every finding at once. It never mutates the document and
// never aborts: structurally broken documents come back with error
// diagnostics, not an error.
//
// Checks, in order:
//   - the document has at least one trigger
//   - the document has at least one service action
//   - every referenced entity still exists in the catalog snapshot
//   - every mention resolved, and resolved confidently
func Validate(doc *Document, rir *resolve.ResolvedIR, snap *catalog.Snapshot) Diagnostics {
	if doc == nil {
		doc = &Document{}
	}

	var diags Diagnostics

	if len(doc.Triggers) == 0 {
		diags = append(diags, Diagnostic{
			Severity: SeverityError,
			Code:     CodeMissingTrigger,
			Message:  "automation has no triggers and can never fire",
		})
	}

	if doc.ServiceActionCount() == 0 {
		diags = append(diags, Diagnostic{
			Severity: SeverityError,
			Code:     CodeMissingAction,
			Message:  "automation has no service actions and does nothing",
		})
	}

	for _, id := range doc.EntityIDs() {
		if snap != nil && snap.Contains(id) {
			continue
		}
		diags = append(diags, Diagnostic{
			Severity: SeverityError,
			Code:     CodeUnknownEntity,
			Message:  fmt.Sprintf("entity %s is not in the catalog", id),
			Subject:  id,
		})
	}

	if rir != nil {
		for _, rm := range rir.AllMentions() {
			switch {
			case !rm.Resolved():
				diags = append(diags, Diagnostic{
					Severity: SeverityWarning,
					Code:     CodeUnresolvedMention,
					Message:  fmt.Sprintf("no entity matched %q", rm.Mention.Text),
					Subject:  rm.Mention.Text,
				})
			case rm.Confidence < lowConfidenceFloor:
				diags = append(diags, Diagnostic{
					Severity: SeverityWarning,
					Code:     CodeLowConfidence,
					Message: fmt.Sprintf("%q resolved to %s with confidence %.2f",
						rm.Mention.Text, rm.EntityID, rm.Confidence),
					Subject: rm.EntityID,
				})
			}
		}
	}

	return diags
}
