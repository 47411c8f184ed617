package domain

// SafetyCategory names the rule family that blocked a piece of text.
type SafetyCategory string

const (
	CategoryNone      SafetyCategory = ""
	CategoryInjection SafetyCategory = "injection"
	CategorySexual    SafetyCategory = "sexual"
	CategoryViolence  SafetyCategory = "violence"
	CategoryDrugs     SafetyCategory = "drugs"
	CategoryBullying  SafetyCategory = "bullying"
	CategoryCheating  SafetyCategory = "cheating"
)

// BlockCategories lists every category that can reject a student question,
// in screening order.
var BlockCategories = []SafetyCategory{
	CategoryInjection,
	CategorySexual,
	CategoryViolence,
	CategoryDrugs,
	CategoryBullying,
	CategoryCheating,
}

// SafetyVerdict is the immutable result of screening one piece of text.
type SafetyVerdict struct {
	// Safe is false when a blocked category matched.
	Safe bool `json:"safe"`

	// Category is the matching category, or CategoryNone when safe.
	Category SafetyCategory `json:"category,omitempty"`

	// Reason is the human-readable explanation shown to the student.
	Reason string `json:"reason"`

	// SanitizedText is the PII-redacted text. It is only set when Safe.
	SanitizedText string `json:"sanitized_text,omitempty"`

	// PIIRedacted counts the personal-data matches replaced in SanitizedText.
	PIIRedacted int `json:"pii_redacted"`
}

// Blocked builds an unsafe verdict.
func Blocked(category SafetyCategory, reason string) SafetyVerdict {
	return SafetyVerdict{Safe: false, Category: category, Reason: reason}
}

// Passed builds a safe verdict carrying the redacted text.
func Passed(sanitized, reason string, redactions int) SafetyVerdict {
	return SafetyVerdict{Safe: true, Reason: reason, SanitizedText: sanitized, PIIRedacted: redactions}
}
