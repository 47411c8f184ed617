package domain

import (
	"fmt"
	"strings"
)

// QualityTier is the discrete grade assigned to retrieved context.
// Tiers are ordered so that a larger value always means better context.
type QualityTier int

const (
	// QualityPoor means the context is missing or unusable.
	QualityPoor QualityTier = iota
	// QualityFair means the context is partially useful.
	QualityFair
	// QualityGood means the context answers the question adequately.
	QualityGood
	// QualityExcellent means the context answers the question fully.
	QualityExcellent
)

// Tier thresholds applied to the mean of the three evaluation scores.
const (
	ExcellentThreshold = 0.8
	GoodThreshold      = 0.6
	FairThreshold      = 0.4
)

// thresholdEpsilon absorbs float rounding in the mean so that scores sitting
// exactly on a threshold land in the higher tier.
const thresholdEpsilon = 1e-9

// TierFromScores derives the quality tier from relevance, completeness and
// clarity scores.
func TierFromScores(relevance, completeness, clarity float64) QualityTier {
	return TierFromMean((relevance + completeness + clarity) / 3)
}

// TierFromMean maps a mean score onto a tier using the fixed thresholds.
func TierFromMean(mean float64) QualityTier {
	switch {
	case mean >= ExcellentThreshold-thresholdEpsilon:
		return QualityExcellent
	case mean >= GoodThreshold-thresholdEpsilon:
		return QualityGood
	case mean >= FairThreshold-thresholdEpsilon:
		return QualityFair
	default:
		return QualityPoor
	}
}

// NeedsEscalation reports whether context at this tier should trigger the
// next retrieval strategy.
func (q QualityTier) NeedsEscalation() bool {
	return q == QualityFair || q == QualityPoor
}

// Confidence returns the student-facing confidence label for the tier.
func (q QualityTier) Confidence() string {
	switch q {
	case QualityExcellent:
		return "High"
	case QualityGood:
		return "Good"
	case QualityFair:
		return "Medium"
	default:
		return "Low"
	}
}

// String returns the canonical upper-case tier name.
func (q QualityTier) String() string {
	switch q {
	case QualityExcellent:
		return "EXCELLENT"
	case QualityGood:
		return "GOOD"
	case QualityFair:
		return "FAIR"
	case QualityPoor:
		return "POOR"
	default:
		return fmt.Sprintf("QualityTier(%d)", int(q))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (q QualityTier) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (q *QualityTier) UnmarshalText(text []byte) error {
	tier, err := ParseQualityTier(string(text))
	if err != nil {
		return err
	}
	*q = tier
	return nil
}

// ParseQualityTier parses a tier name case-insensitively.
func ParseQualityTier(s string) (QualityTier, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "EXCELLENT":
		return QualityExcellent, nil
	case "GOOD":
		return QualityGood, nil
	case "FAIR":
		return QualityFair, nil
	case "POOR":
		return QualityPoor, nil
	default:
		return QualityPoor, fmt.Errorf("%w: unknown quality tier %q", ErrInvalidConfiguration, s)
	}
}
