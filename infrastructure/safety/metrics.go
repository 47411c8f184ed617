package safety

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/iam-archie/school-chatbot/internal/domain"
)

// Export keys of Snapshot.
const (
	KeyTotalInputChecks  = "total_input_checks"
	KeyTotalOutputChecks = "total_output_checks"
	KeyBlockedSexual     = "blocked_sexual"
	KeyBlockedViolence   = "blocked_violence"
	KeyBlockedDrugs      = "blocked_drugs"
	KeyBlockedBullying   = "blocked_bullying"
	KeyBlockedCheating   = "blocked_cheating"
	KeyBlockedInjection  = "blocked_injection"
	KeyPIIDetected       = "pii_detected"
	KeySafeQueries       = "safe_queries"
	KeyBlockedOutputs    = "blocked_outputs"
)

// Metrics holds the safety counters shared by every query. Counters only
// grow; there is no reset.
type Metrics struct {
	inputChecks    atomic.Int64
	outputChecks   atomic.Int64
	sexual         atomic.Int64
	violence       atomic.Int64
	drugs          atomic.Int64
	bullying       atomic.Int64
	cheating       atomic.Int64
	injection      atomic.Int64
	piiDetected    atomic.Int64
	safeQueries    atomic.Int64
	blockedOutputs atomic.Int64
}

// NewMetrics returns zeroed counters.
func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) recordBlocked(category domain.SafetyCategory) {
	if c := m.categoryCounter(category); c != nil {
		c.Add(1)
	}
}

func (m *Metrics) categoryCounter(category domain.SafetyCategory) *atomic.Int64 {
	switch category {
	case domain.CategorySexual:
		return &m.sexual
	case domain.CategoryViolence:
		return &m.violence
	case domain.CategoryDrugs:
		return &m.drugs
	case domain.CategoryBullying:
		return &m.bullying
	case domain.CategoryCheating:
		return &m.cheating
	case domain.CategoryInjection:
		return &m.injection
	default:
		return nil
	}
}

// Snapshot returns a copy of every counter keyed by its export name.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		KeyTotalInputChecks:  m.inputChecks.Load(),
		KeyTotalOutputChecks: m.outputChecks.Load(),
		KeyBlockedSexual:     m.sexual.Load(),
		KeyBlockedViolence:   m.violence.Load(),
		KeyBlockedDrugs:      m.drugs.Load(),
		KeyBlockedBullying:   m.bullying.Load(),
		KeyBlockedCheating:   m.cheating.Load(),
		KeyBlockedInjection:  m.injection.Load(),
		KeyPIIDetected:       m.piiDetected.Load(),
		KeySafeQueries:       m.safeQueries.Load(),
		KeyBlockedOutputs:    m.blockedOutputs.Load(),
	}
}

// TotalBlocked sums the per-category question counters.
func (m *Metrics) TotalBlocked() int64 {
	var total int64
	for _, c := range domain.BlockCategories {
		total += m.categoryCounter(c).Load()
	}
	return total
}

// Report renders the counters as a plain-text summary.
func (m *Metrics) Report() string {
	s := m.Snapshot()
	var b strings.Builder
	b.WriteString("Safety Report\n")
	b.WriteString("=============\n")
	fmt.Fprintf(&b, "Total Input Checks: %d\n", s[KeyTotalInputChecks])
	fmt.Fprintf(&b, "Total Output Checks: %d\n", s[KeyTotalOutputChecks])
	fmt.Fprintf(&b, "Safe Queries: %d\n", s[KeySafeQueries])
	fmt.Fprintf(&b, "Total Blocked: %d\n", m.TotalBlocked())
	b.WriteString("\nBlocked by Category:\n")
	fmt.Fprintf(&b, "  Sexual Content: %d\n", s[KeyBlockedSexual])
	fmt.Fprintf(&b, "  Violence: %d\n", s[KeyBlockedViolence])
	fmt.Fprintf(&b, "  Drugs/Alcohol: %d\n", s[KeyBlockedDrugs])
	fmt.Fprintf(&b, "  Bullying: %d\n", s[KeyBlockedBullying])
	fmt.Fprintf(&b, "  Cheating: %d\n", s[KeyBlockedCheating])
	fmt.Fprintf(&b, "  Injection Attempts: %d\n", s[KeyBlockedInjection])
	fmt.Fprintf(&b, "\nFiltered Answers: %d\n", s[KeyBlockedOutputs])
	fmt.Fprintf(&b, "PII Items Protected: %d\n", s[KeyPIIDetected])
	return b.String()
}
