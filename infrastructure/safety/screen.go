// Package safety screens student questions and generated answers against
// fixed keyword tables and redacts personal data before text moves on.
package safety

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/iam-archie/school-chatbot/internal/domain"
	"github.com/iam-archie/school-chatbot/pkg/logger"
)

// Screen is the input and output content filter. It holds no per-call
// state and is safe for concurrent use; all side effects go to Metrics.
type Screen struct {
	metrics *Metrics
	log     logger.Logger
}

// NewScreen creates a Screen recording into metrics. A nil metrics gets a
// private counter set.
func NewScreen(metrics *Metrics, log logger.Logger) *Screen {
	if metrics == nil {
		metrics = NewMetrics()
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &Screen{metrics: metrics, log: log}
}

// Metrics returns the counters this screen records into.
func (s *Screen) Metrics() *Metrics { return s.metrics }

// CheckInput screens a student question. The first matching category
// blocks the question; otherwise personal data is redacted and the
// question passes.
func (s *Screen) CheckInput(text string) domain.SafetyVerdict {
	s.metrics.inputChecks.Add(1)

	folded := fold(text)
	if r, ok := firstMatch(folded, inputRules); ok {
		s.metrics.recordBlocked(r.category)
		s.log.Info("question blocked", "category", string(r.category))
		return domain.Blocked(r.category, r.reason)
	}

	sanitized, redacted := redact(text)
	if redacted > 0 {
		s.metrics.piiDetected.Add(int64(redacted))
		s.log.Debug("personal data redacted from question", "matches", redacted)
	}
	s.metrics.safeQueries.Add(1)
	return domain.Passed(sanitized, ReasonSafeInput, redacted)
}

// CheckOutput screens a generated answer before it reaches the student.
func (s *Screen) CheckOutput(text string) domain.SafetyVerdict {
	s.metrics.outputChecks.Add(1)

	folded := fold(text)
	if r, ok := firstMatch(folded, outputRules); ok {
		s.metrics.blockedOutputs.Add(1)
		s.log.Warn("generated answer filtered", "category", string(r.category))
		return domain.Blocked(r.category, r.reason)
	}

	sanitized, redacted := redact(text)
	if redacted > 0 {
		s.metrics.piiDetected.Add(int64(redacted))
		s.log.Debug("personal data redacted from answer", "matches", redacted)
	}
	return domain.Passed(sanitized, ReasonSafeOutput, redacted)
}

// fold applies Unicode case folding. A Caser carries state, so each call
// gets its own.
func fold(text string) string {
	return cases.Fold().String(text)
}

func firstMatch(folded string, rules []rule) (rule, bool) {
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(folded, kw) {
				return r, true
			}
		}
	}
	return rule{}, false
}

// redact replaces every PII match found in the original text with its
// placeholder and returns the number of matches.
func redact(text string) (string, int) {
	masked := text
	count := 0
	for _, p := range piiPatterns {
		matches := p.re.FindAllString(text, -1)
		for _, m := range matches {
			masked = strings.ReplaceAll(masked, m, p.placeholder)
		}
		count += len(matches)
	}
	return masked, count
}
