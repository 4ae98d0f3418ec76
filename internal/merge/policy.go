// Package merge turns an extraction seed into an activity draft. A policy
// table decides which suggestions auto-apply; everything else is held for
// the user to accept or dismiss one by one.
package merge

import (
	"github.com/salesvoice/salesvoice/internal/config"
	"github.com/salesvoice/salesvoice/internal/extraction"
)

// Policy holds the auto-apply thresholds. Classification fields move as a
// group on the overall extraction confidence; identity and numeric fields
// additionally need their own confidence to clear a per-field bar.
type Policy struct {
	OverallThreshold float64
	// FieldThresholds holds the per-field bars. Fields without an entry
	// auto-apply on the overall bar alone.
	FieldThresholds map[string]float64
}

// NewPolicy builds the policy table from configuration.
func NewPolicy(cfg config.MergeConfig) Policy {
	return Policy{
		OverallThreshold: cfg.OverallThreshold,
		FieldThresholds: map[string]float64{
			extraction.FieldCustomerName:   cfg.CustomerNameThreshold,
			extraction.FieldContactInfo:    cfg.ContactInfoThreshold,
			extraction.FieldEstimatedValue: cfg.EstimatedValueThreshold,
		},
	}
}

// DefaultPolicy returns the production thresholds.
func DefaultPolicy() Policy {
	return NewPolicy(config.MergeConfig{
		OverallThreshold:        0.70,
		CustomerNameThreshold:   0.60,
		ContactInfoThreshold:    0.60,
		EstimatedValueThreshold: 0.50,
	})
}

// shouldAutoApply reports whether a suggestion clears the policy bar given
// the overall extraction confidence. Fields without a per-field entry are
// bulk classification fields and move together on the overall bar alone;
// the rest also need their own confidence to clear the per-field bar.
func (p Policy) shouldAutoApply(overall float64, s extraction.Suggestion) bool {
	if overall < p.OverallThreshold {
		return false
	}
	t, ok := p.FieldThresholds[s.Field]
	if !ok {
		return true
	}
	return s.Confidence >= t
}
