package domain

// SignalResult holds the rule-based signals derived from a message's
// decoded text. Computed wholesale per message and never mutated.
type SignalResult struct {
	HasText        bool `json:"has_text"`
	HasLink        bool `json:"has_link"`
	IsSuspicious   bool `json:"is_suspicious"`
	HasUrgent      bool `json:"has_urgent_language"`
	IsMoneyRelated bool `json:"is_money_related"`
}

// PotentialPhishing reports the combined suspicious+money signal.
func (s SignalResult) PotentialPhishing() bool {
	return s.IsSuspicious && s.IsMoneyRelated
}

// Merge ORs another result into a copy of s. Signal aggregation across
// fragments is commutative, so merge order does not matter.
func (s SignalResult) Merge(other SignalResult) SignalResult {
	return SignalResult{
		HasText:        s.HasText || other.HasText,
		HasLink:        s.HasLink || other.HasLink,
		IsSuspicious:   s.IsSuspicious || other.IsSuspicious,
		HasUrgent:      s.HasUrgent || other.HasUrgent,
		IsMoneyRelated: s.IsMoneyRelated || other.IsMoneyRelated,
	}
}
