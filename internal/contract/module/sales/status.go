package sales

import "github.com/kirinyoku/seat-market/internal/domain"

// Status is the lifecycle stage of a sale. It is computed from the stored
// record and the block time on every read and never persisted.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusExhausted Status = "exhausted"
	StatusEnded     Status = "ended"
	StatusHalted    Status = "halted"
)

// EffectiveStatus derives the status of s at now. Exhaustion takes precedence
// over the disabled flag, which takes precedence over the time window.
func EffectiveStatus(s Sale, now domain.Timestamp) Status {
	switch {
	case s.MintedCount >= s.TotalSupply:
		return StatusExhausted
	case s.Disabled:
		return StatusHalted
	case now < s.StartTime:
		return StatusScheduled
	case now > s.EndTime:
		return StatusEnded
	default:
		return StatusActive
	}
}
