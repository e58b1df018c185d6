package order

import "time"

// AutoProgressCooldown is the minimum interval between two simulated
// advancements of the same order.
const AutoProgressCooldown = 20 * time.Second

// autoEligible lists the statuses the simulation may move forward.
// Later stages only change through real carrier events or manual
// administrative advancement.
func autoEligible(s Status) bool {
	return s == StatusCreated || s == StatusPaymentPending || s == StatusPaid
}

// AutoProgress stands in for backend-pushed status changes: inspecting
// an eligible order outside its cooldown window nudges it one step
// forward and stamps LastAutoAdvancedAt.
type AutoProgress struct {
	Cooldown time.Duration
	Now      func() time.Time
}

func NewAutoProgress() *AutoProgress {
	return &AutoProgress{
		Cooldown: AutoProgressCooldown,
		Now:      time.Now,
	}
}

// Inspect returns the advanced order and true when o was moved, or the
// input unchanged and false when the policy does not apply.
func (p *AutoProgress) Inspect(o Order) (Order, bool) {
	if o.Status.Terminal() || !autoEligible(o.Status) {
		return o, false
	}

	now := p.Now()
	if o.LastAutoAdvancedAt != nil && now.Sub(*o.LastAutoAdvancedAt) < p.Cooldown {
		return o, false
	}

	advanced := Advance(o, now)
	if advanced.Status == o.Status {
		return o, false
	}

	stamp := now
	advanced.LastAutoAdvancedAt = &stamp
	return advanced, true
}
