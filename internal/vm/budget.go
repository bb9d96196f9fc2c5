package vm

// Budget is the countdown, in seconds, shared by every polling loop of one
// poll. It is decremented only by Spend and never replenished.
type Budget struct {
	remaining int
}

// NewBudget returns a budget of the given number of seconds.
func NewBudget(seconds int) *Budget {
	if seconds < 0 {
		seconds = 0
	}
	return &Budget{remaining: seconds}
}

// Remaining returns the seconds left.
func (b *Budget) Remaining() int {
	return b.remaining
}

// Exhausted reports whether no seconds are left.
func (b *Budget) Exhausted() bool {
	return b.remaining <= 0
}

// Spend consumes one second and reports whether any are left.
func (b *Budget) Spend() bool {
	if b.remaining > 0 {
		b.remaining--
	}
	return b.remaining > 0
}
