package world

// Timer is one scheduled action: a countdown of ticks, and the action to
// fire when it reaches zero (spec.md §4.E step 13).
type Timer struct {
	TicksRemaining int
	Fire           func()
}

// stepTimers decrements every timer by one tick and fires (then drops) any
// that reach zero, in the order they were scheduled.
func stepTimers(timers []Timer) []Timer {
	remaining := timers[:0]
	for _, t := range timers {
		t.TicksRemaining--
		if t.TicksRemaining <= 0 {
			if t.Fire != nil {
				t.Fire()
			}
			continue
		}
		remaining = append(remaining, t)
	}
	return remaining
}
