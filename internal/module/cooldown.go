package module

import "time"

// CombatCooldown tracks time since the local subject last fought.
// The zero value counts from the first observation.
type CombatCooldown struct {
	lastCombat time.Time
}

// Elapsed refreshes combat stamp and reports whether delay has passed.
// Params: tick view and delay after combat.
// Returns: true once now - last combat exceeds delay.
func (c *CombatCooldown) Elapsed(t Tick, delay time.Duration) bool {
	if c.lastCombat.IsZero() || t.InCombat() {
		c.lastCombat = t.Now
	}
	return t.Now.Sub(c.lastCombat) > delay
}
