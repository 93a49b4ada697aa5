package light

// Arbiter tracks power and automatic cycling. The zero value is not useful;
// use NewArbiter.
type Arbiter struct {
	power bool
	auto  bool
}

// NewArbiter starts powered on with automatic cycling enabled.
func NewArbiter() *Arbiter {
	return &Arbiter{power: true, auto: true}
}

// SetPower applies a power command. A change of power state resets the auto
// flag to follow it: switching off stops cycling, switching back on resumes it.
func (a *Arbiter) SetPower(on bool) {
	if a.power != on {
		a.auto = on
	}
	a.power = on
}

// ManualColor suspends automatic cycling.
func (a *Arbiter) ManualColor() {
	a.auto = false
}

func (a *Arbiter) Power() bool { return a.power }
func (a *Arbiter) Auto() bool  { return a.auto }
