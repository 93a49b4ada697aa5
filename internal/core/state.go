package core

import (
	"sync"

	"rgblight-controller/internal/light"
)

// State is the shared, read-mostly view of the light for the web UI and the
// broker layer. The controller itself lives in the agent loop; this is a copy
// refreshed from there.
type State struct {
	mu              sync.RWMutex
	BrokerConnected bool
	Power           bool
	Auto            bool
	Target          light.Color
	Current         light.Color
	Brightness      uint8
	RunningPattern  string
}

// NewState creates a new State instance.
func NewState() *State {
	return &State{}
}

// Clone returns a snapshot of the current state for safe reading.
func (s *State) Clone() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		BrokerConnected: s.BrokerConnected,
		Power:           s.Power,
		Auto:            s.Auto,
		Target:          s.Target,
		Current:         s.Current,
		Brightness:      s.Brightness,
		RunningPattern:  s.RunningPattern,
	}
}

// Update copies the controller snapshot in.
func (s *State) Update(snap light.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Power = snap.Power
	s.Auto = snap.Auto
	s.Target = snap.Target
	s.Current = snap.Current
	s.Brightness = snap.Brightness
}

// SetBrokerConnected updates the broker connection flag.
func (s *State) SetBrokerConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BrokerConnected = connected
}

// SetRunningPattern updates the running pattern state.
func (s *State) SetRunningPattern(pattern string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RunningPattern = pattern
}
