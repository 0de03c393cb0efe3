package marble

import "math"

// Stepper turns variable frame time into whole fixed ticks of a World.
// At most MaxSubsteps ticks run per Advance; time beyond that is dropped so a
// slow frame cannot snowball into ever longer catch-up bursts.
type Stepper struct {
	World       *World
	TickSize    float64
	MaxSubsteps int

	accumulator float64
	dropped     float64
}

// NewStepper wraps world. Non-positive arguments fall back to the world's config.
func NewStepper(world *World, tickSize float64, maxSubsteps int) *Stepper {
	if !(tickSize > 0) {
		tickSize = world.config.TickSize
	}
	if !(tickSize > 0) {
		tickSize = DefaultConfig().TickSize
	}
	if maxSubsteps < 1 {
		maxSubsteps = max(1, world.config.MaxSubsteps)
	}

	return &Stepper{
		World:       world,
		TickSize:    tickSize,
		MaxSubsteps: maxSubsteps,
	}
}

// Advance adds frameDelta seconds and runs the ticks now due.
// It returns how many ticks ran.
func (s *Stepper) Advance(frameDelta float64) int {
	if frameDelta > 0 && !math.IsInf(frameDelta, 0) {
		s.accumulator += frameDelta
	}

	ticks := 0
	for s.accumulator >= s.TickSize {
		if ticks == s.MaxSubsteps {
			excess := s.accumulator - math.Mod(s.accumulator, s.TickSize)
			s.accumulator -= excess
			s.dropped += excess
			s.World.logger.Printf("marble: frame needed more than %d ticks, dropped %.4fs of simulation", s.MaxSubsteps, excess)
			break
		}

		s.World.Step(s.TickSize)
		s.accumulator -= s.TickSize
		ticks++
	}

	return ticks
}

// Alpha returns how far the leftover time is into the next tick, in [0, 1),
// for interpolating rendered transforms.
func (s *Stepper) Alpha() float64 {
	return s.accumulator / s.TickSize
}

// Dropped returns the total simulation time discarded so far
func (s *Stepper) Dropped() float64 {
	return s.dropped
}
