package weather

import (
	"math"
	"math/rand"
	"time"
)

// ProjectileTemplate describes one kind of weather-spawned projectile and
// the density at which it spawns across active client windows.
type ProjectileTemplate struct {
	Kind      string
	RatePerX  float64 // projectiles per tick per unit width of active windows
}

// Type is one named weather condition: ambient particles, projectile
// templates, wind range, and how long it lasts once selected.
type Type struct {
	Name              string
	AmbientParticles  []string
	Projectiles       []ProjectileTemplate
	WindMin, WindMax  float64
	DurationMin       time.Duration
	DurationMax       time.Duration
}

// Server drives the per-world weather state machine: it periodically
// selects a new Type from a WeightedPool, interpolates wind linearly
// between changes, and reports the active set of projectile templates to
// spawn. ForceWeather freezes selection onto a single named type.
type Server struct {
	pool  Pool[Type]
	rand  *rand.Rand
	types map[string]Type

	current       Type
	currentWind   float64
	targetWind    float64
	changesAt     time.Time
	forced        string
}

// NewServer constructs a weather server over the given pool of weighted
// weather type names and their definitions. seed makes selection
// deterministic for a given world seed.
func NewServer(pool Pool[string], defs map[string]Type, seed int64) *Server {
	s := &Server{rand: rand.New(rand.NewSource(seed)), types: defs}
	for _, e := range pool.items {
		if def, ok := defs[e.item]; ok {
			s.pool.Add(e.weight, def)
		}
	}
	return s
}

// ForceWeather pins the server to a single named weather type until cleared
// with ForceWeather(""). The forced type is looked up from the original
// definition set, not the pool, so types with zero pool weight can still be
// forced (e.g. scripted story weather).
func (s *Server) ForceWeather(name string) {
	s.forced = name
}

// Current returns the active weather type.
func (s *Server) Current() Type { return s.current }

// Wind returns the current interpolated wind value.
func (s *Server) Wind() float64 { return s.currentWind }

// Step advances the state machine to referenceTime, selecting a new weather
// type if the current one has expired (or a forced type differs from the
// current one), and linearly interpolating wind toward the target.
func (s *Server) Step(referenceTime time.Time) {
	if s.forced != "" {
		if s.current.Name != s.forced {
			if def, ok := s.types[s.forced]; ok {
				s.transitionTo(def, referenceTime)
			}
		}
	} else if s.current.Name == "" || !referenceTime.Before(s.changesAt) {
		s.transitionTo(s.pool.Select(s.rand), referenceTime)
	}

	if s.changesAt.IsZero() {
		return
	}
	total := s.changesAt.Sub(s.windStartedAt())
	if total <= 0 {
		s.currentWind = s.targetWind
		return
	}
	elapsed := referenceTime.Sub(s.windStartedAt())
	t := math.Min(1, math.Max(0, elapsed.Seconds()/total.Seconds()))
	s.currentWind = s.currentWind + (s.targetWind-s.currentWind)*t
}

func (s *Server) windStartedAt() time.Time {
	return s.changesAt.Add(-s.durationOf(s.current))
}

func (s *Server) durationOf(t Type) time.Duration {
	if t.DurationMax <= t.DurationMin {
		return t.DurationMin
	}
	span := t.DurationMax - t.DurationMin
	return t.DurationMin + time.Duration(s.rand.Int63n(int64(span)))
}

func (s *Server) transitionTo(next Type, referenceTime time.Time) {
	s.current = next
	s.targetWind = next.WindMin + s.rand.Float64()*(next.WindMax-next.WindMin)
	s.changesAt = referenceTime.Add(s.durationOf(next))
}

// SpawnCount returns how many projectiles of the given template to spawn
// this tick, given the total width (in tiles) of active client windows and
// the tick duration, using a Poisson-like density draw so the expected rate
// matches RatePerX over time even though each tick draws an integer count.
func (s *Server) SpawnCount(tmpl ProjectileTemplate, activeWidth float64, dt time.Duration) int {
	expected := tmpl.RatePerX * activeWidth * dt.Seconds()
	n := int(expected)
	if s.rand.Float64() < expected-float64(n) {
		n++
	}
	return n
}
