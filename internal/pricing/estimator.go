package pricing

import (
	"fmt"
	"math"

	"RatePulse/internal/domain/models"
)

// FilterConfig holds the transition model tuning. The transition matrix itself
// is fixed to a local-linear-trend model F = [[1,1],[0,1]] with observation
// matrix H = [1,0]; only the noise schedule and prior are configurable.
type FilterConfig struct {
	ProcessNoiseLevel float64 // Q[0][0], variance added to level per step
	ProcessNoiseTrend float64 // Q[1][1], variance added to trend per step
	PriorVariance     float64 // wide prior on first observation
	VarianceFloor     float64 // eigenvalue clamp floor for covariance
}

// DefaultFilterConfig returns tuning that tracks daily occupancy signals.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		ProcessNoiseLevel: 0.05,
		ProcessNoiseTrend: 0.01,
		PriorVariance:     100.0,
		VarianceFloor:     1e-9,
	}
}

// Estimator is a linear-Gaussian filter over per-bucket demand state.
// Each Update applies one predict step then blends in the observation
// weighted by the Kalman gain.
type Estimator struct {
	store *StateStore
	cfg   FilterConfig
}

// NewEstimator creates an estimator over the given store.
func NewEstimator(store *StateStore, cfg FilterConfig) *Estimator {
	if cfg.VarianceFloor <= 0 {
		cfg.VarianceFloor = 1e-9
	}
	return &Estimator{store: store, cfg: cfg}
}

// Update applies one filter step for the observation's bucket and returns the
// posterior state. The stored state is mutated in place; callers must not
// re-apply an observation.
func (e *Estimator) Update(obs models.Observation) (models.DemandState, error) {
	if obs.Variance <= 0 {
		return models.DemandState{}, fmt.Errorf("%w: variance %v must be positive", ErrInvalidObservation, obs.Variance)
	}
	if math.IsNaN(obs.Value) || math.IsInf(obs.Value, 0) {
		return models.DemandState{}, fmt.Errorf("%w: non-finite value", ErrInvalidObservation)
	}

	entry, _ := e.store.entry(obs.Bucket.Key(), true)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	st := &entry.st
	if st.Steps == 0 {
		// First observation seeds the state directly with a wide prior.
		st.Mean = [2]float64{obs.Value, 0}
		st.Cov = [2][2]float64{
			{e.cfg.PriorVariance, 0},
			{0, e.cfg.PriorVariance / 4},
		}
		st.Steps = 1
		st.UpdatedAt = obs.Timestamp
		return *st, nil
	}

	predictInPlace(st, e.cfg, 1)

	// Innovation variance: S = H P H^T + R with H = [1, 0]
	S := st.Cov[0][0] + obs.Variance

	// Kalman gain: K = P H^T / S
	k0 := st.Cov[0][0] / S
	k1 := st.Cov[1][0] / S

	// Residual against predicted level
	r := obs.Value - st.Mean[0]

	st.Mean[0] += k0 * r
	st.Mean[1] += k1 * r

	// P = (I - K H) P
	p := st.Cov
	st.Cov[0][0] = (1 - k0) * p[0][0]
	st.Cov[0][1] = (1 - k0) * p[0][1]
	st.Cov[1][0] = p[1][0] - k1*p[0][0]
	st.Cov[1][1] = p[1][1] - k1*p[0][1]

	clampCovariance(&st.Cov, e.cfg.VarianceFloor)

	st.Steps++
	st.UpdatedAt = obs.Timestamp
	return *st, nil
}

// State returns a copy of the bucket's current state.
func (e *Estimator) State(b models.Bucket) (models.DemandState, bool) {
	return e.store.Get(b)
}

// Seeded reports whether any bucket has state yet.
func (e *Estimator) Seeded() bool { return e.store.Seeded() }

// predictInPlace advances the state k steps under F = [[1,1],[0,1]]:
// level follows the trend, trend is a random walk, and covariance inflates
// by the process noise each step.
func predictInPlace(st *models.DemandState, cfg FilterConfig, k int) {
	for i := 0; i < k; i++ {
		st.Mean[0] += st.Mean[1]

		p := st.Cov
		st.Cov[0][0] = p[0][0] + p[0][1] + p[1][0] + p[1][1] + cfg.ProcessNoiseLevel
		st.Cov[0][1] = p[0][1] + p[1][1]
		st.Cov[1][0] = p[1][0] + p[1][1]
		st.Cov[1][1] = p[1][1] + cfg.ProcessNoiseTrend
	}
}

// clampCovariance symmetrizes the matrix and lifts its smallest eigenvalue to
// floor when numerical cancellation pushed it below. The filter never fails on
// near-singular covariance; it recovers here.
func clampCovariance(cov *[2][2]float64, floor float64) {
	off := (cov[0][1] + cov[1][0]) / 2
	cov[0][1], cov[1][0] = off, off

	tr := cov[0][0] + cov[1][1]
	det := cov[0][0]*cov[1][1] - off*off
	disc := tr*tr - 4*det
	if disc < 0 {
		disc = 0
	}
	minEig := (tr - math.Sqrt(disc)) / 2
	if minEig < floor {
		shift := floor - minEig
		cov[0][0] += shift
		cov[1][1] += shift
	}
}
