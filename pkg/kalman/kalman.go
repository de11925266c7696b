// Package kalman implements a 4-state constant-velocity Kalman filter
// used by the visual tracker to smooth per-track positions across
// frames.
package kalman

const stateSize = 4

// Filter is a 2D constant-velocity Kalman filter over state vector
// [x, y, vx, vy]. A Filter is owned exclusively by the track that
// holds it; it is not safe for concurrent use.
type Filter struct {
	state      [stateSize]float64
	covariance [stateSize][stateSize]float64

	processNoise     float64
	measurementNoise float64
	dt               float64

	initialized bool
	updateCount uint64
}

// New constructs a Filter with the given process and measurement
// noise and the default 30fps timestep (1/30 s).
func New(processNoise, measurementNoise float64) *Filter {
	f := &Filter{
		processNoise:     processNoise,
		measurementNoise: measurementNoise,
		dt:               1.0 / 30.0,
	}
	f.covariance = initialCovariance()
	return f
}

func initialCovariance() [stateSize][stateSize]float64 {
	var c [stateSize][stateSize]float64
	for i := 0; i < stateSize; i++ {
		c[i][i] = 1000.0
	}
	return c
}

// Initialize resets the filter at position (x,y) with zero velocity
// and the initial (large) uncertainty covariance.
func (f *Filter) Initialize(x, y float64) {
	f.state = [stateSize]float64{x, y, 0, 0}
	f.covariance = initialCovariance()
	f.initialized = true
	f.updateCount = 1
}

// SetDt overrides the filter's timestep.
func (f *Filter) SetDt(dt float64) { f.dt = dt }

// IsInitialized reports whether the filter has received a first measurement.
func (f *Filter) IsInitialized() bool { return f.initialized }

// UpdateCount returns the number of successful updates applied.
func (f *Filter) UpdateCount() uint64 { return f.updateCount }

// Position returns the current position estimate.
func (f *Filter) Position() (x, y float64) { return f.state[0], f.state[1] }

// Velocity returns the current velocity estimate.
func (f *Filter) Velocity() (vx, vy float64) { return f.state[2], f.state[3] }

// State returns a copy of the raw state vector [x, y, vx, vy].
func (f *Filter) State() [4]float64 { return f.state }

// Predict advances the state by one timestep and inflates the
// covariance. Calling Predict on an uninitialized filter is a no-op
// that returns the origin, matching the uninitialized-predict
// contract in §4.C.
func (f *Filter) Predict() (x, y float64) {
	if !f.initialized {
		return 0, 0
	}

	predictedX := f.state[0] + f.state[2]*f.dt
	predictedY := f.state[1] + f.state[3]*f.dt
	f.state[0] = predictedX
	f.state[1] = predictedY

	transition := f.transitionMatrix()
	noise := f.processNoiseMatrix()

	var fp [stateSize][stateSize]float64
	for i := 0; i < stateSize; i++ {
		for j := 0; j < stateSize; j++ {
			for k := 0; k < stateSize; k++ {
				fp[i][j] += transition[i][k] * f.covariance[k][j]
			}
		}
	}

	var fpft [stateSize][stateSize]float64
	for i := 0; i < stateSize; i++ {
		for j := 0; j < stateSize; j++ {
			for k := 0; k < stateSize; k++ {
				fpft[i][j] += fp[i][k] * transition[j][k]
			}
		}
	}

	for i := 0; i < stateSize; i++ {
		for j := 0; j < stateSize; j++ {
			f.covariance[i][j] = fpft[i][j] + noise[i][j]
		}
	}

	return predictedX, predictedY
}

// Update incorporates a new measurement (mx, my). If the filter was
// not yet initialized, it initializes at the measurement and returns
// it unchanged. If the innovation covariance is numerically singular
// (|det| < 1e-10) the update is aborted and the raw measurement is
// returned unchanged, per §4.C.
func (f *Filter) Update(mx, my float64) (x, y float64) {
	if !f.initialized {
		f.Initialize(mx, my)
		return mx, my
	}

	f.Predict()

	residualX := mx - f.state[0]
	residualY := my - f.state[1]

	s00 := f.covariance[0][0] + f.measurementNoise
	s01 := f.covariance[0][1]
	s10 := f.covariance[1][0]
	s11 := f.covariance[1][1] + f.measurementNoise

	det := s00*s11 - s01*s10
	absDet := det
	if absDet < 0 {
		absDet = -absDet
	}
	if absDet < 1e-10 {
		return mx, my
	}

	sInv00 := s11 / det
	sInv01 := -s01 / det
	sInv10 := -s10 / det
	sInv11 := s00 / det

	var gain [stateSize][2]float64
	for i := 0; i < stateSize; i++ {
		gain[i][0] = f.covariance[i][0]*sInv00 + f.covariance[i][1]*sInv10
		gain[i][1] = f.covariance[i][0]*sInv01 + f.covariance[i][1]*sInv11
	}

	f.state[0] += gain[0][0]*residualX + gain[0][1]*residualY
	f.state[1] += gain[1][0]*residualX + gain[1][1]*residualY
	f.state[2] += gain[2][0]*residualX + gain[2][1]*residualY
	f.state[3] += gain[3][0]*residualX + gain[3][1]*residualY

	var iMinusKH [stateSize][stateSize]float64
	iMinusKH[0] = [stateSize]float64{1.0 - gain[0][0], -gain[0][1], 0, 0}
	iMinusKH[1] = [stateSize]float64{-gain[1][0], 1.0 - gain[1][1], 0, 0}
	iMinusKH[2] = [stateSize]float64{-gain[2][0], -gain[2][1], 1.0, 0}
	iMinusKH[3] = [stateSize]float64{-gain[3][0], -gain[3][1], 0, 1.0}

	oldCov := f.covariance
	for i := 0; i < stateSize; i++ {
		for j := 0; j < stateSize; j++ {
			f.covariance[i][j] = 0
			for k := 0; k < stateSize; k++ {
				f.covariance[i][j] += iMinusKH[i][k] * oldCov[k][j]
			}
		}
	}

	f.updateCount++
	return f.state[0], f.state[1]
}

func (f *Filter) transitionMatrix() [stateSize][stateSize]float64 {
	return [stateSize][stateSize]float64{
		{1, 0, f.dt, 0},
		{0, 1, 0, f.dt},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

// processNoiseMatrix realizes the continuous-white-noise-acceleration
// discretization named in §4.C: dt⁴/4·q, dt³/2·q, dt²·q in the
// (px,vx) and (py,vy) blocks.
func (f *Filter) processNoiseMatrix() [stateSize][stateSize]float64 {
	dt2 := f.dt * f.dt
	dt3 := dt2 * f.dt
	dt4 := dt2 * dt2
	q := f.processNoise

	return [stateSize][stateSize]float64{
		{dt4 / 4.0 * q, 0, dt3 / 2.0 * q, 0},
		{0, dt4 / 4.0 * q, 0, dt3 / 2.0 * q},
		{dt3 / 2.0 * q, 0, dt2 * q, 0},
		{0, dt3 / 2.0 * q, 0, dt2 * q},
	}
}
