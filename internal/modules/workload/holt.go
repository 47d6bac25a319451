package workload

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// holtFit holds fitted additive-trend exponential smoothing state. With the
// short windows available here no seasonal component can be estimated, so
// the model is plain Holt: level plus linear trend, both smoothed.
type holtFit struct {
	alpha float64
	beta  float64
	level float64
	trend float64
	sse   float64
}

// sigmoid maps an unconstrained optimizer variable into (0, 1), keeping the
// smoothing parameters valid without explicit bound constraints.
func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// holtSSE runs the smoothing recursion over series for the given parameters
// and returns the one-step-ahead sum of squared errors along with the final
// level and trend.
func holtSSE(series []float64, alpha, beta float64) (sse, level, trend float64) {
	level = series[0]
	trend = series[1] - series[0]
	for t := 1; t < len(series); t++ {
		forecast := level + trend
		err := series[t] - forecast
		sse += err * err

		newLevel := alpha*series[t] + (1-alpha)*(level+trend)
		trend = beta*(newLevel-level) + (1-beta)*trend
		level = newLevel
	}
	return sse, level, trend
}

// fitHolt fits the smoothing parameters by minimizing the in-sample SSE.
// Nelder-Mead first, BFGS as a retry, mirroring the usual two-method
// sequence; any failure or non-finite result reports an error so the caller
// can fall back to the deterministic estimator.
func fitHolt(series []float64) (*holtFit, error) {
	if len(series) < 2 {
		return nil, fmt.Errorf("series too short to fit: %d points", len(series))
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			sse, _, _ := holtSSE(series, sigmoid(x[0]), sigmoid(x[1]))
			return sse
		},
	}

	// Start near alpha=0.5, beta=0.5
	initial := []float64{0.0, 0.0}

	successStatuses := map[optimize.Status]bool{
		optimize.Success:             true,
		optimize.GradientThreshold:   true,
		optimize.FunctionConvergence: true,
	}

	result, err := optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.NelderMead{})
	if err != nil || !successStatuses[result.Status] {
		result, err = optimize.Minimize(problem, initial, &optimize.Settings{}, &optimize.BFGS{})
		if err != nil {
			return nil, fmt.Errorf("smoothing fit failed: %w", err)
		}
		if !successStatuses[result.Status] {
			return nil, fmt.Errorf("smoothing fit did not converge: status=%v", result.Status)
		}
	}

	alpha := sigmoid(result.X[0])
	beta := sigmoid(result.X[1])
	sse, level, trend := holtSSE(series, alpha, beta)

	if math.IsNaN(sse) || math.IsInf(sse, 0) || math.IsNaN(level) || math.IsNaN(trend) {
		return nil, fmt.Errorf("smoothing fit produced non-finite state")
	}

	return &holtFit{alpha: alpha, beta: beta, level: level, trend: trend, sse: sse}, nil
}

// forecast extrapolates h future points from the fitted end state.
func (f *holtFit) forecast(h int) []float64 {
	out := make([]float64, h)
	for i := 0; i < h; i++ {
		v := f.level + float64(i+1)*f.trend
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		out[i] = v
	}
	return out
}
