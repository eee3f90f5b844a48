package sarima

import (
	"errors"
	"math"
)

// Interval is a forecast with symmetric confidence bounds at one level.
type Interval struct {
	Point []float64
	Lower []float64
	Upper []float64
}

// Forecast generates point forecasts with a confidence interval for the given
// number of steps ahead. The interval half-width uses the normal quantile for
// the level, so a higher level always yields an interval at least as wide at
// every step.
func (m *Model) Forecast(steps int, confidence float64) (*Interval, error) {
	if !m.fitted {
		return nil, errors.New("model must be fitted before forecasting")
	}
	if steps < 1 {
		return nil, errors.New("steps must be at least 1")
	}
	if confidence <= 0 || confidence >= 1 {
		return nil, errors.New("confidence must be in (0, 1)")
	}

	o := m.Order
	y := m.diffData.Values
	n := len(y)

	extY := make([]float64, n+steps)
	copy(extY, y)
	extResiduals := make([]float64, n+steps)
	copy(extResiduals, m.residuals)

	for h := 0; h < steps; h++ {
		t := n + h
		pred := m.Intercept
		for i := 0; i < o.P && t-i-1 >= 0; i++ {
			pred += m.ARCoeffs[i] * (extY[t-i-1] - m.Intercept)
		}
		for i := 0; i < o.SP; i++ {
			if lag := (i + 1) * o.M; t-lag >= 0 {
				pred += m.SARCoeffs[i] * (extY[t-lag] - m.Intercept)
			}
		}
		// Future residuals are zero in expectation, so MA terms only reach
		// into the observed range.
		for i := 0; i < o.Q && t-i-1 >= 0 && t-i-1 < n; i++ {
			pred += m.MACoeffs[i] * extResiduals[t-i-1]
		}
		for i := 0; i < o.SQ; i++ {
			if lag := (i + 1) * o.M; t-lag >= 0 && t-lag < n {
				pred += m.SMACoeffs[i] * extResiduals[t-lag]
			}
		}
		extY[t] = pred
		extResiduals[t] = 0
	}

	point := make([]float64, steps)
	copy(point, extY[n:])
	point = m.integrate(point)

	z := normalQuantile((1 + confidence) / 2)
	lower := make([]float64, steps)
	upper := make([]float64, steps)
	for h := 0; h < steps; h++ {
		se := math.Sqrt(m.Variance)
		// Forecast variance grows with horizon once the series is integrated.
		if o.D > 0 {
			se *= math.Sqrt(float64(h + 1))
		}
		if o.SD > 0 && o.M > 0 {
			se *= math.Sqrt(float64(h/o.M + 1))
		}
		lower[h] = point[h] - z*se
		upper[h] = point[h] + z*se
	}

	return &Interval{Point: point, Lower: lower, Upper: upper}, nil
}

// integrate undoes differencing to bring forecasts back to the original
// scale. Fit differences non-seasonally first and seasonally second, so
// integration reverses that: seasonal first, then non-seasonal.
func (m *Model) integrate(forecasts []float64) []float64 {
	d, sd, period := m.Order.D, m.Order.SD, m.Order.M
	original := m.data.Values
	n := len(original)

	result := make([]float64, len(forecasts))
	copy(result, forecasts)

	nonSeasonalDiff := original
	for i := 0; i < d; i++ {
		if len(nonSeasonalDiff) <= 1 {
			break
		}
		next := make([]float64, len(nonSeasonalDiff)-1)
		for j := 1; j < len(nonSeasonalDiff); j++ {
			next[j-1] = nonSeasonalDiff[j] - nonSeasonalDiff[j-1]
		}
		nonSeasonalDiff = next
	}

	if sd > 0 && period > 0 {
		nDiff := len(nonSeasonalDiff)
		for i := 0; i < sd; i++ {
			for j := 0; j < len(result); j++ {
				if j < period {
					if idx := nDiff - period + j; idx >= 0 && idx < nDiff {
						result[j] += nonSeasonalDiff[idx]
					}
				} else {
					result[j] += result[j-period]
				}
			}
		}
	}

	for i := 0; i < d; i++ {
		lastVal := original[n-1]
		for j := 0; j < len(result); j++ {
			if j == 0 {
				result[j] += lastVal
			} else {
				result[j] += result[j-1]
			}
		}
	}

	return result
}

// normalQuantile returns the z-value for a given probability using the
// Abramowitz-Stegun rational approximation.
func normalQuantile(p float64) float64 {
	if p <= 0 || p >= 1 {
		return 0
	}
	if p < 0.5 {
		return -normalQuantile(1 - p)
	}

	t := math.Sqrt(-2 * math.Log(1-p))
	c0, c1, c2 := 2.515517, 0.802853, 0.010328
	d1, d2, d3 := 1.432788, 0.189269, 0.001308

	return t - (c0+c1*t+c2*t*t)/(1+d1*t+d2*t*t+d3*t*t*t)
}
