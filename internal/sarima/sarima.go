// Package sarima implements seasonal ARIMA models fitted by conditional sum
// of squares. It is the numerical core of the pipeline: the order search fits
// one Model per candidate configuration and the exporter forecasts from the
// winner.
//
// Fitting deliberately does not reject parameters near the stability
// boundary: short environmental series are often borderline, so coefficients
// are clamped into (-0.99, 0.99) instead of failing the candidate.
package sarima

import (
	"errors"
	"fmt"
	"math"

	"github.com/majito0703/measure-data-logger/internal/timeseries"
)

// Order represents a SARIMA model order (p, d, q) x (P, D, Q, m).
type Order struct {
	P int // Non-seasonal AR order
	D int // Non-seasonal differencing order
	Q int // Non-seasonal MA order
	// Seasonal components
	SP int // Seasonal AR order
	SD int // Seasonal differencing order
	SQ int // Seasonal MA order
	M  int // Seasonal period in hours
}

// String renders the order the way the dashboard expects it in the model
// descriptor, e.g. "SARIMA(0, 1, 1)(0, 1, 1, 12)".
func (o Order) String() string {
	return fmt.Sprintf("SARIMA(%d, %d, %d)(%d, %d, %d, %d)", o.P, o.D, o.Q, o.SP, o.SD, o.SQ, o.M)
}

// NumParams returns the number of estimated parameters including the intercept.
func (o Order) NumParams() int {
	return o.P + o.Q + o.SP + o.SQ + 1
}

// CoeffKind identifies which term of the difference equation a coefficient
// belongs to.
type CoeffKind int

const (
	CoeffIntercept CoeffKind = iota
	CoeffAR
	CoeffMA
	CoeffSAR
	CoeffSMA
)

// Coefficient is one fitted parameter with its lag (in observations) and
// standard error. StdErr is NaN when it could not be computed.
type Coefficient struct {
	Kind   CoeffKind
	Lag    int
	Value  float64
	StdErr float64
}

// Model represents a SARIMA model.
type Model struct {
	Order     Order
	ARCoeffs  []float64
	MACoeffs  []float64
	SARCoeffs []float64
	SMACoeffs []float64
	Intercept float64
	Variance  float64
	LogLik    float64
	AIC       float64

	ARStdErrs  []float64
	MAStdErrs  []float64
	SARStdErrs []float64
	SMAStdErrs []float64
	InterceptStdErr float64

	fitted    bool
	data      *timeseries.Series
	diffData  *timeseries.Series
	residuals []float64
}

// New creates an unfitted SARIMA model with the specified order.
func New(order Order) *Model {
	return &Model{
		Order:     order,
		ARCoeffs:  make([]float64, order.P),
		MACoeffs:  make([]float64, order.Q),
		SARCoeffs: make([]float64, order.SP),
		SMACoeffs: make([]float64, order.SQ),
	}
}

// Fit fits the model to the series using conditional sum of squares with at
// most maxIter optimizer iterations.
func (m *Model) Fit(series *timeseries.Series, maxIter int) error {
	o := m.Order
	minLen := o.P + o.Q + o.D + (o.SP+o.SD+o.SQ)*o.M + 20
	if series.Len() < minLen {
		return fmt.Errorf("need at least %d observations for %s, have %d", minLen, o, series.Len())
	}
	if maxIter < 1 {
		return errors.New("maxIter must be at least 1")
	}

	m.data = series

	diff := series
	for i := 0; i < o.D; i++ {
		diff = diff.Diff()
		if diff.Len() == 0 {
			return errors.New("differencing left an empty series")
		}
	}
	for i := 0; i < o.SD; i++ {
		diff = diff.SeasonalDiff(o.M)
		if diff.Len() == 0 {
			return errors.New("seasonal differencing left an empty series")
		}
	}
	m.diffData = diff

	if err := m.fitCSS(maxIter); err != nil {
		return err
	}
	m.computeStdErrs()
	m.computeLikelihood()

	if math.IsNaN(m.AIC) || math.IsInf(m.AIC, -1) {
		return errors.New("fit produced a degenerate information criterion")
	}

	m.fitted = true
	return nil
}

// Fitted reports whether Fit has completed successfully.
func (m *Model) Fitted() bool {
	return m.fitted
}

// fitCSS estimates the coefficients by momentum gradient descent on the
// conditional sum of squares of the differenced series.
func (m *Model) fitCSS(maxIter int) error {
	y := m.diffData.Values
	n := len(y)
	p, q := m.Order.P, m.Order.Q
	sp, sq := m.Order.SP, m.Order.SQ
	period := m.Order.M

	m.Intercept = m.diffData.Mean()

	// Seed AR terms from the autocorrelation at their own lag.
	if p > 0 {
		acf := sampleACF(y, p)
		for i := 0; i < p && i+1 < len(acf); i++ {
			m.ARCoeffs[i] = acf[i+1] * 0.5
		}
	}
	if sp > 0 {
		acf := sampleACF(y, sp*period)
		for i := 0; i < sp; i++ {
			if idx := (i + 1) * period; idx < len(acf) {
				m.SARCoeffs[i] = acf[idx] * 0.5
			}
		}
	}
	for i := range m.MACoeffs {
		m.MACoeffs[i] = 0.1
	}
	for i := range m.SMACoeffs {
		m.SMACoeffs[i] = 0.1
	}

	tolerance := 1e-8
	learningRate := 0.005
	momentum := 0.9
	decay := 0.99

	arMom := make([]float64, p)
	maMom := make([]float64, q)
	sarMom := make([]float64, sp)
	smaMom := make([]float64, sq)

	startIdx := maxInt(maxInt(p, q), maxInt(sp*period, sq*period))
	if startIdx >= n-10 {
		startIdx = 0
	}

	bestSSE := math.Inf(1)
	bestAR := make([]float64, p)
	bestMA := make([]float64, q)
	bestSAR := make([]float64, sp)
	bestSMA := make([]float64, sq)
	noImprove := 0

	for iter := 0; iter < maxIter; iter++ {
		residuals := make([]float64, n)
		sse := 0.0
		for t := startIdx; t < n; t++ {
			residuals[t] = y[t] - m.predictOne(y, residuals, t)
			sse += residuals[t] * residuals[t]
		}

		if sse < bestSSE {
			bestSSE = sse
			copy(bestAR, m.ARCoeffs)
			copy(bestMA, m.MACoeffs)
			copy(bestSAR, m.SARCoeffs)
			copy(bestSMA, m.SMACoeffs)
			noImprove = 0
		} else {
			noImprove++
		}
		if noImprove > 20 {
			break
		}

		arGrad := make([]float64, p)
		maGrad := make([]float64, q)
		sarGrad := make([]float64, sp)
		smaGrad := make([]float64, sq)
		for t := startIdx; t < n; t++ {
			for i := 0; i < p && t-i-1 >= 0; i++ {
				arGrad[i] -= 2 * residuals[t] * (y[t-i-1] - m.Intercept)
			}
			for i := 0; i < sp; i++ {
				if lag := (i + 1) * period; t-lag >= 0 {
					sarGrad[i] -= 2 * residuals[t] * (y[t-lag] - m.Intercept)
				}
			}
			for i := 0; i < q && t-i-1 >= 0; i++ {
				maGrad[i] -= 2 * residuals[t] * residuals[t-i-1]
			}
			for i := 0; i < sq; i++ {
				if lag := (i + 1) * period; t-lag >= 0 {
					smaGrad[i] -= 2 * residuals[t] * residuals[t-lag]
				}
			}
		}

		for i := 0; i < p; i++ {
			arMom[i] = momentum*arMom[i] + learningRate*arGrad[i]/float64(n)
			m.ARCoeffs[i] = clamp(m.ARCoeffs[i]-arMom[i], -0.99, 0.99)
		}
		for i := 0; i < sp; i++ {
			sarMom[i] = momentum*sarMom[i] + learningRate*sarGrad[i]/float64(n)
			m.SARCoeffs[i] = clamp(m.SARCoeffs[i]-sarMom[i], -0.99, 0.99)
		}
		for i := 0; i < q; i++ {
			maMom[i] = momentum*maMom[i] + learningRate*maGrad[i]/float64(n)
			m.MACoeffs[i] = clamp(m.MACoeffs[i]-maMom[i], -0.99, 0.99)
		}
		for i := 0; i < sq; i++ {
			smaMom[i] = momentum*smaMom[i] + learningRate*smaGrad[i]/float64(n)
			m.SMACoeffs[i] = clamp(m.SMACoeffs[i]-smaMom[i], -0.99, 0.99)
		}

		learningRate *= decay

		if iter > 0 && math.Abs(sse-bestSSE) < tolerance {
			break
		}
	}

	copy(m.ARCoeffs, bestAR)
	copy(m.MACoeffs, bestMA)
	copy(m.SARCoeffs, bestSAR)
	copy(m.SMACoeffs, bestSMA)

	// Final residual pass over the full series with the best coefficients.
	m.residuals = make([]float64, n)
	for t := 0; t < n; t++ {
		m.residuals[t] = y[t] - m.predictOne(y, m.residuals, t)
	}

	sse := 0.0
	count := 0
	for t := startIdx; t < n; t++ {
		sse += m.residuals[t] * m.residuals[t]
		count++
	}
	if sse == 0 || math.IsNaN(sse) {
		return errors.New("degenerate residuals, candidate rejected")
	}
	if k := m.Order.NumParams(); count > k {
		m.Variance = sse / float64(count-k)
	} else {
		m.Variance = sse / float64(count)
	}
	return nil
}

// predictOne evaluates the difference equation at index t given the series
// and residuals so far.
func (m *Model) predictOne(y, residuals []float64, t int) float64 {
	period := m.Order.M
	pred := m.Intercept
	for i := 0; i < m.Order.P && t-i-1 >= 0; i++ {
		pred += m.ARCoeffs[i] * (y[t-i-1] - m.Intercept)
	}
	for i := 0; i < m.Order.SP; i++ {
		if lag := (i + 1) * period; t-lag >= 0 {
			pred += m.SARCoeffs[i] * (y[t-lag] - m.Intercept)
		}
	}
	for i := 0; i < m.Order.Q && t-i-1 >= 0; i++ {
		pred += m.MACoeffs[i] * residuals[t-i-1]
	}
	for i := 0; i < m.Order.SQ; i++ {
		if lag := (i + 1) * period; t-lag >= 0 {
			pred += m.SMACoeffs[i] * residuals[t-lag]
		}
	}
	return pred
}

// computeStdErrs approximates per-coefficient standard errors from the
// residual variance and the sum of squares of each coefficient's regressor.
// Unobtainable entries stay NaN and render as "not available" in the report.
func (m *Model) computeStdErrs() {
	y := m.diffData.Values
	n := len(y)
	period := m.Order.M

	m.ARStdErrs = naNs(m.Order.P)
	m.MAStdErrs = naNs(m.Order.Q)
	m.SARStdErrs = naNs(m.Order.SP)
	m.SMAStdErrs = naNs(m.Order.SQ)
	m.InterceptStdErr = math.NaN()

	seFor := func(sumSq float64) float64 {
		if sumSq <= 0 || m.Variance <= 0 {
			return math.NaN()
		}
		return math.Sqrt(m.Variance / sumSq)
	}

	for i := 0; i < m.Order.P; i++ {
		sumSq := 0.0
		for t := i + 1; t < n; t++ {
			d := y[t-i-1] - m.Intercept
			sumSq += d * d
		}
		m.ARStdErrs[i] = seFor(sumSq)
	}
	for i := 0; i < m.Order.SP; i++ {
		lag := (i + 1) * period
		sumSq := 0.0
		for t := lag; t < n; t++ {
			d := y[t-lag] - m.Intercept
			sumSq += d * d
		}
		m.SARStdErrs[i] = seFor(sumSq)
	}
	for i := 0; i < m.Order.Q; i++ {
		sumSq := 0.0
		for t := i + 1; t < n; t++ {
			sumSq += m.residuals[t-i-1] * m.residuals[t-i-1]
		}
		m.MAStdErrs[i] = seFor(sumSq)
	}
	for i := 0; i < m.Order.SQ; i++ {
		lag := (i + 1) * period
		sumSq := 0.0
		for t := lag; t < n; t++ {
			sumSq += m.residuals[t-lag] * m.residuals[t-lag]
		}
		m.SMAStdErrs[i] = seFor(sumSq)
	}
	if n > 0 && m.Variance > 0 {
		m.InterceptStdErr = math.Sqrt(m.Variance / float64(n))
	}
}

// computeLikelihood fills LogLik and AIC from the residuals.
func (m *Model) computeLikelihood() {
	n := len(m.residuals)
	k := m.Order.NumParams()

	sse := 0.0
	for _, r := range m.residuals {
		sse += r * r
	}

	if m.Variance > 0 {
		m.LogLik = -float64(n)/2*math.Log(2*math.Pi) - float64(n)/2*math.Log(m.Variance) - sse/(2*m.Variance)
	} else {
		m.LogLik = math.Inf(-1)
	}
	m.AIC = -2*m.LogLik + 2*float64(k)
}

// Coefficients returns the fitted parameters in reporting order: AR, MA,
// seasonal AR, seasonal MA, then the intercept.
func (m *Model) Coefficients() []Coefficient {
	if !m.fitted {
		return nil
	}
	period := m.Order.M
	var out []Coefficient
	for i, v := range m.ARCoeffs {
		out = append(out, Coefficient{Kind: CoeffAR, Lag: i + 1, Value: v, StdErr: m.ARStdErrs[i]})
	}
	for i, v := range m.MACoeffs {
		out = append(out, Coefficient{Kind: CoeffMA, Lag: i + 1, Value: v, StdErr: m.MAStdErrs[i]})
	}
	for i, v := range m.SARCoeffs {
		out = append(out, Coefficient{Kind: CoeffSAR, Lag: (i + 1) * period, Value: v, StdErr: m.SARStdErrs[i]})
	}
	for i, v := range m.SMACoeffs {
		out = append(out, Coefficient{Kind: CoeffSMA, Lag: (i + 1) * period, Value: v, StdErr: m.SMAStdErrs[i]})
	}
	out = append(out, Coefficient{Kind: CoeffIntercept, Value: m.Intercept, StdErr: m.InterceptStdErr})
	return out
}

func sampleACF(y []float64, maxLag int) []float64 {
	n := len(y)
	if n == 0 || maxLag < 0 {
		return nil
	}
	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(n)

	denom := 0.0
	for _, v := range y {
		d := v - mean
		denom += d * d
	}
	if denom == 0 {
		return nil
	}

	if maxLag >= n {
		maxLag = n - 1
	}
	acf := make([]float64, maxLag+1)
	for lag := 0; lag <= maxLag; lag++ {
		num := 0.0
		for t := lag; t < n; t++ {
			num += (y[t] - mean) * (y[t-lag] - mean)
		}
		acf[lag] = num / denom
	}
	return acf
}

func naNs(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func clamp(v, lower, upper float64) float64 {
	if v < lower {
		return lower
	}
	if v > upper {
		return upper
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
