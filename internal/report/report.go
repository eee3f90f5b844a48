// Package report renders a fitted model into human-readable diagnostics: a
// symbolic difference equation and a parameter table. It never affects
// control flow; everything here exists for the console trace of a run.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/majito0703/measure-data-logger/internal/logger"
	"github.com/majito0703/measure-data-logger/internal/sarima"
)

// ParameterRow is one line of the parameter table. StdErr is the rendered
// string, "N/A" when the model could not compute one.
type ParameterRow struct {
	Name   string
	Value  float64
	StdErr string
}

// Equation assembles the fitted model's symbolic difference equation from the
// coefficients that are present. A model with differencing is written against
// the differenced series; a model with no terms at all collapses to white
// noise.
func Equation(m *sarima.Model) string {
	var terms []string
	var intercept string

	for _, c := range m.Coefficients() {
		switch c.Kind {
		case sarima.CoeffIntercept:
			intercept = fmt.Sprintf("%.4f", c.Value)
		case sarima.CoeffAR, sarima.CoeffSAR:
			terms = append(terms, fmt.Sprintf("%.4f·y_t-%d", c.Value, c.Lag))
		case sarima.CoeffMA, sarima.CoeffSMA:
			terms = append(terms, fmt.Sprintf("%.4f·ε_t-%d", c.Value, c.Lag))
		}
	}

	lhs := "y_t"
	if m.Order.D > 0 || m.Order.SD > 0 {
		lhs = "Δ^d Δ_s^D y_t"
	}

	rhs := []string{}
	if intercept != "" {
		rhs = append(rhs, intercept)
	}
	rhs = append(rhs, terms...)
	rhs = append(rhs, "ε_t")

	return lhs + " = " + strings.Join(rhs, " + ")
}

// ParameterTable returns one row per fitted coefficient, in model order:
// φ for AR terms, θ for MA, Φ/Θ for their seasonal counterparts, then the
// intercept.
func ParameterTable(m *sarima.Model) []ParameterRow {
	arN, maN, sarN, smaN := 0, 0, 0, 0
	var rows []ParameterRow
	for _, c := range m.Coefficients() {
		var name string
		switch c.Kind {
		case sarima.CoeffAR:
			arN++
			name = fmt.Sprintf("φ_%d", arN)
		case sarima.CoeffMA:
			maN++
			name = fmt.Sprintf("θ_%d", maN)
		case sarima.CoeffSAR:
			sarN++
			name = fmt.Sprintf("Φ_%d", sarN)
		case sarima.CoeffSMA:
			smaN++
			name = fmt.Sprintf("Θ_%d", smaN)
		case sarima.CoeffIntercept:
			name = "intercept"
		}
		rows = append(rows, ParameterRow{Name: name, Value: c.Value, StdErr: renderStdErr(c.StdErr)})
	}
	return rows
}

// Print writes the equation and parameter table to the log.
func Print(variable string, m *sarima.Model) {
	logger.Info("Model for %s: %s (AIC %.2f)", variable, m.Order, m.AIC)
	logger.Info("Equation: %s", Equation(m))
	logger.Info("%-12s %-14s %s", "Parameter", "Value", "Std. error")
	for _, row := range ParameterTable(m) {
		logger.Info("%-12s %-14.4f %s", row.Name, row.Value, row.StdErr)
	}
}

func renderStdErr(se float64) string {
	if math.IsNaN(se) || math.IsInf(se, 0) {
		return "N/A"
	}
	return fmt.Sprintf("%.4f", se)
}
