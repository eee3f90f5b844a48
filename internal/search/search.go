// Package search implements the exhaustive SARIMA order search that selects
// the best-fit model for one variable by information criterion.
//
// The grid is evaluated in a fixed nested order (p outermost, then d, q, P, D,
// Q innermost) and a candidate only replaces the incumbent on a strictly lower
// AIC. Near-tied configurations therefore resolve by iteration order; that
// tie-break is part of the contract and keeps repeated runs reproducible on
// identical data.
package search

import (
	"errors"
	"fmt"

	"github.com/majito0703/measure-data-logger/internal/config"
	"github.com/majito0703/measure-data-logger/internal/logger"
	"github.com/majito0703/measure-data-logger/internal/sarima"
	"github.com/majito0703/measure-data-logger/internal/timeseries"
)

// ErrNoModel is returned when every candidate configuration failed to fit.
// The caller treats this as a variable-level failure: the variable is skipped
// for the run, other variables proceed.
var ErrNoModel = errors.New("no candidate configuration converged")

// CandidateResult is the typed outcome of one candidate fit: either a fitted
// model or the failure that disqualified it.
type CandidateResult struct {
	Order sarima.Order
	Model *sarima.Model
	Err   error
}

// Failed reports whether the candidate was disqualified.
func (r CandidateResult) Failed() bool {
	return r.Err != nil
}

// Result holds the winning model of a search together with search statistics.
type Result struct {
	Model     *sarima.Model
	Order     sarima.Order
	AIC       float64
	Evaluated int // Total candidates tried
	Failed    int // Candidates that failed to fit
}

// Run searches the order grid for the configuration minimizing AIC on the
// given series. Per-candidate fit failures are recorded and skipped; only a
// fully failed grid is an error.
func Run(series *timeseries.Series, cfg config.SearchConfig) (*Result, error) {
	best := &Result{}
	var bestResult CandidateResult
	found := false

	for _, cand := range Grid(cfg) {
		res := fitCandidate(series, cand, cfg.MaxIterations)
		best.Evaluated++

		if res.Failed() {
			best.Failed++
			logger.Debug("Candidate %s rejected: %v", res.Order, res.Err)
			continue
		}

		if !found || res.Model.AIC < bestResult.Model.AIC {
			bestResult = res
			found = true
		}
	}

	if !found {
		return nil, fmt.Errorf("%w after %d candidates", ErrNoModel, best.Evaluated)
	}

	best.Model = bestResult.Model
	best.Order = bestResult.Order
	best.AIC = bestResult.Model.AIC
	return best, nil
}

// Grid enumerates every candidate order in the fixed search order. Each of
// p, d, q, P, D, Q ranges over 0..MaxOrder independently; the seasonal period
// is fixed by configuration.
func Grid(cfg config.SearchConfig) []sarima.Order {
	grid := make([]sarima.Order, 0, pow(cfg.MaxOrder+1, 6))
	for p := 0; p <= cfg.MaxOrder; p++ {
		for d := 0; d <= cfg.MaxOrder; d++ {
			for q := 0; q <= cfg.MaxOrder; q++ {
				for sp := 0; sp <= cfg.MaxOrder; sp++ {
					for sd := 0; sd <= cfg.MaxOrder; sd++ {
						for sq := 0; sq <= cfg.MaxOrder; sq++ {
							grid = append(grid, sarima.Order{
								P: p, D: d, Q: q,
								SP: sp, SD: sd, SQ: sq,
								M: cfg.SeasonalPeriod,
							})
						}
					}
				}
			}
		}
	}
	return grid
}

func fitCandidate(series *timeseries.Series, order sarima.Order, maxIter int) CandidateResult {
	model := sarima.New(order)
	if err := model.Fit(series, maxIter); err != nil {
		return CandidateResult{Order: order, Err: err}
	}
	return CandidateResult{Order: order, Model: model}
}

func pow(base, exp int) int {
	out := 1
	for i := 0; i < exp; i++ {
		out *= base
	}
	return out
}
