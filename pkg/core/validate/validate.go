// Package validate runs arithmetic consistency checks over a resolved
// record. Checks annotate the run, they never block it: a failed
// identity usually means one operand came from a misread column and
// the output needs human review, not suppression.
package validate

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"ap2_extraction/pkg/core/reconcile"
)

// Tolerance is the absolute allowance, in SEK million, for rounding
// between published totals and their components.
const Tolerance = 100

// Status is the outcome of one check.
type Status string

const (
	StatusPass          Status = "PASS"
	StatusFail          Status = "FAIL"
	StatusNotApplicable Status = "NOT_APPLICABLE"
)

// CheckResult is one named identity with its outcome. Delta is the
// absolute difference for applicable checks.
type CheckResult struct {
	Name   string  `json:"name"`
	Status Status  `json:"status"`
	Delta  float64 `json:"delta,omitempty"`
	Detail string  `json:"detail,omitempty"`
}

// Outcome is the full validation annotation for one record.
type Outcome struct {
	Checks []CheckResult `json:"checks"`
}

// Failed counts failing checks.
func (o *Outcome) Failed() int { return o.count(StatusFail) }

// Passed counts passing checks.
func (o *Outcome) Passed() int { return o.count(StatusPass) }

func (o *Outcome) count(s Status) int {
	n := 0
	for _, c := range o.Checks {
		if c.Status == s {
			n++
		}
	}
	return n
}

type identity struct {
	name     string
	operands []string // summed
	total    string
}

// The balance-sheet identities the reports themselves assert.
var identities = []identity{
	{
		name:     "assets_equal_fund_capital_plus_liabilities",
		operands: []string{"TOTALFUNDCAPITAL", "TOTALLIABILITIES"},
		total:    "TOTALASSETS",
	},
	{
		name:     "fund_capital_components_sum",
		operands: []string{"FUNDCAPITALCARRIEDFORWARD", "NETPAYMENTSTOTHENATIONALPENSIONSYSTEM", "NETRESULTFORTHEPERIOD"},
		total:    "TOTALFUNDCAPITAL",
	},
	{
		name:     "fund_capital_plus_liabilities_equal_combined_total",
		operands: []string{"TOTALFUNDCAPITAL", "TOTALLIABILITIES"},
		total:    "TOTALFUNDCAPITALANDLIABILITIES",
	},
	{
		name:     "assets_equal_combined_total",
		operands: []string{"TOTALASSETS"},
		total:    "TOTALFUNDCAPITALANDLIABILITIES",
	},
}

// Run evaluates every identity against the record. A check with any
// missing operand is NotApplicable; one outside tolerance fails.
func Run(rec *reconcile.Record, log *zap.Logger) *Outcome {
	out := &Outcome{}
	for _, id := range identities {
		out.Checks = append(out.Checks, evaluate(rec, id))
	}

	for _, c := range out.Checks {
		switch c.Status {
		case StatusFail:
			log.Warn("validation check failed",
				zap.String("document", rec.Document),
				zap.String("check", c.Name),
				zap.Float64("delta", c.Delta))
		case StatusNotApplicable:
			log.Debug("validation check not applicable",
				zap.String("document", rec.Document),
				zap.String("check", c.Name))
		}
	}
	return out
}

func evaluate(rec *reconcile.Record, id identity) CheckResult {
	sum := 0.0
	for _, op := range id.operands {
		v, ok := rec.Value(op)
		if !ok {
			return CheckResult{Name: id.name, Status: StatusNotApplicable, Detail: op + " unresolved"}
		}
		sum += v
	}
	total, ok := rec.Value(id.total)
	if !ok {
		return CheckResult{Name: id.name, Status: StatusNotApplicable, Detail: id.total + " unresolved"}
	}

	delta := math.Abs(sum - total)
	res := CheckResult{Name: id.name, Delta: delta}
	if delta <= Tolerance {
		res.Status = StatusPass
	} else {
		res.Status = StatusFail
		res.Detail = fmt.Sprintf("sum %.1f vs %s %.1f", sum, id.total, total)
	}
	return res
}
