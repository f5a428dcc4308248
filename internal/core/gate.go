package core

import (
	"fmt"
	"time"
)

// DependencyOracle answers whether a non-empty set of prerequisites is
// satisfied.
type DependencyOracle interface {
	Satisfied(deps []string) (bool, error)
}

// CompletionLedger records which tasks have completed, across runs.
type CompletionLedger interface {
	IsCompleted(taskID string) bool
	MarkCompleted(taskID string, at time.Time) error
}

// DependencyGate decides per task whether its prerequisites are satisfied.
type DependencyGate struct {
	oracle DependencyOracle
}

// NewDependencyGate creates a gate backed by oracle.
func NewDependencyGate(oracle DependencyOracle) *DependencyGate {
	return &DependencyGate{oracle: oracle}
}

// Ready reports whether a task with the given dependencies may run. An empty
// dependency set is always ready and never consults the oracle.
func (g *DependencyGate) Ready(deps []string) (ready bool, err error) {
	if len(deps) == 0 {
		return true, nil
	}
	if g.oracle == nil {
		return false, fmt.Errorf("no dependency oracle configured")
	}
	defer func() {
		if r := recover(); r != nil {
			ready, err = false, fmt.Errorf("dependency oracle panicked: %v", r)
		}
	}()
	return g.oracle.Satisfied(deps)
}

// ledgerOracle answers from the persisted completion ledger.
type ledgerOracle struct {
	ledger CompletionLedger
}

// NewLedgerOracle returns an oracle that is satisfied when every dependency
// has been recorded as completed, in an earlier run or earlier in the current
// cycle.
func NewLedgerOracle(ledger CompletionLedger) DependencyOracle {
	return &ledgerOracle{ledger: ledger}
}

func (o *ledgerOracle) Satisfied(deps []string) (bool, error) {
	for _, d := range deps {
		if !o.ledger.IsCompleted(d) {
			return false, nil
		}
	}
	return true, nil
}

// simulatedOracle passes a fixed share of checks at random. It ignores real
// completion state and exists for demos only.
type simulatedOracle struct {
	src      OutcomeSource
	passRate float64
}

// NewSimulatedOracle returns an oracle that is satisfied with probability
// passRate.
func NewSimulatedOracle(src OutcomeSource, passRate float64) DependencyOracle {
	return &simulatedOracle{src: src, passRate: passRate}
}

func (o *simulatedOracle) Satisfied(_ []string) (bool, error) {
	return o.src.Float64() < o.passRate, nil
}
