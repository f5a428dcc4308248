package core

import (
	"errors"
	"testing"
)

func TestDependencyGate_EmptyDepsAlwaysReady(t *testing.T) {
	oracle := &fixedOracle{ready: false}
	gate := NewDependencyGate(oracle)

	for _, deps := range [][]string{nil, {}} {
		ready, err := gate.Ready(deps)
		if err != nil || !ready {
			t.Fatalf("Ready(%v) = %v, %v; want true, nil", deps, ready, err)
		}
	}
	if oracle.calls != 0 {
		t.Errorf("oracle consulted %d times for empty dependency sets", oracle.calls)
	}
}

func TestDependencyGate_ConsultsOracle(t *testing.T) {
	oracle := &fixedOracle{ready: false}
	gate := NewDependencyGate(oracle)

	ready, err := gate.Ready([]string{"1.1"})
	if err != nil || ready {
		t.Fatalf("Ready = %v, %v; want false, nil", ready, err)
	}
	if oracle.calls != 1 {
		t.Errorf("oracle calls = %d, want 1", oracle.calls)
	}
}

func TestDependencyGate_OracleError(t *testing.T) {
	gate := NewDependencyGate(&fixedOracle{ready: true, err: errors.New("ledger unavailable")})

	if _, err := gate.Ready([]string{"1.1"}); err == nil {
		t.Fatal("expected oracle error to propagate")
	}
}

func TestDependencyGate_OraclePanicBecomesError(t *testing.T) {
	gate := NewDependencyGate(panicOracle{})

	ready, err := gate.Ready([]string{"1.1"})
	if err == nil || ready {
		t.Fatalf("Ready = %v, %v; want false and an error", ready, err)
	}
}

func TestDependencyGate_NilOracle(t *testing.T) {
	gate := NewDependencyGate(nil)

	if ready, _ := gate.Ready(nil); !ready {
		t.Error("empty dependencies must be ready without an oracle")
	}
	if _, err := gate.Ready([]string{"x"}); err == nil {
		t.Error("expected error without an oracle")
	}
}

func TestLedgerOracle(t *testing.T) {
	ledger := newMemLedger("1.1", "1.2")
	oracle := NewLedgerOracle(ledger)

	if ok, _ := oracle.Satisfied([]string{"1.1", "1.2"}); !ok {
		t.Error("expected satisfied when all dependencies are completed")
	}
	if ok, _ := oracle.Satisfied([]string{"1.1", "1.3"}); ok {
		t.Error("expected unsatisfied when a dependency is missing")
	}
}

func TestSimulatedOracle(t *testing.T) {
	oracle := NewSimulatedOracle(NewSequenceSource(0.1, 0.79, 0.8, 0.95), 0.8)

	want := []bool{true, true, false, false}
	for i, w := range want {
		got, err := oracle.Satisfied([]string{"x"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != w {
			t.Errorf("draw %d: Satisfied = %v, want %v", i, got, w)
		}
	}
}
