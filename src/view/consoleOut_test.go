package view

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"bandlife/src/cluster"
	"bandlife/src/universe"
)

//fixedUniverse reports a given status, the rest of the interface is not used by ConsoleOut
type fixedUniverse struct {
	universe.Universe
	st universe.Status
	o  universe.Options
}

func (f *fixedUniverse) Status() universe.Status   { return f.st }
func (f *fixedUniverse) Options() universe.Options { return f.o }

func newFixed() *fixedUniverse {
	o := universe.DefaultUniverseOptions
	o.Advanced = map[string]interface{}{"engine": "bands", "Processes": 4}
	return &fixedUniverse{o: o}
}

func TestConsoleOutRegister(t *testing.T) {
	var out, errOut bytes.Buffer
	c := NewConsoleOutTo(&out, &errOut, false)
	c.Register(newFixed())
	for _, s := range []string{"Dimension: 3000 x 3000", "Generations: 1000", "Processes: 4", "engine: bands"} {
		if !strings.Contains(out.String(), s) {
			t.Fatalf("%q is missing in %q", s, out.String())
		}
	}
}

func TestConsoleOutProgress(t *testing.T) {
	var out, errOut bytes.Buffer
	u := newFixed()
	c := NewConsoleOutTo(&out, &errOut, false)
	c.Register(u)
	c.Start()
	out.Reset()

	u.st = universe.Status{RunningMode: universe.RunningStateManual, LiveCells: 11}
	c.Refresh()
	if out.Len() != 0 {
		t.Fatalf("manual mode must print nothing, got %q", out.String())
	}

	u.st = universe.Status{RunningMode: universe.RunningStateRun, IterationNum: 100, LiveCells: 42}
	c.Refresh()
	c.Refresh()
	if n := strings.Count(out.String(), "Generation 100: 42 live cells"); n != 1 {
		t.Fatalf("generation reported %d times: %q", n, out.String())
	}

	u.st = universe.Status{RunningMode: universe.RunningStateFinished, IterationNum: 1000, LiveCells: 7}
	c.Refresh()
	for _, s := range []string{"Finished:", "Last generation: 1000", "Live cells: 7"} {
		if !strings.Contains(out.String(), s) {
			t.Fatalf("%q is missing in %q", s, out.String())
		}
	}
	if errOut.Len() != 0 {
		t.Fatalf("unexpected diagnostics %q", errOut.String())
	}
}

func TestConsoleOutFailure(t *testing.T) {
	var out, errOut bytes.Buffer
	u := newFixed()
	c := NewConsoleOutTo(&out, &errOut, false)
	c.Register(u)
	u.st = universe.Status{
		RunningMode: universe.RunningStateFailed,
		Err:         &cluster.StageError{Stage: cluster.StageExchange, Rank: 2, Generation: 5, Err: errors.New("link closed")},
	}
	c.Refresh()
	if !strings.Contains(errOut.String(), "Failed: exchange failed on rank 2 at generation 5: link closed") {
		t.Fatalf("unexpected diagnostics %q", errOut.String())
	}
}
