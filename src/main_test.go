package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bandlife/src/cluster"
	"bandlife/src/universe"
)

func TestInitOptions(t *testing.T) {
	eo, uo, err := initOptions([]string{"-x", "40", "-y", "30", "-s", "25", "-p", "3", "-w", "2", "-i", "10ms", "-e", "reference", "-t", "glider"})
	if err != nil {
		t.Fatal(err)
	}
	if uo.Width != 40 || uo.Height != 30 || uo.MaxSteps != 25 || uo.Processes != 3 || uo.Workers != 2 || uo.Interval != 10*time.Millisecond {
		t.Fatalf("unexpected options %+v", uo)
	}
	if eo.engine != "reference" || eo.template != "glider" || eo.interactive || eo.randomData {
		t.Fatalf("unexpected env options %+v", eo)
	}
}

func TestConfigFileOverridesFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte("width: 64\nengine: reference\ntemplate: beehive\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	eo, uo, err := initOptions([]string{"-x", "40", "-y", "30", "-e", "bands", "-c", path})
	if err != nil {
		t.Fatal(err)
	}
	if uo.Width != 64 || uo.Height != 30 {
		t.Fatalf("unexpected dimension %vx%v", uo.Width, uo.Height)
	}
	if eo.engine != "reference" || eo.template != "beehive" {
		t.Fatalf("unexpected env options %+v", eo)
	}
}

func TestUnknownEngine(t *testing.T) {
	if _, _, err := initOptions([]string{"-e", "mpi"}); !errors.Is(err, errUnknownEngine) {
		t.Fatalf("expected errUnknownEngine, got %v", err)
	}
}

func TestEnginesAgree(t *testing.T) {
	o := universe.DefaultUniverseOptions
	o.Width, o.Height, o.MaxSteps, o.Processes, o.Workers, o.ReportEvery = 32, 32, 30, 5, 2, 0

	var areas []universe.Area
	for _, name := range engineNames() {
		stateCh := make(chan universe.Status, 10)
		u, err := engines[name](&o, stateCh)
		if err != nil {
			t.Fatal(err)
		}
		if err := u.SettleTemplate("grower"); err != nil {
			t.Fatal(err)
		}
		u.Run()
		if st := waitForEnd(stateCh); st.RunningMode != universe.RunningStateFinished || st.IterationNum != o.MaxSteps {
			t.Fatalf("%s: unexpected final status %+v", name, st)
		}
		areas = append(areas, u.Area())
		u.Close()
	}
	for y := range areas[0].Entities {
		for x := range areas[0].Entities[y] {
			if areas[0].Entities[y][x] != areas[1].Entities[y][x] {
				t.Fatalf("engines differ at %d,%d", x, y)
			}
		}
	}
}

func TestDiagnostic(t *testing.T) {
	_, err := cluster.New(cluster.Config{Rows: 2, Cols: 2, Processes: 3, Workers: 1})
	if d := diagnostic(err); !strings.Contains(d, "partitioning stage") {
		t.Fatalf("stage is not named: %q", d)
	}
	o := universe.DefaultUniverseOptions
	o.Workers = 0
	_, err = engines["bands"](&o, nil)
	if d := diagnostic(err); !strings.Contains(d, "configuration stage") {
		t.Fatalf("stage is not named: %q", d)
	}
}
