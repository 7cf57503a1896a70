package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/integrii/flaggy"

	"bandlife/src/cluster"
	"bandlife/src/config"
	"bandlife/src/universe"
	"bandlife/src/view"
)

var (
	engines = map[string]universe.Factory{
		"reference": universe.NewReferenceUniverse,
		"bands":     universe.NewBandUniverse,
	}

	errUnknownEngine = errors.New("unknown engine")
)

type EnvOptions struct {
	interactive bool
	randomData  bool
	engine      string
	template    string
	configFile  string
}

func main() {
	eo, uo, err := initOptions(os.Args[1:])
	if err != nil {
		log.Fatalln(err)
	}

	var stateCh chan universe.Status
	if !eo.interactive {
		stateCh = make(chan universe.Status, 10) //the buffered channel to getting the universe status
	}

	u, err := engines[eo.engine](uo, stateCh)
	if err != nil {
		log.Fatalln(diagnostic(err))
	}

	//viewers are registered before the seeding, the main loop reads them from now on
	var v universe.Viewer
	if eo.interactive {
		if v, err = view.NewViewTerminal(); err != nil {
			log.Fatalln(err)
		}
	} else {
		v = view.NewConsoleOut()
	}
	u.RegisterViewer(v)

	if eo.randomData {
		u.SettleWithRandomData()
	} else if err := u.SettleTemplate(eo.template); err != nil {
		log.Fatalln(diagnostic(err))
	}

	//the terminal viewer returns when the user quits
	v.Start()
	if eo.interactive {
		u.Close()
		return
	}

	u.Run()
	st := waitForEnd(stateCh)
	u.Close()
	if st.RunningMode == universe.RunningStateFailed {
		log.Fatalln(diagnostic(st.Err))
	}
}

//waitForEnd reads the status updates until the run is finished or failed
func waitForEnd(stateCh chan universe.Status) universe.Status {
	for {
		st := <-stateCh
		if st.RunningMode == universe.RunningStateFinished || st.RunningMode == universe.RunningStateFailed {
			return st
		}
	}
}

//diagnostic names the stage of the run which failed
func diagnostic(err error) string {
	if s := cluster.StageOf(err); s != "" {
		return fmt.Sprintf("aborted in the %s stage: %v", s, err)
	}
	return fmt.Sprintf("aborted in the configuration stage: %v", err)
}

func engineNames() []string {
	names := make([]string, 0, len(engines))
	for k := range engines {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

//initOptions parses the command line, the keys of the configuration file override the flags
func initOptions(args []string) (*EnvOptions, *universe.Options, error) {
	uo := universe.DefaultUniverseOptions
	eo := &EnvOptions{engine: "bands", template: "grower"}

	p := flaggy.NewParser("bandlife")
	p.Description = "Row-band \"Life\" simulation"
	p.ShowHelpOnUnexpected = true
	p.Int(&uo.Width, "x", "width", "Width of a simulation field")
	p.Int(&uo.Height, "y", "height", "Height of a simulation field, the number of rows split into bands")
	p.Int(&uo.MaxSteps, "s", "generations", "Number of generations to evolve")
	p.Int(&uo.Processes, "p", "processes", "Number of row bands evolved concurrently")
	p.Int(&uo.Workers, "w", "workers", "Number of goroutines per band")
	p.Int(&uo.ReportEvery, "", "report", "Report the live cells every N generations, 0 reports the last one only")
	p.Duration(&uo.Interval, "i", "interval", "Simulation speed (interval between the steps) in format the number with 'ms' suffix, for example 150ms, 0 evolves all generations at once")
	p.Bool(&eo.interactive, "n", "interactive", "Start interactive mode")
	p.Bool(&eo.randomData, "r", "random", "Settle with random data")
	p.String(&eo.engine, "e", "engine", "Engine to use ["+strings.Join(engineNames(), "|")+"]")
	p.String(&eo.template, "t", "template", "Seed pattern ["+strings.Join(universe.TemplateNames(), "|")+"]")
	p.String(&eo.configFile, "c", "config", "YAML file with the run parameters")

	if err := p.ParseArgs(args); err != nil {
		return nil, nil, err
	}

	if eo.configFile != "" {
		f, err := config.Load(eo.configFile)
		if err != nil {
			return nil, nil, err
		}
		if err := f.Apply(&uo); err != nil {
			return nil, nil, err
		}
		eo.engine = config.String(f.Engine, eo.engine)
		eo.template = config.String(f.Template, eo.template)
		eo.randomData = config.Bool(f.Random, eo.randomData)
	}

	if _, ok := engines[eo.engine]; !ok {
		return nil, nil, fmt.Errorf("%w %q, expected one of %v", errUnknownEngine, eo.engine, engineNames())
	}
	return eo, &uo, nil
}
