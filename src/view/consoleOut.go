package view

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/logrusorgru/aurora"

	"bandlife/src/universe"
)

//ConsoleOut prints the progress of a batch run
type ConsoleOut struct {
	u         universe.Universe
	out       io.Writer
	errOut    io.Writer
	au        aurora.Aurora
	startTime time.Time
	mu        sync.Mutex
	reported  int
}

func NewConsoleOut() *ConsoleOut {
	return NewConsoleOutTo(os.Stdout, os.Stderr, true)
}

//NewConsoleOutTo creates the printer writing progress to out and diagnostics to errOut
func NewConsoleOutTo(out io.Writer, errOut io.Writer, colors bool) *ConsoleOut {
	return &ConsoleOut{out: out, errOut: errOut, au: aurora.NewAurora(colors), reported: -1}
}

func (c *ConsoleOut) Refresh() {
	st := c.u.Status()
	c.mu.Lock()
	defer c.mu.Unlock()
	switch st.RunningMode {
	case universe.RunningStateFinished:
		totalTime := time.Since(c.startTime).Round(time.Millisecond)
		resultData := map[string]interface{}{
			"Last generation": st.IterationNum,
			"Total time":      totalTime,
			"Live cells":      st.LiveCells,
		}
		_, _ = fmt.Fprintln(c.out, c.au.Green("\nFinished:"))
		c.printHashData(resultData)
	case universe.RunningStateFailed:
		_, _ = fmt.Fprintf(c.errOut, "%s %v\n", c.au.Red("Failed:"), st.Err)
	case universe.RunningStateRun, universe.RunningStateStep:
		if st.IterationNum != c.reported && st.IterationNum > 0 {
			c.reported = st.IterationNum
			_, _ = fmt.Fprintf(c.out, "  Generation %v: %v live cells, %v per generation\n",
				c.au.Cyan(st.IterationNum), st.LiveCells, st.IterationTime.Round(time.Microsecond))
		}
	}
}

func (c *ConsoleOut) Register(u universe.Universe) {
	c.u = u
	o := c.u.Options()
	_, _ = fmt.Fprintln(c.out, c.au.Bold("Running configuration:"))
	_, _ = fmt.Fprintf(c.out, "  Dimension: %v x %v\n", o.Width, o.Height)
	_, _ = fmt.Fprintf(c.out, "  Generations: %v\n", o.MaxSteps)
	_, _ = fmt.Fprintf(c.out, "  Report every: %v generations\n", o.ReportEvery)
	c.printHashData(o.Advanced)
}

func (c *ConsoleOut) Start() {
	c.startTime = time.Now()
	_, _ = fmt.Fprintln(c.out, "\nSimulation started...")
}

func (c *ConsoleOut) printHashData(d map[string]interface{}) {
	propNames := make([]string, 0, len(d))
	for k := range d {
		propNames = append(propNames, k)
	}
	sort.Strings(propNames)
	for _, propName := range propNames {
		_, _ = fmt.Fprintf(c.out, "  %s: %v\n", propName, d[propName])
	}
}
