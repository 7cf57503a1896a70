package universe

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

type Cell uint8

const (
	Dead  Cell = 0
	Alive Cell = 1
)

//Area is the global grid as seen by the coordinator
type Area struct {
	Width    int
	Height   int
	Entities [][]Cell
}

//Options represents the Universe's configurable options
type Options struct {
	Width       int
	Height      int
	Interval    time.Duration //pause between the generations, 0 runs all generations in one batch
	MaxSteps    int           //number of generations of a run
	Processes   int           //row bands
	Workers     int           //goroutines per band
	ReportEvery int           //generations between two progress reports of a batch run, 0 reports only the end
	Advanced    map[string]interface{}
}

//Status represents the status of the Universe at concrete moment
type Status struct {
	IterationNum  int
	RunningMode   RunningState
	LiveCells     int
	IterationTime time.Duration //mean time of one generation since the previous status
	Err           error         //set in RunningStateFailed
	Details       map[string]interface{}
}

//Viewer is the interface to any Viewer - the object who can display simulation data or control the engine
type Viewer interface {
	Refresh()
	Register(u Universe)
	Start()
}

//Template is a rectangular seed pattern, its top-left corner is placed at the center of the area
type Template struct {
	Name    string
	Descr   string
	Pattern [][]Cell
}

//Height returns the number of pattern rows
func (t Template) Height() int {
	return len(t.Pattern)
}

//Width returns the number of pattern columns
func (t Template) Width() int {
	if len(t.Pattern) == 0 {
		return 0
	}
	return len(t.Pattern[0])
}

type RunningState int

const (
	DefInterval    = 0
	DefMaxSteps    = 1000
	DefWidth       = 3000
	DefHeight      = 3000
	DefProcesses   = 4
	DefWorkers     = 4
	DefReportEvery = 100
)

const (
	RunningStateManual RunningState = iota
	RunningStateStep
	RunningStateRun
	RunningStateFinished
	RunningStateFailed
)

var (
	ErrOptions     = errors.New("invalid options")
	ErrPattern     = errors.New("pattern does not fit")
	ErrUnknownTmpl = errors.New("unknown template")
)

var DefaultUniverseOptions = Options{
	Width:       DefWidth,
	Height:      DefHeight,
	Interval:    DefInterval,
	MaxSteps:    DefMaxSteps,
	Processes:   DefProcesses,
	Workers:     DefWorkers,
	ReportEvery: DefReportEvery,
}

//engine evolves the grid, grids are flat row-major slices of 0/1 values
type engine interface {
	//load replaces the engine state
	load(grid []uint32) error
	//advance evolves n generations, calls observe every `every` generations and always after the last one
	advance(n int, every int, observe func(done int, grid []uint32)) error
}

//BaseUniverse is the universe's harness: control loop, status reporting and seeding
//the generations are computed by the engine set by the successor
type BaseUniverse struct {
	options Options
	state   struct {
		Status
		sync.Mutex
	}
	area struct {
		Area
		dirty bool //area was changed after the last load
		sync.Mutex
	}
	stateCh   chan Status
	views     []Viewer
	templates map[string]Template
	controlCh chan func()
	closeCh   chan bool
	engine    engine
}

//Validate checks the options which can't be changed after the universe is created
func (o Options) Validate() error {
	switch {
	case o.Width <= 0 || o.Height <= 0:
		return fmt.Errorf("%w: dimension %vx%v", ErrOptions, o.Width, o.Height)
	case o.MaxSteps <= 0:
		return fmt.Errorf("%w: %v generations", ErrOptions, o.MaxSteps)
	case o.Processes <= 0 || o.Processes > o.Height:
		return fmt.Errorf("%w: %v processes for %v rows", ErrOptions, o.Processes, o.Height)
	case o.Workers <= 0:
		return fmt.Errorf("%w: %v workers", ErrOptions, o.Workers)
	case o.ReportEvery < 0 || o.Interval < 0:
		return fmt.Errorf("%w: negative report interval", ErrOptions)
	}
	return nil
}

//newBaseUniverse creates the harness, the successor sets the engine and calls start
func newBaseUniverse(o *Options, stateCh chan Status) (*BaseUniverse, error) {
	if o == nil {
		o = &DefaultUniverseOptions
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	u := BaseUniverse{
		options:   *o,
		controlCh: make(chan func(), 1),
		closeCh:   make(chan bool, 1),
		stateCh:   stateCh,
		templates: map[string]Template{},
	}
	u.options.Advanced = map[string]interface{}{}
	for k, v := range o.Advanced {
		u.options.Advanced[k] = v
	}
	u.state.Details = make(map[string]interface{})
	u.area.Area = createArea(o.Width, o.Height)
	u.area.dirty = true
	for _, t := range Templates {
		u.templates[t.Name] = t
	}
	return &u, nil
}

func (u *BaseUniverse) start() {
	go u.mainLoop()
}

//AddTemplate adds the seeding template to the internal storage
//the universe can be populated with this template by call SettleTemplate
func (u *BaseUniverse) AddTemplate(tmpl Template) {
	u.templates[tmpl.Name] = tmpl
}

//Settle places the pattern with its top-left corner at the center of the area
func (u *BaseUniverse) Settle(tmpl Template) error {
	u.area.Lock()
	err := u.settle(tmpl)
	live := u.area.LiveCells()
	u.area.Unlock()
	if err != nil {
		return err
	}
	u.state.Lock()
	u.state.LiveCells = live
	u.state.Unlock()
	u.refreshView()
	return nil
}

//SettleTemplate populates the universe with the seeding template
func (u *BaseUniverse) SettleTemplate(name string) error {
	tmpl, ok := u.templates[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTmpl, name)
	}
	return u.Settle(tmpl)
}

//SettleWithRandomData populates the universe with random data
func (u *BaseUniverse) SettleWithRandomData() {
	u.controlCh <- func() {
		mode := u.Status().RunningMode
		if mode == RunningStateRun || mode == RunningStateStep {
			return
		}
		u.clear()
		u.area.Lock()
		for i := 0; i < u.area.Width*u.area.Height/4; i++ {
			u.area.Entities[rand.Intn(u.area.Height)][rand.Intn(u.area.Width)] = Alive
		}
		u.area.dirty = true
		live := u.area.LiveCells()
		u.area.Unlock()
		u.state.Lock()
		u.state.LiveCells = live
		u.state.Unlock()
		u.refreshView()
	}
}

//InverseCell inverses the cell state at point x, y
func (u *BaseUniverse) InverseCell(x int, y int) {
	if x < 0 || y < 0 || x >= u.options.Width || y >= u.options.Height {
		return
	}
	u.area.Lock()
	u.area.Entities[y][x] = 1 - u.area.Entities[y][x]
	u.area.dirty = true
	u.area.Unlock()
	u.refreshView()
}

//RegisterViewer registers the viewer - the universe will call the viewer when the state is changed
func (u *BaseUniverse) RegisterViewer(v Viewer) {
	u.views = append(u.views, v)
	v.Register(u)
}

//StateCh returns the channel with the universe's status updates
func (u *BaseUniverse) StateCh() chan Status {
	return u.stateCh
}

//Status returns current universe status represented by Status struct
func (u *BaseUniverse) Status() Status {
	u.state.Lock()
	defer u.state.Unlock()
	return u.state.Status
}

//Options returns current universe configuration represented by Options struct
func (u *BaseUniverse) Options() Options {
	return u.options
}

//Area returns a copy of the current area
func (u *BaseUniverse) Area() Area {
	u.area.Lock()
	defer u.area.Unlock()
	a := createArea(u.area.Width, u.area.Height)
	for y := range a.Entities {
		copy(a.Entities[y], u.area.Entities[y])
	}
	return a
}

//Window returns a copy of the w x h part of the area with the top-left corner at x, y
//the part outside the area is dead
func (u *BaseUniverse) Window(x int, y int, w int, h int) Area {
	u.area.Lock()
	defer u.area.Unlock()
	a := createArea(w, h)
	for j := range a.Entities {
		if y+j < 0 || y+j >= u.area.Height {
			continue
		}
		src := u.area.Entities[y+j]
		for i := range a.Entities[j] {
			if x+i >= 0 && x+i < u.area.Width {
				a.Entities[j][i] = src[x+i]
			}
		}
	}
	return a
}

//Run starts the universe simulation, returns immediately
func (u *BaseUniverse) Run() {
	u.controlCh <- u.run
}

//Stop stops the universe simulation, returns immediately
//a batch run (zero Interval) can't be stopped, it always evolves all generations
func (u *BaseUniverse) Stop() {
	u.controlCh <- u.stop
}

//Step do one generation, returns immediately
//the Status struct will be written to the stateCh on start and on finish
func (u *BaseUniverse) Step() {
	u.controlCh <- u.step
}

//Clear kills all cells and resets all counters, returns immediately
//the Status struct will be written to the stateCh on finish
func (u *BaseUniverse) Clear() {
	u.controlCh <- u.clear
}

//Close stops the main loop, returns immediately
func (u *BaseUniverse) Close() {
	u.closeCh <- true
}

//mainLoop - the main cycle, should start as a goroutine
//waits for command and executes
func (u *BaseUniverse) mainLoop() {
	var c = false
	for !c {
		select {
		case cmd := <-u.controlCh:
			cmd()
		case c = <-u.closeCh:

		}
	}
}

//settle copies the pattern to the center of the area
func (u *BaseUniverse) settle(tmpl Template) error {
	h, w := tmpl.Height(), tmpl.Width()
	row, col := u.area.Height/2, u.area.Width/2
	if row+h > u.area.Height || col+w > u.area.Width {
		return fmt.Errorf("%w: %q is %vx%v, area is %vx%v", ErrPattern, tmpl.Name, w, h, u.area.Width, u.area.Height)
	}
	for _, line := range tmpl.Pattern {
		if len(line) != w {
			return fmt.Errorf("%w: %q is not rectangular", ErrPattern, tmpl.Name)
		}
		for _, e := range line {
			if e > Alive {
				return fmt.Errorf("%w: %q holds %v", ErrPattern, tmpl.Name, e)
			}
		}
	}
	for i, line := range tmpl.Pattern {
		copy(u.area.Entities[row+i][col:], line)
	}
	u.area.dirty = true
	return nil
}

//publish writes the status to the stateCh and refreshes the views
func (u *BaseUniverse) publish() {
	st := u.Status()
	if u.stateCh != nil {
		u.stateCh <- st
	}
	u.refreshView()
}

//switchRunningState switch the state of the universe to RunningState
//also writes the new state to the stateCh to signal upper control software
func (u *BaseUniverse) switchRunningState(to RunningState) {
	u.state.Lock()
	u.state.RunningMode = to
	u.state.Unlock()
	u.publish()
}

//fail stops the universe, the area keeps the last completed generation
func (u *BaseUniverse) fail(err error) {
	u.state.Lock()
	u.state.Err = err
	u.state.Unlock()
	u.switchRunningState(RunningStateFailed)
}

//remaining returns the number of generations left to the end of the run
func (u *BaseUniverse) remaining() int {
	return u.options.MaxSteps - u.Status().IterationNum
}

//run starts the universe simulation
//with zero Interval all remaining generations are evolved at once, reporting every ReportEvery generations
//otherwise the simulation does one step per Interval until Stop() or the last generation
func (u *BaseUniverse) run() {
	mode := u.Status().RunningMode
	if mode == RunningStateFinished || mode == RunningStateFailed || mode == RunningStateRun {
		return
	}
	if u.options.Interval <= 0 {
		u.switchRunningState(RunningStateRun)
		if err := u.advance(u.remaining(), u.options.ReportEvery); err != nil {
			u.fail(err)
			return
		}
		u.switchRunningState(RunningStateFinished)
		return
	}
	u.switchRunningState(RunningStateRun)
	go func() {
		done := make(chan bool)
		for {
			if u.Status().RunningMode != RunningStateRun {
				break
			}
			u.controlCh <- func() {
				u.step()
				done <- true
			}
			<-done
			time.Sleep(u.options.Interval)
		}
	}()
}

//stop stops the universe running cycle
func (u *BaseUniverse) stop() {
	if u.Status().RunningMode == RunningStateRun {
		u.switchRunningState(RunningStateManual)
	}
}

//step evolves one generation
func (u *BaseUniverse) step() {
	rm := u.Status().RunningMode
	if rm == RunningStateFinished || rm == RunningStateFailed {
		return
	}
	if u.remaining() <= 0 {
		u.switchRunningState(RunningStateFinished)
		return
	}
	u.switchRunningState(RunningStateStep)
	if err := u.advance(1, 0); err != nil {
		u.fail(err)
		return
	}
	if u.remaining() <= 0 {
		u.switchRunningState(RunningStateFinished)
		return
	}
	u.switchRunningState(rm)
}

//advance evolves n generations through the engine and publishes the reports
func (u *BaseUniverse) advance(n int, every int) error {
	u.area.Lock()
	if u.area.dirty {
		if err := u.engine.load(u.area.flatten()); err != nil {
			u.area.Unlock()
			return err
		}
		u.area.dirty = false
	}
	u.area.Unlock()

	base := u.Status().IterationNum
	last, lastDone := time.Now(), 0
	return u.engine.advance(n, every, func(done int, grid []uint32) {
		u.area.Lock()
		live := u.area.fill(grid)
		u.area.Unlock()
		now := time.Now()
		u.state.Lock()
		u.state.IterationNum = base + done
		u.state.LiveCells = live
		if done > lastDone {
			u.state.IterationTime = now.Sub(last) / time.Duration(done-lastDone)
		}
		u.state.Unlock()
		last, lastDone = now, done
		u.publish()
	})
}

//clear clears the universe data, reset all counters
func (u *BaseUniverse) clear() {
	u.area.Lock()
	for y := range u.area.Entities {
		for x := range u.area.Entities[y] {
			u.area.Entities[y][x] = Dead
		}
	}
	u.area.dirty = true
	u.area.Unlock()

	u.state.Lock()
	u.state.IterationNum = 0
	u.state.LiveCells = 0
	u.state.IterationTime = 0
	u.state.Err = nil
	u.state.Unlock()
	u.switchRunningState(RunningStateManual)
}

//refreshView calls Refresh event for all registered views
func (u *BaseUniverse) refreshView() {
	for _, v := range u.views {
		v.Refresh()
	}
}

//LiveCells returns the number of live cells
func (a Area) LiveCells() int {
	live := 0
	for _, l := range a.Entities {
		for _, e := range l {
			live += int(e)
		}
	}
	return live
}

//flatten returns the area as a row-major grid
func (a *Area) flatten() []uint32 {
	grid := make([]uint32, a.Width*a.Height)
	for y, l := range a.Entities {
		for x, e := range l {
			grid[y*a.Width+x] = uint32(e)
		}
	}
	return grid
}

//fill copies a row-major grid into the area and returns the number of live cells
func (a *Area) fill(grid []uint32) int {
	live := 0
	for y, l := range a.Entities {
		row := grid[y*a.Width : (y+1)*a.Width]
		for x, v := range row {
			l[x] = Cell(v)
			live += int(v)
		}
	}
	return live
}

//createArea allocate the new area
func createArea(width int, height int) Area {
	area := Area{Width: width, Height: height, Entities: make([][]Cell, height)}
	b := make([]Cell, width*height)
	for i := range area.Entities {
		start := width * i
		area.Entities[i] = b[start : start+width : start+width]
	}
	return area
}
