package universe

type Universe interface {
	Status() Status
	Options() Options
	Area() Area
	Window(x int, y int, w int, h int) Area
	StateCh() chan Status
	AddTemplate(tmpl Template)
	SettleTemplate(name string) error
	SettleWithRandomData()
	Settle(tmpl Template) error
	InverseCell(x int, y int)
	RegisterViewer(v Viewer)
	Run()
	Stop()
	Step()
	Clear()
	Close()
}

//Factory creates the universe of one engine
type Factory func(o *Options, stateCh chan Status) (Universe, error)
