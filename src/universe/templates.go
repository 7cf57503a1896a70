package universe

//Templates are the built-in seed patterns
var Templates = []Template{
	{
		Name:  "beehive",
		Descr: "still life of six cells",
		Pattern: [][]Cell{
			{0, 1, 1, 0},
			{1, 0, 0, 1},
			{0, 1, 1, 0},
		},
	},
	{
		Name:  "glider",
		Descr: "spaceship moving one cell diagonally every four generations",
		Pattern: [][]Cell{
			{0, 1, 0},
			{0, 0, 1},
			{1, 1, 1},
		},
	},
	{
		Name:  "grower",
		Descr: "5x5 pattern with unbounded growth",
		Pattern: [][]Cell{
			{1, 1, 1, 0, 1},
			{1, 0, 0, 0, 0},
			{0, 0, 0, 1, 1},
			{0, 1, 1, 0, 1},
			{1, 0, 1, 0, 1},
		},
	},
	{
		Name:    "blinker",
		Descr:   "period 2 oscillator",
		Pattern: [][]Cell{{1, 1, 1}},
	},
}

//TemplateNames returns the names of the built-in templates
func TemplateNames() []string {
	names := make([]string, 0, len(Templates))
	for _, t := range Templates {
		names = append(names, t.Name)
	}
	return names
}
