package judger

// State is the state of a judge pipeline
type State int

// Pipeline states
const (
	StateInit State = iota
	StateCompiling
	StateCompileFailed
	StateRunning
	StateFinalizing
	StateDone
)

var stateToString = []string{
	"Init",
	"Compiling",
	"CompileFailed",
	"Running",
	"Finalizing",
	"Done",
}

func (s State) String() string {
	si := int(s)
	if si < 0 || si >= len(stateToString) {
		return "Invalid"
	}
	return stateToString[si]
}

var transitions = map[State][]State{
	StateInit:          {StateCompiling, StateRunning},
	StateCompiling:     {StateCompileFailed, StateRunning},
	StateCompileFailed: {StateDone},
	StateRunning:       {StateFinalizing},
	StateFinalizing:    {StateDone},
}

// canTransit reports whether the pipeline may move from s to to
func (s State) canTransit(to State) bool {
	for _, t := range transitions[s] {
		if t == to {
			return true
		}
	}
	return false
}
