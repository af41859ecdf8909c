package core

// Input tracks live key and pointer state from the event stream. The run
// loop feeds it every event before layers see them, so polling through
// IsKeyDown during an update reflects the frame's latest state.
type Input struct {
	keys           map[Key]bool
	mouseX, mouseY float64
}

func NewInput() *Input { return &Input{keys: map[Key]bool{}} }

// Handle folds one event into the tracked state. Events carrying no
// pollable state (scroll, resize, close) pass through untouched.
func (in *Input) Handle(ev Event) {
	switch e := ev.(type) {
	case EventKey:
		in.keys[e.Key] = e.Down
	case EventMouseMove:
		in.mouseX, in.mouseY = e.X, e.Y
	}
}

// IsKeyDown reports whether k is currently held.
func (in *Input) IsKeyDown(k Key) bool { return in.keys[k] }

// Mouse returns the last reported cursor position in window coordinates.
func (in *Input) Mouse() (float64, float64) { return in.mouseX, in.mouseY }
