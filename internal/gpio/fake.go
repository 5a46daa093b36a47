package gpio

// FakePins is a test double that records output writes and returns
// scripted input levels.
type FakePins struct {
	// Levels holds the current level of every written output.
	Levels map[int]bool

	// Writes contains every write in order.
	Writes []Write

	// Inputs contains scripted levels per input pin. Each call to Read()
	// consumes the next level; the last one repeats.
	Inputs map[int][]bool

	// index tracks current position in each Inputs script
	index map[int]int

	// Closed tracks if Close was called
	Closed bool

	// WriteError, if set, will be returned by Write()
	WriteError error

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// Write is a single recorded output change.
type Write struct {
	Pin   int
	Level bool
}

// NewFakePins creates FakePins with no scripted inputs.
func NewFakePins() *FakePins {
	return &FakePins{
		Levels: make(map[int]bool),
		Inputs: make(map[int][]bool),
		index:  make(map[int]int),
	}
}

// Write records the level.
func (f *FakePins) Write(pin int, level bool) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Levels[pin] = level
	f.Writes = append(f.Writes, Write{Pin: pin, Level: level})
	return nil
}

// Read returns the next scripted level for pin. Unscripted pins read the
// last written level, or high (button released) if never written.
func (f *FakePins) Read(pin int) (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}

	script := f.Inputs[pin]
	if len(script) == 0 {
		if l, ok := f.Levels[pin]; ok {
			return l, nil
		}
		return true, nil
	}

	i := f.index[pin]
	level := script[i]
	if i < len(script)-1 {
		f.index[pin] = i + 1
	}
	return level, nil
}

// Script sets the levels returned by successive reads of pin.
func (f *FakePins) Script(pin int, levels ...bool) {
	f.Inputs[pin] = levels
	f.index[pin] = 0
}

// Close marks the pins as closed.
func (f *FakePins) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded writes and rewinds input scripts.
func (f *FakePins) Reset() {
	f.Writes = nil
	f.Levels = make(map[int]bool)
	f.index = make(map[int]int)
	f.Closed = false
}
