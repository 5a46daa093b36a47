// Package gpio provides GPIO outputs and the calibration button with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Pins drives indicator outputs and reads inputs by BCM line number.
type Pins interface {
	// Write sets an output line. true = high.
	Write(pin int, level bool) error

	// Read returns the level of a line. true = high.
	Read(pin int) (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Layout assigns BCM line numbers to the indicators and the button.
type Layout struct {
	Red    int `yaml:"red"`
	Yellow int `yaml:"yellow"`
	Green  int `yaml:"green"`
	Blue   int `yaml:"blue"`
	Buzzer int `yaml:"buzzer"`
	Button int `yaml:"button"`
}

// Default pin definitions (BCM numbering)
const (
	PinRed    = 17
	PinYellow = 27
	PinGreen  = 22
	PinBlue   = 23
	PinBuzzer = 24
	PinButton = 25 // active low, internal pull-up
)

// DefaultLayout returns the wiring of the reference board.
func DefaultLayout() Layout {
	return Layout{
		Red:    PinRed,
		Yellow: PinYellow,
		Green:  PinGreen,
		Blue:   PinBlue,
		Buzzer: PinBuzzer,
		Button: PinButton,
	}
}

// Outputs lists the output lines of the layout.
func (l Layout) Outputs() []int {
	return []int{l.Red, l.Yellow, l.Green, l.Blue, l.Buzzer}
}
