package logic

// DefaultCalibrationPPM is the factory forced-recalibration reference.
const DefaultCalibrationPPM = 500

// Config is the live configuration adjustable by remote commands.
// It is owned by the control loop.
type Config struct {
	Thresholds     Thresholds
	CalibrationPPM int
}

// DefaultConfig returns the factory configuration.
func DefaultConfig() Config {
	return Config{
		Thresholds:     DefaultThresholds(),
		CalibrationPPM: DefaultCalibrationPPM,
	}
}

// Command is a parsed remote configuration message. Nil fields were absent
// from the payload and leave the configuration unchanged.
type Command struct {
	CalibrationValue *int
	Calibration      *bool
	CO2VeryHigh      *int
	CO2High          *int
	CO2Mid           *int
}

// Apply writes every present field into the configuration. Fields are
// applied independently with no cross-field validation. It reports whether
// the command also asks for a calibration cycle.
func (c *Config) Apply(cmd Command) (calibrate bool) {
	if cmd.CalibrationValue != nil {
		c.CalibrationPPM = *cmd.CalibrationValue
	}
	if cmd.CO2VeryHigh != nil {
		c.Thresholds.VeryHigh = *cmd.CO2VeryHigh
	}
	if cmd.CO2High != nil {
		c.Thresholds.High = *cmd.CO2High
	}
	if cmd.CO2Mid != nil {
		c.Thresholds.Mid = *cmd.CO2Mid
	}
	return cmd.Calibration != nil && *cmd.Calibration
}

// Empty reports whether the command carries no recognized field.
func (cmd Command) Empty() bool {
	return cmd.CalibrationValue == nil && cmd.Calibration == nil &&
		cmd.CO2VeryHigh == nil && cmd.CO2High == nil && cmd.CO2Mid == nil
}
