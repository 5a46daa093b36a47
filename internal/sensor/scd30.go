package sensor

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/sweeney/co2-sensor/internal/logic"
)

// SCD30Address is the only I²C address the SCD30 answers on.
const SCD30Address uint16 = 0x61

// The SCD30 needs a pause between the command write and the response read.
const readDelay = 3 * time.Millisecond

type command struct {
	// The 16-bit command word.
	word uint16
	// Number of 16-bit words returned. Each one is followed by a CRC byte.
	responseWords int
}

var (
	cmdStartPeriodic     = command{word: 0x0010}
	cmdStopPeriodic      = command{word: 0x0104}
	cmdSetInterval       = command{word: 0x4600}
	cmdGetDataReady      = command{word: 0x0202, responseWords: 1}
	cmdReadMeasurement   = command{word: 0x0300, responseWords: 6}
	cmdForcedRecalibrate = command{word: 0x5204}
	cmdGetForcedRecal    = command{word: 0x5204, responseWords: 1}
)

// SCD30 is a Sensirion SCD30 NDIR CO2 sensor.
type SCD30 struct {
	d        *i2c.Dev
	interval time.Duration
	sampling bool
	last     logic.Reading
	haveLast bool
}

// NewSCD30 returns a sensor on bus b. interval is the measurement cadence
// (2s to 1800s). Sampling does not start until Start is called.
func NewSCD30(b i2c.Bus, addr uint16, interval time.Duration) (*SCD30, error) {
	if interval < 2*time.Second || interval > 1800*time.Second {
		return nil, fmt.Errorf("scd30: invalid measurement interval %v", interval)
	}
	return &SCD30{d: &i2c.Dev{Bus: b, Addr: addr}, interval: interval}, nil
}

// Start sets the measurement interval and starts continuous measurement
// without ambient pressure compensation.
func (s *SCD30) Start() error {
	if _, err := s.sendCommand(cmdSetInterval, uint16(s.interval/time.Second)); err != nil {
		return err
	}
	if _, err := s.sendCommand(cmdStartPeriodic, 0); err != nil {
		return err
	}
	s.sampling = true
	return nil
}

// Stop halts continuous measurement.
func (s *SCD30) Stop() error {
	s.sampling = false
	_, err := s.sendCommand(cmdStopPeriodic)
	return err
}

// Read returns the newest measurement. When the sensor has nothing new the
// previous measurement is returned.
func (s *SCD30) Read() (logic.Reading, error) {
	if !s.sampling {
		return logic.Reading{}, ErrStopped
	}

	words, err := s.sendCommand(cmdGetDataReady)
	if err != nil {
		return logic.Reading{}, err
	}
	if words[0] == 1 {
		words, err = s.sendCommand(cmdReadMeasurement)
		if err != nil {
			return logic.Reading{}, err
		}
		s.last = logic.Reading{
			CO2:         wordsToFloat(words[0], words[1]),
			Temperature: wordsToFloat(words[2], words[3]),
			Humidity:    wordsToFloat(words[4], words[5]),
		}
		s.haveLast = true
	}

	if !s.haveLast {
		return logic.Reading{}, ErrNoData
	}
	return s.last, nil
}

// ForceRecalibration writes the reference concentration and reads back the
// value the sensor applied.
func (s *SCD30) ForceRecalibration(targetPPM int) (int, error) {
	if targetPPM < 0 || targetPPM > math.MaxUint16 {
		return 0, fmt.Errorf("scd30: reference %d ppm out of range", targetPPM)
	}
	if _, err := s.sendCommand(cmdForcedRecalibrate, uint16(targetPPM)); err != nil {
		return 0, err
	}
	words, err := s.sendCommand(cmdGetForcedRecal)
	if err != nil {
		return 0, err
	}
	return int(words[0]), nil
}

// Close stops measurement if it is running.
func (s *SCD30) Close() error {
	if !s.sampling {
		return nil
	}
	return s.Stop()
}

func (s *SCD30) String() string {
	return fmt.Sprintf("scd30{%s}", s.d)
}

// sendCommand writes the command word and optional argument words (each
// followed by its CRC) and reads back responseWords words, verifying CRCs.
func (s *SCD30) sendCommand(cmd command, args ...uint16) ([]uint16, error) {
	w := make([]byte, 2, 2+3*len(args))
	binary.BigEndian.PutUint16(w, cmd.word)
	for _, a := range args {
		b := []byte{byte(a >> 8), byte(a)}
		w = append(w, b[0], b[1], crc8(b))
	}

	if err := s.d.Tx(w, nil); err != nil {
		return nil, fmt.Errorf("scd30 cmd 0x%04x: %w", cmd.word, err)
	}
	if cmd.responseWords == 0 {
		return nil, nil
	}

	time.Sleep(readDelay)
	r := make([]byte, cmd.responseWords*3)
	if err := s.d.Tx(nil, r); err != nil {
		return nil, fmt.Errorf("scd30 cmd 0x%04x: read: %w", cmd.word, err)
	}

	result := make([]uint16, cmd.responseWords)
	for i := range result {
		chunk := r[i*3 : i*3+3]
		if crc8(chunk[:2]) != chunk[2] {
			return nil, fmt.Errorf("scd30 cmd 0x%04x: invalid crc", cmd.word)
		}
		result[i] = binary.BigEndian.Uint16(chunk[:2])
	}
	return result, nil
}

// wordsToFloat joins two big-endian words into an IEEE754 float.
func wordsToFloat(hi, lo uint16) float64 {
	return float64(math.Float32frombits(uint32(hi)<<16 | uint32(lo)))
}

// crc8 is the Sensirion CRC-8 (polynomial 0x31, init 0xff).
func crc8(data []byte) byte {
	crc := byte(0xff)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
