package sensor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
)

// TSL2591 datasheet: https://cdn-shop.adafruit.com/datasheets/TSL25911_Datasheet_EN_v1.pdf

// DefaultTSL2591Address is the fixed I2C address of the TSL2591.
const DefaultTSL2591Address = 0x29

const (
	tslCommandBit = 0xa0
	tslDeviceID   = 0x50

	tslRegEnable = 0x00
	tslRegConfig = 0x01
	tslRegID     = 0x12
	tslRegCh0Low = 0x14

	tslEnablePowerOn = 0x01
	tslEnableALS     = 0x02

	tslGainMask        = 0x30
	tslIntegrationMask = 0x07

	// counts per lux coefficient
	tslLuxDF = 408.0
)

// ErrUnexpectedDevice is returned when the device at the sensor address is
// not a TSL2591.
var ErrUnexpectedDevice = errors.New("unexpected i2c device")

// Gain is the TSL2591 analog gain, as its CONFIG register bits.
type Gain uint8

const (
	GainLow    Gain = 0x00
	GainMedium Gain = 0x10
	GainHigh   Gain = 0x20
	GainMax    Gain = 0x30
)

// ParseGain parses "low", "medium", "high" or "max".
func ParseGain(s string) (Gain, error) {
	switch strings.ToLower(s) {
	case "low":
		return GainLow, nil
	case "", "medium", "med":
		return GainMedium, nil
	case "high":
		return GainHigh, nil
	case "max":
		return GainMax, nil
	default:
		return 0, fmt.Errorf("invalid gain %q (must be low, medium, high or max)", s)
	}
}

// Multiplier returns the nominal gain factor.
func (g Gain) Multiplier() float64 {
	switch g {
	case GainMedium:
		return 25
	case GainHigh:
		return 428
	case GainMax:
		return 9876
	default:
		return 1
	}
}

func (g Gain) String() string {
	switch g {
	case GainMedium:
		return "medium"
	case GainHigh:
		return "high"
	case GainMax:
		return "max"
	default:
		return "low"
	}
}

// TSL2591Options configures the sensor.
type TSL2591Options struct {
	Address uint16
	Gain    Gain
	// IntegrationTime is 100ms to 600ms in 100ms steps.
	IntegrationTime time.Duration
	// KeepConfig adopts the gain and integration time already programmed in
	// the chip instead of writing Gain and IntegrationTime.
	KeepConfig bool
}

// TSL2591 is an ams TSL2591 ambient light sensor.
type TSL2591 struct {
	dev         *i2c.Dev
	gain        Gain
	integration time.Duration
	closer      io.Closer
}

// OpenTSL2591 checks the device identity, configures and powers on the
// sensor.
func OpenTSL2591(bus i2c.Bus, opts TSL2591Options) (*TSL2591, error) {
	addr := opts.Address
	if addr == 0 {
		addr = DefaultTSL2591Address
	}

	s := &TSL2591{
		dev: &i2c.Dev{Bus: bus, Addr: addr},
	}

	id, err := s.read8(tslRegID)
	if err != nil {
		return nil, err
	}
	if id != tslDeviceID {
		return nil, pkgerrors.Wrapf(ErrUnexpectedDevice, "expected TSL2591 device id %#x at %#x, got %#x", tslDeviceID, addr, id)
	}

	if opts.KeepConfig {
		conf, err := s.read8(tslRegConfig)
		if err != nil {
			return nil, err
		}
		atime := conf & tslIntegrationMask
		if atime > 5 {
			return nil, fmt.Errorf("unexpected integration time value %d", atime)
		}
		s.gain = Gain(conf & tslGainMask)
		s.integration = time.Duration(atime+1) * 100 * time.Millisecond
	} else {
		atime, err := integrationBits(opts.IntegrationTime)
		if err != nil {
			return nil, err
		}
		s.gain = opts.Gain
		s.integration = time.Duration(atime+1) * 100 * time.Millisecond

		if err := s.write8(tslRegConfig, byte(s.gain)|atime); err != nil {
			return nil, err
		}
	}

	if err := s.write8(tslRegEnable, tslEnablePowerOn|tslEnableALS); err != nil {
		return nil, err
	}

	return s, nil
}

func integrationBits(d time.Duration) (byte, error) {
	if d == 0 {
		d = 100 * time.Millisecond
	}
	if d < 100*time.Millisecond || d > 600*time.Millisecond || d%(100*time.Millisecond) != 0 {
		return 0, fmt.Errorf("invalid integration time %s (must be 100ms to 600ms in 100ms steps)", d)
	}
	return byte(d/(100*time.Millisecond)) - 1, nil
}

func (s *TSL2591) read8(reg byte) (byte, error) {
	var buf [1]byte
	if err := s.dev.Tx([]byte{tslCommandBit | reg}, buf[:]); err != nil {
		return 0, pkgerrors.Wrapf(err, "i2c read failed, register %#x", reg)
	}
	return buf[0], nil
}

func (s *TSL2591) write8(reg, value byte) error {
	if err := s.dev.Tx([]byte{tslCommandBit | reg, value}, nil); err != nil {
		return pkgerrors.Wrapf(err, "i2c write failed, register %#x", reg)
	}
	return nil
}

// ReadChannels returns the raw full spectrum (ch0) and infrared (ch1)
// counts.
func (s *TSL2591) ReadChannels(ctx context.Context) (uint16, uint16, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	var buf [4]byte
	if err := s.dev.Tx([]byte{tslCommandBit | tslRegCh0Low}, buf[:]); err != nil {
		return 0, 0, pkgerrors.Wrap(err, "i2c read of light channels failed")
	}

	ch0 := uint16(buf[1])<<8 | uint16(buf[0])
	ch1 := uint16(buf[3])<<8 | uint16(buf[2])

	return ch0, ch1, nil
}

// ReadLux reads both channels and converts them to lux.
func (s *TSL2591) ReadLux(ctx context.Context) (float64, error) {
	ch0, ch1, err := s.ReadChannels(ctx)
	if err != nil {
		return 0, err
	}
	return s.Lux(ch0, ch1), nil
}

// Lux converts raw channel counts to lux for the current gain and
// integration time.
func (s *TSL2591) Lux(ch0, ch1 uint16) float64 {
	full, ir := float64(ch0), float64(ch1)
	cpl := float64(s.integration.Milliseconds()) * s.gain.Multiplier() / tslLuxDF

	lux := math.Max(full-1.64*ir, 0.59*full-0.86*ir) / cpl
	if lux < 0 {
		// more infrared than full spectrum counts, e.g. a saturated IR channel
		return 0
	}
	return lux
}

// Close releases the bus when it was opened by Open.
func (s *TSL2591) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
