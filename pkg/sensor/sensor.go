// Package sensor reads ambient light measurements.
package sensor

import (
	"context"
	"fmt"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Reader is a source of ambient light measurements in lux.
type Reader interface {
	ReadLux(ctx context.Context) (float64, error)
	Close() error
}

// Options selects and configures a Reader.
type Options struct {
	// Driver is "tsl2591" or "mock".
	Driver string

	// Bus is the I2C bus name or number, e.g. "1". Empty means the first
	// registered bus.
	Bus     string
	TSL2591 TSL2591Options

	MockLux       float64
	MockVariation float64
}

// Open returns the reader named by opts.
func Open(opts Options) (Reader, error) {
	switch opts.Driver {
	case "", "tsl2591":
		if _, err := host.Init(); err != nil {
			return nil, pkgerrors.Wrap(err, "failed to initialize i2c host drivers")
		}

		bus, err := i2creg.Open(opts.Bus)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "failed to open i2c bus %q", opts.Bus)
		}

		s, err := OpenTSL2591(bus, opts.TSL2591)
		if err != nil {
			_ = bus.Close()
			return nil, err
		}
		s.closer = bus

		logrus.WithFields(logrus.Fields{
			"bus":             bus.String(),
			"gain":            s.gain.String(),
			"integrationTime": s.integration.String(),
		}).Info("ambient light sensor ready")

		return s, nil
	case "mock":
		logrus.WithFields(logrus.Fields{
			"lux":       opts.MockLux,
			"variation": opts.MockVariation,
		}).Warn("using mock ambient light sensor")
		return NewFakeSensor(opts.MockLux, opts.MockVariation), nil
	default:
		return nil, fmt.Errorf("unknown sensor driver %q", opts.Driver)
	}
}
