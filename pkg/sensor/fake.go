package sensor

import (
	"context"
	"math/rand"
)

// FakeSensor simulates an ambient light sensor for running without
// hardware.
type FakeSensor struct {
	baseValue float64
	variation float64
}

// NewFakeSensor returns a sensor reporting baseValue ± variation lux.
func NewFakeSensor(baseValue, variation float64) *FakeSensor {
	return &FakeSensor{
		baseValue: baseValue,
		variation: variation,
	}
}

func (s *FakeSensor) ReadLux(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	lux := s.baseValue + (rand.Float64()-0.5)*2*s.variation
	if lux < 0 {
		lux = 0
	}

	return lux, nil
}

func (s *FakeSensor) Close() error {
	return nil
}
