package monitor

import (
	"context"
	"fmt"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/adaptive-brightness/adaptive-brightness/pkg/curve"
	"github.com/adaptive-brightness/adaptive-brightness/pkg/display"
)

const (
	maxBrightness = 100

	// Below or at this brightness the finer quantization grid is used.
	fineGridLimit = 20
	fineGrid      = 2
	coarseGrid    = 5

	// Differences up to maxJump are applied in one step, larger ones
	// move by rateStep per tick.
	maxJump  = 3
	rateStep = 2
)

// Controller drives the brightness of one display toward the value its
// curve gives for the current ambient light.
//
// A Controller is not safe for concurrent use.
type Controller struct {
	info   display.Info
	ident  Identifier
	curve  *curve.Curve
	handle display.Handle

	committed   uint16
	target      uint16
	initialized bool
}

// Status is a snapshot of a controller.
type Status struct {
	Display    display.Info  `json:"display"`
	Name       string        `json:"name"`
	Identifier string        `json:"identifier"`
	Brightness uint16        `json:"brightness"`
	Target     uint16        `json:"target"`
	Settled    bool          `json:"settled"`
	Curve      []curve.Point `json:"curve"`
}

// NewController builds a controller for the display described by info,
// using the curve of cfg and writing through handle.
func NewController(info display.Info, cfg Config, handle display.Handle) (*Controller, error) {
	c, err := curve.FromBreakpoints(cfg.Breakpoints)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "monitor %s", info)
	}

	return &Controller{
		info:   info,
		ident:  cfg.Identifier,
		curve:  c,
		handle: handle,
	}, nil
}

// Initialize sets the display to the curve value for lux without
// quantization or rate limiting.
func (c *Controller) Initialize(ctx context.Context, lux uint32) error {
	raw := c.raw(lux)

	if err := c.handle.SetBrightness(ctx, raw); err != nil {
		return pkgerrors.Wrapf(err, "failed to initialize brightness of %s", c.Name())
	}

	c.committed = raw
	c.target = raw
	c.initialized = true

	logrus.WithFields(logrus.Fields{
		"display":    c.Name(),
		"lux":        lux,
		"brightness": raw,
	}).Info("initialized display brightness")

	return nil
}

// Tick moves the display one step toward the quantized curve value for lux.
// It reports whether a write to the display happened. On a failed write the
// committed brightness is unchanged.
//
// A controller whose Initialize failed is initialized on its next Tick.
func (c *Controller) Tick(ctx context.Context, lux uint32) (bool, error) {
	if !c.initialized {
		if err := c.Initialize(ctx, lux); err != nil {
			return false, err
		}
		return true, nil
	}

	raw := c.raw(lux)
	c.target = quantize(raw, c.committed)

	next := step(c.committed, c.target)
	if next == c.committed {
		return false, nil
	}

	if err := c.handle.SetBrightness(ctx, next); err != nil {
		return false, pkgerrors.Wrapf(err, "failed to set brightness of %s to %d", c.Name(), next)
	}

	logrus.WithFields(logrus.Fields{
		"display":    c.Name(),
		"lux":        lux,
		"raw":        raw,
		"target":     c.target,
		"brightness": next,
	}).Debug("brightness updated")

	c.committed = next

	return true, nil
}

func (c *Controller) raw(lux uint32) uint16 {
	v := c.curve.Evaluate(lux)
	if v > maxBrightness {
		v = maxBrightness
	}
	return uint16(v)
}

// quantize snaps raw to the grid, rounding toward committed so that small
// fluctuations around the committed value are absorbed.
func quantize(raw, committed uint16) uint16 {
	if raw == committed {
		return committed
	}

	g := uint16(fineGrid)
	if raw > fineGridLimit {
		g = coarseGrid
	}

	if raw < committed {
		return (raw + g - 1) / g * g
	}
	return raw / g * g
}

func step(committed, target uint16) uint16 {
	switch {
	case target > committed+maxJump:
		return committed + rateStep
	case committed > target+maxJump:
		return committed - rateStep
	default:
		return target
	}
}

// Brightness is the last value successfully written to the display.
func (c *Controller) Brightness() uint16 { return c.committed }

// Target is the quantized brightness the controller is converging to.
func (c *Controller) Target() uint16 { return c.target }

// Settled reports whether the display has reached its target.
func (c *Controller) Settled() bool { return c.initialized && c.committed == c.target }

func (c *Controller) Display() display.Info { return c.info }

// Name is a short human readable name of the display.
func (c *Controller) Name() string {
	if c.info.Model == "" {
		return fmt.Sprintf("i2c-%d", c.info.Bus)
	}
	return fmt.Sprintf("%s (i2c-%d)", c.info.Model, c.info.Bus)
}

func (c *Controller) Status() Status {
	ident := ""
	if c.ident != nil {
		ident = c.ident.String()
	}
	return Status{
		Display:    c.info,
		Name:       c.Name(),
		Identifier: ident,
		Brightness: c.committed,
		Target:     c.target,
		Settled:    c.Settled(),
		Curve:      c.curve.Points(),
	}
}

// Close releases the display handle.
func (c *Controller) Close() error {
	return c.handle.Close()
}
