// Package display detects external monitors and writes their brightness.
//
// Two backends are provided: DDC talks DDC/CI directly over the I2C buses
// exposed by the graphics driver, DDCUtil shells out to the ddcutil tool.
package display

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// VCP feature code for luminance.
const vcpBrightness = 0x10

// Info describes a detected display.
type Info struct {
	Bus          int    `json:"bus"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Serial       string `json:"serial"`
}

func (i Info) String() string {
	return fmt.Sprintf("i2c-%d %s %s %s", i.Bus, i.Manufacturer, i.Model, i.Serial)
}

// LogrusFields returns the fields identifying the display in logs.
func (i Info) LogrusFields() logrus.Fields {
	return logrus.Fields{
		"bus":          i.Bus,
		"manufacturer": i.Manufacturer,
		"model":        i.Model,
		"serial":       i.Serial,
	}
}

// Handle writes the brightness of one display. A Handle is owned by a
// single controller and is not safe for concurrent use.
type Handle interface {
	// SetBrightness sets the brightness in percent, 0 to 100.
	SetBrightness(ctx context.Context, pct uint16) error
	Close() error
}

// Backend enumerates displays and opens handles to them.
type Backend interface {
	List(ctx context.Context) ([]Info, error)
	Open(info Info) (Handle, error)
	Close() error
}

// Options selects and configures a Backend.
type Options struct {
	// Backend is "ddc" or "ddcutil".
	Backend string
	// DDCUtilPath is the ddcutil executable for the ddcutil backend.
	DDCUtilPath string
}

// NewBackend returns the backend named by opts.
func NewBackend(opts Options) (Backend, error) {
	switch opts.Backend {
	case "", "ddc":
		return NewDDC()
	case "ddcutil":
		return NewDDCUtil(opts.DDCUtilPath), nil
	default:
		return nil, fmt.Errorf("unknown display backend %q", opts.Backend)
	}
}

func clampPercent(pct uint16) uint16 {
	if pct > 100 {
		return 100
	}
	return pct
}
