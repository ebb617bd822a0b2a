package monitor

import (
	"fmt"

	"github.com/adaptive-brightness/adaptive-brightness/pkg/display"
)

// Specificity ranks. Lower is more specific.
const (
	RankBusID       = 0
	RankModelSerial = 10
	RankSerial      = 11
	RankModel       = 20
	RankDefault     = 100
)

// Identifier selects the displays a configuration rule applies to.
//
// The set of identifiers is closed: Default, BusID, Model, Serial and
// ModelSerial.
type Identifier interface {
	// Rank is the specificity of the identifier, lower wins.
	Rank() int
	// Matches reports whether the identifier selects the display.
	Matches(d display.Info) bool
	fmt.Stringer

	identifier()
}

// Default matches every display.
type Default struct{}

// BusID matches the display on an I2C bus.
type BusID struct {
	Bus int
}

// Model matches displays by manufacturer and model name.
type Model struct {
	Manufacturer string
	Model        string
}

// Serial matches a display by serial number.
type Serial struct {
	Serial string
}

// ModelSerial matches a display by manufacturer, model and serial number.
type ModelSerial struct {
	Manufacturer string
	Model        string
	Serial       string
}

func (Default) Rank() int     { return RankDefault }
func (BusID) Rank() int       { return RankBusID }
func (Model) Rank() int       { return RankModel }
func (Serial) Rank() int      { return RankSerial }
func (ModelSerial) Rank() int { return RankModelSerial }

func (Default) Matches(display.Info) bool { return true }

func (i BusID) Matches(d display.Info) bool { return d.Bus == i.Bus }

func (i Model) Matches(d display.Info) bool {
	return d.Manufacturer == i.Manufacturer && d.Model == i.Model
}

func (i Serial) Matches(d display.Info) bool { return d.Serial == i.Serial }

func (i ModelSerial) Matches(d display.Info) bool {
	return d.Manufacturer == i.Manufacturer && d.Model == i.Model && d.Serial == i.Serial
}

func (Default) String() string { return "Default" }

func (i BusID) String() string { return fmt.Sprintf("BusId(%d)", i.Bus) }

func (i Model) String() string { return fmt.Sprintf("Model(%q, %q)", i.Manufacturer, i.Model) }

func (i Serial) String() string { return fmt.Sprintf("Serial(%q)", i.Serial) }

func (i ModelSerial) String() string {
	return fmt.Sprintf("ModelSerial(%q, %q, %q)", i.Manufacturer, i.Model, i.Serial)
}

func (Default) identifier()     {}
func (BusID) identifier()       {}
func (Model) identifier()       {}
func (Serial) identifier()      {}
func (ModelSerial) identifier() {}
