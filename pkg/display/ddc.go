package display

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

const (
	edidAddr   = 0x50
	ddcciAddr  = 0x37
	ddcciHost  = 0x51
	ddcciDest  = 0x6e // ddcciAddr << 1, part of the checksum
	opSetVCP   = 0x03
	lengthFlag = 0x80
)

// BusOpener opens an I2C bus by number.
type BusOpener func(bus int) (i2c.BusCloser, error)

// DDC is a backend speaking DDC/CI over the kernel's I2C buses.
type DDC struct {
	open  BusOpener
	buses func() []int

	mu     sync.Mutex
	opened []i2c.BusCloser
}

var hostInitOnce = sync.OnceValue(func() error {
	_, err := host.Init()
	return err
})

// NewDDC initializes the periph host drivers and returns a DDC backend.
func NewDDC() (*DDC, error) {
	if err := hostInitOnce(); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to initialize i2c host drivers")
	}

	return NewDDCWithBuses(openBus, registeredBuses), nil
}

// NewDDCWithBuses returns a DDC backend using the given bus opener and bus
// list.
func NewDDCWithBuses(open BusOpener, buses func() []int) *DDC {
	return &DDC{
		open:  open,
		buses: buses,
	}
}

func openBus(bus int) (i2c.BusCloser, error) {
	return i2creg.Open(strconv.Itoa(bus))
}

func registeredBuses() []int {
	var ret []int
	for _, ref := range i2creg.All() {
		if ref.Number >= 0 {
			ret = append(ret, ref.Number)
		}
	}
	sort.Ints(ret)
	return ret
}

// List reads the EDID of every I2C bus and returns the buses that carry a
// display.
func (d *DDC) List(ctx context.Context) ([]Info, error) {
	var ret []Info

	for _, bus := range d.buses() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := d.probe(bus)
		if err != nil {
			logrus.WithField("bus", bus).WithError(err).Trace("skipping i2c bus")
			continue
		}

		logrus.WithFields(info.LogrusFields()).Debug("detected display")
		ret = append(ret, info)
	}

	return ret, nil
}

func (d *DDC) probe(bus int) (Info, error) {
	b, err := d.open(bus)
	if err != nil {
		return Info{}, pkgerrors.Wrapf(err, "failed to open i2c bus %d", bus)
	}
	defer func() {
		if err := b.Close(); err != nil {
			logrus.WithField("bus", bus).Warnf("failed to close i2c bus: %v", err)
		}
	}()

	raw := make([]byte, edidLength)
	if err := b.Tx(edidAddr, []byte{0x00}, raw); err != nil {
		return Info{}, pkgerrors.Wrapf(err, "failed to read EDID on bus %d", bus)
	}

	edid, err := ParseEDID(raw)
	if err != nil {
		return Info{}, err
	}

	return edid.Info(bus), nil
}

// Open opens the bus of the display for writing.
func (d *DDC) Open(info Info) (Handle, error) {
	b, err := d.open(info.Bus)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to open i2c bus %d", info.Bus)
	}

	d.mu.Lock()
	d.opened = append(d.opened, b)
	d.mu.Unlock()

	return &ddcHandle{
		owner: d,
		bus:   b,
		dev:   &i2c.Dev{Bus: b, Addr: ddcciAddr},
		num:   info.Bus,
	}, nil
}

func (d *DDC) release(b i2c.BusCloser) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, o := range d.opened {
		if o == b {
			d.opened = append(d.opened[:i], d.opened[i+1:]...)
			return b.Close()
		}
	}

	return nil
}

// Close closes every bus still held by a handle.
func (d *DDC) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for _, b := range d.opened {
		errs = append(errs, b.Close())
	}
	d.opened = nil

	return errors.Join(errs...)
}

type ddcHandle struct {
	owner *DDC
	bus   i2c.BusCloser
	dev   *i2c.Dev
	num   int
}

// SetBrightness sends a DDC/CI Set VCP Feature request for luminance.
func (h *ddcHandle) SetBrightness(_ context.Context, pct uint16) error {
	pct = clampPercent(pct)

	if err := h.dev.Tx(setVCPPacket(vcpBrightness, pct), nil); err != nil {
		return pkgerrors.Wrapf(err, "failed to set brightness on i2c bus %d", h.num)
	}

	return nil
}

func (h *ddcHandle) Close() error {
	return h.owner.release(h.bus)
}

// setVCPPacket builds the DDC/CI Set VCP Feature message.
func setVCPPacket(code byte, value uint16) []byte {
	pkt := []byte{
		ddcciHost,
		lengthFlag | 4,
		opSetVCP,
		code,
		byte(value >> 8),
		byte(value),
	}

	chk := byte(ddcciDest)
	for _, b := range pkt {
		chk ^= b
	}

	return append(pkt, chk)
}
