package display

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// CommandRunner runs an external command and returns its standard output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// DDCUtil is a backend driving displays through the ddcutil command.
type DDCUtil struct {
	path string
	run  CommandRunner
}

// NewDDCUtil returns a ddcutil backend. An empty path means "ddcutil" from
// $PATH.
func NewDDCUtil(path string) *DDCUtil {
	return NewDDCUtilWithRunner(path, runCommand)
}

// NewDDCUtilWithRunner returns a ddcutil backend that runs commands with
// run.
func NewDDCUtilWithRunner(path string, run CommandRunner) *DDCUtil {
	if path == "" {
		path = "ddcutil"
	}
	return &DDCUtil{path: path, run: run}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return out, pkgerrors.Wrapf(err, "%s %s: %s", name, strings.Join(args, " "), strings.TrimSpace(stderr.String()))
	}

	return out, nil
}

// List runs `ddcutil detect --terse` and returns the valid displays.
func (d *DDCUtil) List(ctx context.Context) ([]Info, error) {
	out, err := d.run(ctx, d.path, "detect", "--terse")
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to detect displays")
	}

	displays, err := parseDetectTerse(out)
	if err != nil {
		return nil, err
	}

	for _, info := range displays {
		logrus.WithFields(info.LogrusFields()).Debug("detected display")
	}

	return displays, nil
}

// Open returns a handle that sets brightness with `ddcutil setvcp`.
func (d *DDCUtil) Open(info Info) (Handle, error) {
	return &ddcutilHandle{backend: d, bus: info.Bus}, nil
}

func (d *DDCUtil) Close() error {
	return nil
}

type ddcutilHandle struct {
	backend *DDCUtil
	bus     int
}

func (h *ddcutilHandle) SetBrightness(ctx context.Context, pct uint16) error {
	pct = clampPercent(pct)

	_, err := h.backend.run(ctx, h.backend.path,
		"--bus="+strconv.Itoa(h.bus),
		"setvcp",
		strconv.FormatInt(vcpBrightness, 16),
		strconv.Itoa(int(pct)),
	)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to set brightness on i2c bus %d", h.bus)
	}

	return nil
}

func (h *ddcutilHandle) Close() error {
	return nil
}

// parseDetectTerse parses the output of `ddcutil detect --terse`:
//
//	Display 1
//	   I2C bus:  /dev/i2c-6
//	   Monitor:  DEL:DELL U2720Q:8ABCDE3
//
// Blocks not starting with "Display" (invalid or phantom displays) are
// skipped.
func parseDetectTerse(out []byte) ([]Info, error) {
	var (
		ret     []Info
		cur     *Info
		haveBus bool
	)

	flush := func() {
		if cur != nil && haveBus {
			ret = append(ret, *cur)
		}
		cur = nil
		haveBus = false
	}

	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			continue
		}

		// block headers are not indented
		if line[0] != ' ' && line[0] != '\t' {
			flush()
			if strings.HasPrefix(trimmed, "Display ") {
				cur = &Info{}
			}
			continue
		}

		if cur == nil {
			continue
		}

		key, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch key {
		case "I2C bus":
			n, err := strconv.Atoi(strings.TrimPrefix(value, "/dev/i2c-"))
			if err != nil {
				return nil, pkgerrors.Wrapf(err, "failed to parse i2c bus %q", value)
			}
			cur.Bus = n
			haveBus = true
		case "Monitor":
			first := strings.Index(value, ":")
			last := strings.LastIndex(value, ":")
			if first < 0 || first == last {
				return nil, pkgerrors.Errorf("unexpected monitor line %q", value)
			}
			cur.Manufacturer = value[:first]
			cur.Model = value[first+1 : last]
			cur.Serial = value[last+1:]
		}
	}
	if err := sc.Err(); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to read ddcutil output")
	}
	flush()

	return ret, nil
}
