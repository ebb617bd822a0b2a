package monitor

import (
	"testing"

	"github.com/adaptive-brightness/adaptive-brightness/pkg/curve"
	"github.com/adaptive-brightness/adaptive-brightness/pkg/display"
)

var dell = display.Info{Bus: 6, Manufacturer: "DEL", Model: "DELL U2720Q", Serial: "8ABCDE3"}

func TestIdentifierMatches(t *testing.T) {
	tests := []struct {
		name  string
		ident Identifier
		want  bool
	}{
		{name: "default", ident: Default{}, want: true},
		{name: "bus", ident: BusID{Bus: 6}, want: true},
		{name: "other bus", ident: BusID{Bus: 7}, want: false},
		{name: "model", ident: Model{Manufacturer: "DEL", Model: "DELL U2720Q"}, want: true},
		{name: "model case sensitive", ident: Model{Manufacturer: "del", Model: "DELL U2720Q"}, want: false},
		{name: "serial", ident: Serial{Serial: "8ABCDE3"}, want: true},
		{name: "other serial", ident: Serial{Serial: "8ABCDE4"}, want: false},
		{name: "model serial", ident: ModelSerial{Manufacturer: "DEL", Model: "DELL U2720Q", Serial: "8ABCDE3"}, want: true},
		{name: "model serial wrong model", ident: ModelSerial{Manufacturer: "DEL", Model: "DELL U2719D", Serial: "8ABCDE3"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ident.Matches(dell); got != tt.want {
				t.Errorf("%s.Matches() = %v, want %v", tt.ident, got, tt.want)
			}
		})
	}
}

func TestSortConfigs(t *testing.T) {
	configs := []Config{
		{Identifier: Default{}},
		{Identifier: Model{Manufacturer: "DEL", Model: "A"}},
		{Identifier: Serial{Serial: "1"}},
		{Identifier: Model{Manufacturer: "DEL", Model: "B"}},
		{Identifier: ModelSerial{Serial: "2"}},
		{Identifier: BusID{Bus: 6}},
	}

	SortConfigs(configs)

	want := []string{
		`BusId(6)`,
		`ModelSerial("", "", "2")`,
		`Serial("1")`,
		`Model("DEL", "A")`,
		`Model("DEL", "B")`,
		`Default`,
	}
	for i, c := range configs {
		if got := c.Identifier.String(); got != want[i] {
			t.Errorf("configs[%d] = %s, want %s", i, got, want[i])
		}
	}
}

func TestMatchDisplays(t *testing.T) {
	low := []curve.Point{{Input: 0, Output: 10}}
	high := []curve.Point{{Input: 0, Output: 90}}

	other := display.Info{Bus: 7, Manufacturer: "GSM", Model: "LG HDR 4K", Serial: "X1"}

	tests := []struct {
		name     string
		configs  []Config
		displays []display.Info
		want     []int // breakpoint output per display, -1 for no match
	}{
		{
			name:     "bus beats default",
			configs:  []Config{{Identifier: Default{}, Breakpoints: low}, {Identifier: BusID{Bus: 6}, Breakpoints: high}},
			displays: []display.Info{dell, other},
			want:     []int{90, 10},
		},
		{
			name:     "model serial beats model",
			configs:  []Config{{Identifier: Model{Manufacturer: "DEL", Model: "DELL U2720Q"}, Breakpoints: low}, {Identifier: ModelSerial{Manufacturer: "DEL", Model: "DELL U2720Q", Serial: "8ABCDE3"}, Breakpoints: high}},
			displays: []display.Info{dell},
			want:     []int{90},
		},
		{
			name:     "first of equal rank wins",
			configs:  []Config{{Identifier: Serial{Serial: "8ABCDE3"}, Breakpoints: low}, {Identifier: Serial{Serial: "8ABCDE3"}, Breakpoints: high}},
			displays: []display.Info{dell},
			want:     []int{10},
		},
		{
			name:     "unmatched",
			configs:  []Config{{Identifier: BusID{Bus: 6}, Breakpoints: high}},
			displays: []display.Info{dell, other},
			want:     []int{90, -1},
		},
		{
			name:     "no displays",
			configs:  []Config{{Identifier: Default{}, Breakpoints: low}},
			displays: nil,
			want:     []int{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SortConfigs(tt.configs)
			got := MatchDisplays(tt.configs, tt.displays)
			if len(got) != len(tt.want) {
				t.Fatalf("MatchDisplays() returned %d matches, want %d", len(got), len(tt.want))
			}
			for i, m := range got {
				if m.Display != tt.displays[i] {
					t.Errorf("match %d display = %v, want %v", i, m.Display, tt.displays[i])
				}
				out := -1
				if m.Config != nil {
					out = int(m.Config.Breakpoints[0].Output)
				}
				if out != tt.want[i] {
					t.Errorf("match %d output = %d, want %d", i, out, tt.want[i])
				}
			}
		})
	}
}
