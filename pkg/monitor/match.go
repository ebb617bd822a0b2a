package monitor

import (
	"sort"

	"github.com/adaptive-brightness/adaptive-brightness/pkg/curve"
	"github.com/adaptive-brightness/adaptive-brightness/pkg/display"
)

// Config is a brightness rule for the displays selected by Identifier.
type Config struct {
	Identifier  Identifier
	Breakpoints []curve.Point
}

// SortConfigs orders configs by identifier rank, most specific first.
// Configs of equal rank keep their relative order.
func SortConfigs(configs []Config) {
	sort.SliceStable(configs, func(i, j int) bool {
		return configs[i].Identifier.Rank() < configs[j].Identifier.Rank()
	})
}

// Match pairs a display with the rule that applies to it. Config is nil
// when no rule matches.
type Match struct {
	Display display.Info
	Config  *Config
}

// Find returns the first config matching d, or nil. configs must already be
// in priority order (see SortConfigs): the first match wins.
func Find(configs []Config, d display.Info) *Config {
	for i := range configs {
		if configs[i].Identifier.Matches(d) {
			return &configs[i]
		}
	}
	return nil
}

// MatchDisplays resolves every display against configs.
func MatchDisplays(configs []Config, displays []display.Info) []Match {
	ret := make([]Match, 0, len(displays))
	for _, d := range displays {
		ret = append(ret, Match{Display: d, Config: Find(configs, d)})
	}
	return ret
}
