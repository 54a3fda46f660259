package compilation

import (
	"strings"

	"github.com/go-digitaltwin/hydrotwin"
)

// Columns of a PRV "profiles" row.
const (
	profileTimestamp = 0
	profileSetting   = 8
)

// controls renders the time-of-day set points of every pressure-reducing
// valve carrying a profile. Each valve contributes one newline-terminated
// line per profile row.
func controls(c *compilation) string {
	prvs := c.filter(func(e Element) bool {
		return isPRV(e) && e.Properties.Has("profiles") && e.Properties["profiles"] != nil
	})
	return lines(prvs, func(e Element) string {
		return timeControls(e.index(), e.Properties.Rows("profiles"))
	})
}

func timeControls(id string, rows [][]string) string {
	var b strings.Builder
	for i, row := range rows {
		var setting float64
		if len(row) > profileSetting {
			setting, _ = hydrotwin.ParseFloat(row[profileSetting])
		}
		clock := "00:00"
		if i > 0 && len(row) > profileTimestamp {
			clock = clockTime(row[profileTimestamp])
		}
		b.WriteString("VALVE " + id + " " + FormatFixed(setting, 2) + " AT CLOCKTIME " + clock + "\n")
	}
	return b.String()
}

// clockTime extracts the "HH:MM" of a timestamp ending in "HH:MM:SS".
func clockTime(ts string) string {
	start := max(len(ts)-8, 0)
	end := max(len(ts)-3, 0)
	return ts[start:end]
}
