package compilation

import (
	"strings"
	"testing"

	"github.com/go-digitaltwin/hydrotwin"
)

// profileRow builds a PRV profile row with the timestamp and set point in
// their columns.
func profileRow(ts string, setting any) []any {
	row := make([]any, 9)
	row[profileTimestamp] = ts
	for i := 1; i < profileSetting; i++ {
		row[i] = ""
	}
	row[profileSetting] = setting
	return row
}

func TestControls(t *testing.T) {
	var b hydrotwin.ModelBuilder
	b.Start("01/03/24")
	b.Point(hydrotwin.TableFixedHead, "R", 0, 0, nil)
	b.Point(hydrotwin.TableNode, "A", 1, 0, nil)
	b.Point(hydrotwin.TableNode, "B", 2, 0, nil)
	b.Link(hydrotwin.TableValve, "PRV1", "R", "A", hydrotwin.Properties{
		"mode": "PRV",
		"profiles": []any{
			profileRow("01/03/2024 06:00:00", "12.5"),
			profileRow("01/03/2024 06:15:00", 13.0),
			profileRow("01/03/2024 06:30:00", "bad"),
		},
	})
	// A null profile list is ignored.
	b.Link(hydrotwin.TableValve, "PRV2", "A", "B", hydrotwin.Properties{
		"mode":     "PRV",
		"profiles": nil,
	})
	c := &compilation{elems: Merge(b.Build(), nil)}

	want := "VALVE 3 12.50 AT CLOCKTIME 00:00\n" +
		"VALVE 3 13.00 AT CLOCKTIME 06:15\n" +
		"VALVE 3 0.00 AT CLOCKTIME 06:30\n"
	if got := controls(c); got != want {
		t.Errorf("controls() = %q, want %q", got, want)
	}
}

func TestClockTime(t *testing.T) {
	tests := []struct {
		ts, want string
	}{
		{"01/03/2024 06:15:00", "06:15"},
		{"23:59:59", "23:59"},
		{"6:15", "6"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := clockTime(tt.ts); got != tt.want {
			t.Errorf("clockTime(%q) = %q, want %q", tt.ts, got, tt.want)
		}
	}
}

func TestSetPressure(t *testing.T) {
	tests := []struct {
		name  string
		props hydrotwin.Properties
		want  float64
	}{
		{"Static", hydrotwin.Properties{"pressure": "25"}, 25},
		{"Profile", hydrotwin.Properties{
			"pressure": 25.0,
			"profile":  []any{profileRow("00:00:00", 31.0)},
		}, 31},
		{"Missing", hydrotwin.Properties{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := setPressure(tt.props); got != tt.want {
				t.Errorf("setPressure() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	var b hydrotwin.ModelBuilder
	b.Start("01/03/24")
	b.Point(hydrotwin.TableNode, "A", 0, 0, nil)
	b.Point(hydrotwin.TableNode, "B", 1, 0, nil)
	b.Link(hydrotwin.TableValve, "V1", "A", "B", hydrotwin.Properties{"mode": "THV", "opening": "0."})
	b.Link(hydrotwin.TableValve, "V2", "A", "B", hydrotwin.Properties{"mode": "THV", "opening": 0.0})
	b.Link(hydrotwin.TableValve, "V3", "A", "B", hydrotwin.Properties{"mode": "THV", "opening": "0"})
	b.Link(hydrotwin.TablePipe, "P1", "A", "B", hydrotwin.Properties{"opening": "0."})
	got := Compile(b.Build(), nil)

	if n := strings.Count(got, "CLOSED"); n != 1 {
		t.Errorf("Compile() has %d CLOSED lines, want 1", n)
	}
	if !strings.Contains(got, "[STATUS]\n2 CLOSED\n") {
		t.Errorf("Compile() does not close V1:\n%s", got)
	}
}
