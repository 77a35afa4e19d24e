package logic

import (
	"reflect"
	"testing"
	"time"
)

func intPtr(v int) *int    { return &v }
func uintPtr(v uint) *uint { return &v }

func TestClassify(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		name    string
		reading Reading
		lidSecs uint
		want    Status
	}{
		{"warm is warn", Reading{intPtr(30), uintPtr(40)}, 0, StatusWarn},
		{"lid overrides warn", Reading{intPtr(30), uintPtr(40)}, 61, StatusAlert},
		{"humid is alert", Reading{intPtr(20), uintPtr(75)}, 0, StatusAlert},
		{"no readings is ok", Reading{}, 0, StatusOK},
		{"cold is warn", Reading{intPtr(17), uintPtr(40)}, 0, StatusWarn},
		{"band lower bound is ok", Reading{intPtr(18), uintPtr(40)}, 0, StatusOK},
		{"band upper bound is ok", Reading{intPtr(25), uintPtr(40)}, 0, StatusOK},
		{"humidity at threshold is ok", Reading{intPtr(20), uintPtr(70)}, 0, StatusOK},
		{"humid beats warm", Reading{intPtr(35), uintPtr(90)}, 0, StatusAlert},
		{"lid at max is not alert", Reading{intPtr(20), uintPtr(40)}, 60, StatusOK},
		{"lid over max alone", Reading{}, 61, StatusAlert},
		{"humidity only known", Reading{Humidity: uintPtr(71)}, 0, StatusAlert},
		{"temperature only known", Reading{Temperature: intPtr(-3)}, 0, StatusWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.reading, tt.lidSecs, th); got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyCustomLidLimit(t *testing.T) {
	th := DefaultThresholds()
	th.LidMaxOpen = 10 * time.Second

	if got := Classify(Reading{}, 11, th); got != StatusAlert {
		t.Errorf("got %s, want alert", got)
	}
	if got := Classify(Reading{}, 10, th); got != StatusOK {
		t.Errorf("got %s, want ok", got)
	}
}

func TestAlertsOrder(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		name    string
		reading Reading
		lid     LidState
		want    []AlertKind
	}{
		{"nothing", Reading{intPtr(20), uintPtr(40)}, LidState{}, nil},
		{"no readings", Reading{}, LidState{}, nil},
		{"cold", Reading{intPtr(10), uintPtr(40)}, LidState{}, []AlertKind{AlertCold}},
		{"warm", Reading{intPtr(30), uintPtr(40)}, LidState{}, []AlertKind{AlertWarm}},
		{"lid just opened", Reading{intPtr(20), uintPtr(40)}, LidState{Open: true}, nil},
		{"lid open", Reading{intPtr(20), uintPtr(40)}, LidState{Open: true, OpenSeconds: 1}, []AlertKind{AlertLid}},
		{"humid", Reading{intPtr(20), uintPtr(80)}, LidState{}, []AlertKind{AlertHumid}},
		{
			"cold lid humid",
			Reading{intPtr(5), uintPtr(95)},
			LidState{Open: true, OpenSeconds: 12},
			[]AlertKind{AlertCold, AlertLid, AlertHumid},
		},
		{
			"warm lid humid",
			Reading{intPtr(40), uintPtr(95)},
			LidState{Open: true, OpenSeconds: 2},
			[]AlertKind{AlertWarm, AlertLid, AlertHumid},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Alerts(tt.reading, tt.lid, th)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Alerts() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAlertsAllKindsWithInvertedBand(t *testing.T) {
	// An inverted band makes cold and warm fire together, so all four
	// patterns can be checked in one cycle.
	th := Thresholds{TempMin: 30, TempMax: 10, RHAlert: 50}
	got := Alerts(Reading{intPtr(20), uintPtr(60)}, LidState{Open: true, OpenSeconds: 3}, th)
	want := []AlertKind{AlertCold, AlertWarm, AlertLid, AlertHumid}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Alerts() = %v, want %v", got, want)
	}
}

func TestFormatValues(t *testing.T) {
	if got := FormatInt(nil); got != "None" {
		t.Errorf("FormatInt(nil) = %q", got)
	}
	if got := FormatInt(intPtr(-4)); got != "-4" {
		t.Errorf("FormatInt(-4) = %q", got)
	}
	if got := FormatUint(nil); got != "None" {
		t.Errorf("FormatUint(nil) = %q", got)
	}
	if got := FormatUint(uintPtr(55)); got != "55" {
		t.Errorf("FormatUint(55) = %q", got)
	}
}

func TestNewReading(t *testing.T) {
	r := NewReading(21, 48)
	if r.Temperature == nil || *r.Temperature != 21 {
		t.Errorf("Temperature: got %v", r.Temperature)
	}
	if r.Humidity == nil || *r.Humidity != 48 {
		t.Errorf("Humidity: got %v", r.Humidity)
	}
}
