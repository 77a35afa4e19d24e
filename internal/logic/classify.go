package logic

import "time"

// Classify derives the health status from a snapshot of the shared state.
//
// Humidity above the alert threshold gives alert; otherwise a temperature
// outside the comfort band gives warn. The lid check runs last and can raise
// either result to alert.
func Classify(r Reading, lidOpenSeconds uint, th Thresholds) Status {
	status := StatusOK

	if r.Humidity != nil && *r.Humidity > th.RHAlert {
		status = StatusAlert
	} else if r.Temperature != nil && (*r.Temperature < th.TempMin || *r.Temperature > th.TempMax) {
		status = StatusWarn
	}

	if time.Duration(lidOpenSeconds)*time.Second > th.LidMaxOpen {
		status = StatusAlert
	}
	return status
}

// Alerts returns the buzzer patterns to play for one monitor cycle, in
// playing order: cold, warm, lid, humid. Conditions are independent; any
// combination may fire together.
func Alerts(r Reading, lid LidState, th Thresholds) []AlertKind {
	var kinds []AlertKind
	if r.Temperature != nil && *r.Temperature < th.TempMin {
		kinds = append(kinds, AlertCold)
	}
	if r.Temperature != nil && *r.Temperature > th.TempMax {
		kinds = append(kinds, AlertWarm)
	}
	if lid.OpenSeconds > 0 {
		kinds = append(kinds, AlertLid)
	}
	if r.Humidity != nil && *r.Humidity > th.RHAlert {
		kinds = append(kinds, AlertHumid)
	}
	return kinds
}
