package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Health        string       `json:"health"`
	Temperature   *int         `json:"temperature"`
	Humidity      *uint        `json:"humidity"`
	Tilt          int          `json:"tilt"`
	LidOpen       bool         `json:"lid_open"`
	LidOpenSecs   uint         `json:"lid_open_in_secs"`
	LastSample    string       `json:"last_sample,omitempty"`
	SensorError   string       `json:"sensor_error,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	SampleMs      int64  `json:"sample_ms"`
	ReportMs      int64  `json:"report_ms"`
	Namespace     string `json:"namespace"`
	HTTPAddr      string `json:"http_addr,omitempty"`
	TempMin       int    `json:"temp_min"`
	TempMax       int    `json:"temp_max"`
	RHAlert       uint   `json:"rh_alert"`
	LidMaxOpenSec int64  `json:"lid_max_open_secs"`
}

func buildInner(snap Snapshot) StatusInner {
	tilt := 0
	if snap.Tilt {
		tilt = 1
	}
	inner := StatusInner{
		Health:        string(snap.Status()),
		Temperature:   snap.Reading.Temperature,
		Humidity:      snap.Reading.Humidity,
		Tilt:          tilt,
		LidOpen:       snap.LidOpen,
		LidOpenSecs:   snap.LidOpenSeconds,
		SensorError:   snap.SensorError,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			SampleMs:      snap.Config.SampleMs,
			ReportMs:      snap.Config.ReportMs,
			Namespace:     snap.Config.Namespace,
			HTTPAddr:      snap.Config.HTTPAddr,
			TempMin:       snap.Config.Thresholds.TempMin,
			TempMax:       snap.Config.Thresholds.TempMax,
			RHAlert:       snap.Config.Thresholds.RHAlert,
			LidMaxOpenSec: int64(snap.Config.Thresholds.LidMaxOpen / time.Second),
		},
	}
	if !snap.LastSample.IsZero() {
		inner.LastSample = snap.LastSample.UTC().Format(time.RFC3339)
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
