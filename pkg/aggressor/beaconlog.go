package aggressor

import (
	"fmt"

	"agbridge/pkg/javaser"
	"agbridge/pkg/slog"
)

// LogEntry is one beacon log event in a flat shape
type LogEntry struct {
	Type      string `json:"type" yaml:"type"`
	BeaconID  string `json:"beacon_id" yaml:"beacon_id"`
	User      string `json:"user" yaml:"user"`
	Command   string `json:"command" yaml:"command"`
	Result    string `json:"result" yaml:"result"`
	Timestamp string `json:"timestamp" yaml:"timestamp"`
}

// Field positions per event type. Inputs carry the operator and the command,
// every other known type carries a single result.
var (
	logInputTypes = map[string]bool{
		"beacon_input": true,
	}
	logResultTypes = map[string]bool{
		"beacon_checkin":     true,
		"beacon_tasked":      true,
		"beacon_output":      true,
		"beacon_output_alt":  true,
		"beacon_output_ls":   true,
		"beacon_output_ps":   true,
		"beacon_output_jobs": true,
		"beacon_error":       true,
	}
)

// ParseLogEntry flattens one raw beacon log event. Unknown event types only
// keep their type and beacon id.
func ParseLogEntry(v javaser.Value) (LogEntry, error) {
	if v.Kind() != javaser.KindList || v.Len() < 2 {
		return LogEntry{}, fmt.Errorf("malformed beacon log event: %s", v)
	}
	field := func(i int) string {
		if i >= v.Len() {
			return ""
		}
		return text(v.Index(i))
	}

	e := LogEntry{Type: field(0), BeaconID: field(1)}
	switch {
	case logInputTypes[e.Type]:
		e.User = field(2)
		e.Command = field(3)
		e.Timestamp = field(4)
	case logResultTypes[e.Type]:
		e.Result = field(2)
		e.Timestamp = field(3)
	}
	return e, nil
}

// BeaconLog returns the beacon log events kept by the team server
func (t *TeamServer) BeaconLog() ([]LogEntry, error) {
	v, err := t.Eval(`return data_query("beaconlog")`)
	if err != nil {
		return nil, err
	}
	if v.IsNull() {
		return nil, nil
	}
	if v.Kind() != javaser.KindList {
		return nil, fmt.Errorf("beaconlog: expected a list, got %s", v.Kind())
	}

	entries := make([]LogEntry, 0, v.Len())
	for _, item := range v.List() {
		e, err := ParseLogEntry(item)
		if err != nil {
			t.log.WarnWith("Skipping beacon log event", slog.F("err", err))
			continue
		}
		if !logInputTypes[e.Type] && !logResultTypes[e.Type] {
			t.log.DebugWith("Unknown beacon log type", slog.F("type", e.Type))
		}
		entries = append(entries, e)
	}
	return entries, nil
}
