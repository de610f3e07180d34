package aggressor

import (
	"fmt"
	"time"

	"agbridge/pkg/conf"
	"agbridge/pkg/console"
	"agbridge/pkg/javaser"
	"agbridge/pkg/script"
	"agbridge/pkg/slog"
)

// Caller is the part of rpc.Client the domain calls are built on
type Caller interface {
	Invoke(expression string, timeout time.Duration) (javaser.Value, error)
	SendFireAndForget(cmd string, settle time.Duration) error
	SendAndCaptureText(cmd string, expect console.Matcher, timeout time.Duration) (string, error)
}

// TeamServer exposes team server data and actions through a Caller
type TeamServer struct {
	caller  Caller
	log     *slog.Logger
	Timeout time.Duration
	// PayloadTimeout bounds artifact generation
	PayloadTimeout time.Duration
}

func New(caller Caller, logger *slog.Logger) *TeamServer {
	if logger == nil {
		logger = slog.NewDummyLog()
	}
	return &TeamServer{
		caller:         caller,
		log:            logger,
		Timeout:        conf.Timeout,
		PayloadTimeout: conf.PayloadTimeout,
	}
}

// Record is one row of a data model, every value rendered as text
type Record map[string]string

func text(v javaser.Value) string {
	switch v.Kind() {
	case javaser.KindNull:
		return ""
	case javaser.KindString:
		return v.Str()
	}
	return v.String()
}

// toRecord converts a Map value, other kinds are rejected
func toRecord(v javaser.Value) (Record, error) {
	if v.Kind() != javaser.KindMap {
		return nil, fmt.Errorf("expected a map, got %s", v.Kind())
	}
	r := make(Record, v.Len())
	for _, e := range v.Entries() {
		r[text(e.Key)] = text(e.Value)
	}
	return r, nil
}

func toRecords(v javaser.Value) ([]Record, error) {
	if v.IsNull() {
		return nil, nil
	}
	if v.Kind() != javaser.KindList {
		return nil, fmt.Errorf("expected a list, got %s", v.Kind())
	}
	records := make([]Record, 0, v.Len())
	for _, item := range v.List() {
		r, err := toRecord(item)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

func toStrings(v javaser.Value) ([]string, error) {
	if v.IsNull() {
		return nil, nil
	}
	if v.Kind() != javaser.KindList {
		return nil, fmt.Errorf("expected a list, got %s", v.Kind())
	}
	out := make([]string, 0, v.Len())
	for _, item := range v.List() {
		out = append(out, text(item))
	}
	return out, nil
}

// Eval returns the decoded result of an arbitrary expression
func (t *TeamServer) Eval(expression string) (javaser.Value, error) {
	return t.caller.Invoke(expression, t.Timeout)
}

func (t *TeamServer) records(function string) ([]Record, error) {
	v, err := t.Eval("return " + function + "()")
	if err != nil {
		return nil, err
	}
	records, err := toRecords(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", function, err)
	}
	return records, nil
}

func (t *TeamServer) texts(expression string) ([]string, error) {
	v, err := t.Eval(expression)
	if err != nil {
		return nil, err
	}
	out, err := toStrings(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", expression, err)
	}
	return out, nil
}

func (t *TeamServer) Beacons() ([]Record, error)     { return t.records("beacons") }
func (t *TeamServer) Users() ([]Record, error)       { return t.records("users") }
func (t *TeamServer) Credentials() ([]Record, error) { return t.records("credentials") }
func (t *TeamServer) Hosts() ([]Record, error)       { return t.records("hosts") }
func (t *TeamServer) Sites() ([]Record, error)       { return t.records("sites") }
func (t *TeamServer) Targets() ([]Record, error)     { return t.records("targets") }
func (t *TeamServer) Pivots() ([]Record, error)      { return t.records("pivots") }

// ListenersLocal returns the names of the listeners on this team server
func (t *TeamServer) ListenersLocal() ([]string, error) {
	return t.texts("return listeners_local()")
}

// ListenersStageless returns the names of listeners usable for stageless payloads
func (t *TeamServer) ListenersStageless() ([]string, error) {
	return t.texts("return listeners_stageless()")
}

func (t *TeamServer) ListenerInfo(name string) (Record, error) {
	v, err := t.Eval("return listener_info(" + script.Quote(name) + ")")
	if err != nil {
		return nil, err
	}
	return toRecord(v)
}

func (t *TeamServer) LocalIP() (string, error) {
	v, err := t.Eval("return localip()")
	if err != nil {
		return "", err
	}
	return text(v), nil
}

// LoadScript includes an aggressor script, resolved by the console
// relative to its working directory, and waits for it to load
func (t *TeamServer) LoadScript(path string) error {
	t.log.InfoWith("Loading script", slog.F("path", path))
	return t.caller.SendFireAndForget("include(getFileProper("+script.Quote(path)+"))", conf.SettleLoadScript)
}

// Scripts returns what the console prints when listing its loaded scripts
func (t *TeamServer) Scripts() (string, error) {
	return t.caller.SendAndCaptureText("return ls", nil, t.Timeout)
}
