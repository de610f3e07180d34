package slog

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

const (
	levelDebug = iota
	levelInfo
	levelWarn
	levelError
	levelFatal
	levelOff
)

const separator = " - "

var levelNames = map[int]string{
	levelDebug: "DEBU",
	levelInfo:  "INFO",
	levelWarn:  "WARN",
	levelError: "ERRO",
	levelFatal: "FATA",
}

// Field is a key/value pair attached to a structured log line
type Field struct {
	Key   string
	Value interface{}
}

// F builds a Field
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

type logConfig struct {
	mu         sync.Mutex
	logLevel   int
	colorOn    bool
	jsonOn     bool
	callerInfo bool
	prefix     string
	logger     *log.Logger
}

// Logger is safe for concurrent use. Copies returned by WithCaller share
// the configuration of the Logger they come from.
type Logger struct {
	*logConfig
	withCaller bool
}

func NewLogger(prefix string) *Logger {
	return &Logger{
		logConfig: &logConfig{
			logLevel: levelInfo,
			prefix:   prefix,
			logger:   log.New(os.Stdout, "", log.LstdFlags),
		},
	}
}

// NewDummyLog returns a Logger that discards everything
func NewDummyLog() *Logger {
	l := NewLogger("")
	l.logger.SetOutput(io.Discard)
	l.logLevel = levelOff
	return l
}

func (l *Logger) WithDebug() {
	l.setLevel(levelDebug)
}

func (l *Logger) WithInfo() {
	l.setLevel(levelInfo)
}

func (l *Logger) WithWarn() {
	l.setLevel(levelWarn)
}

func (l *Logger) WithError() {
	l.setLevel(levelError)
}

func (l *Logger) setLevel(level int) {
	l.mu.Lock()
	l.logLevel = level
	l.mu.Unlock()
}

// WithColors enables colored level tags on text output
func (l *Logger) WithColors(on bool) {
	l.mu.Lock()
	l.colorOn = on
	l.mu.Unlock()
}

// WithJSON switches the output to one JSON object per line
func (l *Logger) WithJSON(on bool) {
	l.mu.Lock()
	l.jsonOn = on
	if on {
		l.logger.SetFlags(0)
	} else {
		l.logger.SetFlags(log.LstdFlags)
	}
	l.mu.Unlock()
}

// WithCallerInfo allows lines logged through WithCaller to carry file:line
func (l *Logger) WithCallerInfo(on bool) {
	l.mu.Lock()
	l.callerInfo = on
	l.mu.Unlock()
}

// WithCaller returns a Logger whose next lines report the calling location,
// provided caller info was enabled with WithCallerInfo.
func (l *Logger) WithCaller() *Logger {
	return &Logger{logConfig: l.logConfig, withCaller: true}
}

func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	l.logger.SetOutput(w)
	l.mu.Unlock()
}

func (l *Logger) SetLevel(verbosity string) error {
	switch strings.ToUpper(verbosity) {
	case "DEBUG":
		l.WithDebug()
	case "INFO":
		l.WithInfo()
	case "WARN":
		l.WithWarn()
	case "ERROR":
		l.WithError()
	case "OFF":
		l.setLevel(levelOff)
	default:
		return fmt.Errorf("incorrect log level, expected one of [debug|info|warn|error|off]")
	}
	return nil
}

func (l *Logger) Printf(t string, args ...interface{}) {
	l.output(levelInfo, fmt.Sprintf(t, args...), nil)
}

func (l *Logger) Debugf(t string, args ...interface{}) {
	l.output(levelDebug, fmt.Sprintf(t, args...), nil)
}

func (l *Logger) Infof(t string, args ...interface{}) {
	l.output(levelInfo, fmt.Sprintf(t, args...), nil)
}

func (l *Logger) Warnf(t string, args ...interface{}) {
	l.output(levelWarn, fmt.Sprintf(t, args...), nil)
}

func (l *Logger) Errorf(t string, args ...interface{}) {
	l.output(levelError, fmt.Sprintf(t, args...), nil)
}

func (l *Logger) Fatalf(t string, args ...interface{}) {
	l.output(levelFatal, fmt.Sprintf(t, args...), nil)
	os.Exit(1)
}

func (l *Logger) DebugWith(msg string, fields ...Field) {
	l.output(levelDebug, msg, fields)
}

func (l *Logger) InfoWith(msg string, fields ...Field) {
	l.output(levelInfo, msg, fields)
}

func (l *Logger) WarnWith(msg string, fields ...Field) {
	l.output(levelWarn, msg, fields)
}

func (l *Logger) ErrorWith(msg string, fields ...Field) {
	l.output(levelError, msg, fields)
}

func (l *Logger) FatalWith(msg string, fields ...Field) {
	l.output(levelFatal, msg, fields)
	os.Exit(1)
}

func (l *Logger) output(level int, msg string, fields []Field) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.logLevel || l.logLevel == levelOff {
		return
	}

	caller := ""
	if l.withCaller && l.callerInfo {
		// 0: output, 1: exported method, 2: caller
		if _, file, line, ok := runtime.Caller(2); ok {
			caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
		}
	}

	if l.jsonOn {
		entry := map[string]interface{}{
			"time":  time.Now().Format(time.RFC3339),
			"level": levelNames[level],
			"msg":   msg,
		}
		if l.prefix != "" {
			entry["prefix"] = l.prefix
		}
		if caller != "" {
			entry["caller"] = caller
		}
		for _, f := range fields {
			entry[f.Key] = jsonValue(f.Value)
		}
		b, err := json.Marshal(entry)
		if err != nil {
			b = []byte(fmt.Sprintf(`{"level":%q,"msg":%q,"err":%q}`, levelNames[level], msg, err))
		}
		l.logger.Print(string(b))
		return
	}

	var sb strings.Builder
	if l.prefix != "" {
		sb.WriteString(l.prefix + " ")
	}
	sb.WriteString(colorLevel(level, l.colorOn))
	if caller != "" {
		sb.WriteString(" " + colorGreyOut(caller, l.colorOn))
	}
	sb.WriteString(separator + msg)
	for _, f := range fields {
		sb.WriteString(" " + colorGreyOut(f.Key+"=", l.colorOn) + fmt.Sprintf("%v", f.Value))
	}
	l.logger.Print(sb.String())
}

// jsonValue keeps errors readable, json.Marshal renders them as {}
func jsonValue(v interface{}) interface{} {
	switch t := v.(type) {
	case error:
		return t.Error()
	case fmt.Stringer:
		return t.String()
	}
	return v
}
