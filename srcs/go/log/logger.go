package log

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/config"
	"k8s.io/klog/v2"
)

type Level int32

const (
	Trace Level = iota
	Debug Level = iota
	Info  Level = iota
	Warn  Level = iota
	Error Level = iota
)

var levelNames = map[string]Level{
	"TRACE": Trace,
	"DEBUG": Debug,
	"INFO":  Info,
	"WARN":  Warn,
	"ERROR": Error,
}

// klog verbosity used for the two levels below Info.
const (
	debugV klog.Level = 1
	traceV klog.Level = 3
)

var (
	flagsOnce sync.Once
	klogFlags *flag.FlagSet
)

func klogFlagSet() *flag.FlagSet {
	flagsOnce.Do(func() {
		klogFlags = flag.NewFlagSet("klog", flag.ContinueOnError)
		klog.InitFlags(klogFlags)
	})
	return klogFlags
}

func init() {
	if l, ok := levelNames[config.LogLevel]; ok {
		SetLevel(l)
	}
}

// Logger prefixes every record, e.g. with the rank it belongs to.
type Logger struct {
	prefix string
}

var std = New("")

func New(prefix string) *Logger {
	if len(prefix) > 0 {
		prefix = prefix + " "
	}
	return &Logger{prefix: prefix}
}

type severity int

const (
	sevInfo severity = iota
	sevWarning
	sevError
	sevExit
)

func (l *Logger) output(depth int, sev severity, format string, v ...interface{}) {
	msg := l.prefix + fmt.Sprintf(format, v...)
	switch sev {
	case sevWarning:
		klog.WarningDepth(depth+1, msg)
	case sevError:
		klog.ErrorDepth(depth+1, msg)
	case sevExit:
		klog.ExitDepth(depth+1, msg)
	default:
		klog.InfoDepth(depth+1, msg)
	}
}

func (l *Logger) Tracef(format string, v ...interface{}) {
	if klog.V(traceV).Enabled() {
		l.output(1, sevInfo, format, v...)
	}
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	if klog.V(debugV).Enabled() {
		l.output(1, sevInfo, format, v...)
	}
}

func (l *Logger) Infof(format string, v ...interface{}) {
	l.output(1, sevInfo, format, v...)
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.output(1, sevWarning, format, v...)
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.output(1, sevError, format, v...)
}

// Exitf logs and terminates the process with exit code 1.
func (l *Logger) Exitf(format string, v ...interface{}) {
	l.output(1, sevExit, format, v...)
}

// SetLevel sets the minimum level that is written.
func SetLevel(l Level) {
	fs := klogFlagSet()
	switch l {
	case Trace:
		fs.Set("v", strconv.Itoa(int(traceV)))
	case Debug:
		fs.Set("v", strconv.Itoa(int(debugV)))
	default:
		fs.Set("v", "0")
	}
	switch l {
	case Warn:
		fs.Set("stderrthreshold", "WARNING")
	case Error:
		fs.Set("stderrthreshold", "ERROR")
	}
}

// SetOutput redirects all records to w instead of stderr.
func SetOutput(w io.Writer) {
	fs := klogFlagSet()
	fs.Set("logtostderr", "false")
	fs.Set("alsologtostderr", "false")
	klog.SetOutput(w)
}

func Flush() {
	klog.Flush()
}

func Tracef(format string, v ...interface{}) {
	if klog.V(traceV).Enabled() {
		std.output(1, sevInfo, format, v...)
	}
}

func Debugf(format string, v ...interface{}) {
	if klog.V(debugV).Enabled() {
		std.output(1, sevInfo, format, v...)
	}
}

func Infof(format string, v ...interface{})  { std.output(1, sevInfo, format, v...) }
func Warnf(format string, v ...interface{})  { std.output(1, sevWarning, format, v...) }
func Errorf(format string, v ...interface{}) { std.output(1, sevError, format, v...) }
func Exitf(format string, v ...interface{})  { std.output(1, sevExit, format, v...) }
