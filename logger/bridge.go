package logger

import (
	"fmt"
	"strings"
)

// Bridge routes the logging interfaces of third-party libraries (resty's Logger and
// robfig/cron's Logger) into this package.
type Bridge struct {
	Prefix string
}

func (b Bridge) prefixed(msg string) string {
	if b.Prefix == "" {
		return msg
	}
	return b.Prefix + ": " + msg
}

func (b Bridge) Errorf(format string, v ...any) {
	Error(b.prefixed(fmt.Sprintf(format, v...)))
}

func (b Bridge) Warnf(format string, v ...any) {
	Warning(b.prefixed(fmt.Sprintf(format, v...)))
}

func (b Bridge) Debugf(format string, v ...any) {
	Debug(b.prefixed(fmt.Sprintf(format, v...)))
}

// Info implements cron.Logger. cron reports routine scheduling at this level, so it is
// logged at debug.
func (b Bridge) Info(msg string, keysAndValues ...any) {
	Debug(b.prefixed(msg + formatKV(keysAndValues)))
}

// Error implements cron.Logger.
func (b Bridge) Error(err error, msg string, keysAndValues ...any) {
	Error(b.prefixed(fmt.Sprintf("%s%s: %v", msg, formatKV(keysAndValues), err)))
}

func formatKV(kv []any) string {
	if len(kv) == 0 {
		return ""
	}
	var sb strings.Builder
	for i := 0; i < len(kv); i += 2 {
		sb.WriteByte(' ')
		if i+1 < len(kv) {
			fmt.Fprintf(&sb, "%v=%v", kv[i], kv[i+1])
		} else {
			fmt.Fprintf(&sb, "%v", kv[i])
		}
	}
	return sb.String()
}
