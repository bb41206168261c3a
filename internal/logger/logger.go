package logger

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[37m"
)

// PrettyFormatter prints "time LEVEL message key=value" lines.
type PrettyFormatter struct {
	// NoColor drops ANSI escapes, e.g. when writing to a file.
	NoColor bool
}

func (f *PrettyFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer

	b.WriteString(entry.Time.Format(time.TimeOnly))
	b.WriteByte(' ')
	b.WriteString(f.colorizeLevel(entry.Level))
	b.WriteByte(' ')
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if f.NoColor {
			fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
		} else {
			fmt.Fprintf(&b, " %s%s%s=%v", colorGray, k, colorReset, entry.Data[k])
		}
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

func (f *PrettyFormatter) colorizeLevel(level logrus.Level) string {
	var color string
	var name string

	switch level {
	case logrus.TraceLevel, logrus.DebugLevel:
		color = colorBlue
		name = "DEBUG"
	case logrus.InfoLevel:
		color = colorGreen
		name = "INFO"
	case logrus.WarnLevel:
		color = colorYellow
		name = "WARN"
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		color = colorRed
		name = "ERROR"
	default:
		color = colorGray
		name = level.String()
	}

	if f.NoColor {
		return fmt.Sprintf("%-5s", name)
	}
	return fmt.Sprintf("%s%-5s%s", color, name, colorReset)
}

// New returns a logger writing to out at the named level.
func New(out io.Writer, level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(lvl)
	l.SetFormatter(&PrettyFormatter{})
	return l, nil
}
