// Package logging builds the hclog loggers used by the server and formats
// the timestamps shared by the access log and the CLI.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
)

// New returns a root logger writing to w (stderr when nil) at the given
// level name. Unknown level names fall back to info.
func New(name, level string, w io.Writer) hclog.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		lvl = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      lvl,
		Output:     w,
		TimeFormat: "2006-01-02 15:04:05.000",
	})
}

// Timestamp renders t as yyyy-MM-dd HH:mm:ss:SSS.
func Timestamp(t time.Time) string {
	return fmt.Sprintf("%s:%03d", t.Format("2006-01-02 15:04:05"), t.Nanosecond()/int(time.Millisecond))
}
