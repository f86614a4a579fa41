package parser

import (
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"www.velocidex.com/golang/ntfsmon/logging"
)

func Debug(arg interface{}) {
	spew.Dump(arg)
}

type Debugger interface {
	DebugString() string
}

func DebugString(arg interface{}, indent string) string {
	debugger, ok := arg.(Debugger)
	if ok {
		lines := strings.Split(debugger.DebugString(), "\n")
		for idx, line := range lines {
			lines[idx] = indent + line
		}
		return strings.Join(lines, "\n")
	}

	return ""
}

// DebugPrint goes to the debug level of the process logger. Set
// NTFS_DEBUG in the environment to see it without a config change.
func DebugPrint(fmt_str string, v ...interface{}) {
	logging.GetLogger().Debug(strings.TrimRight(fmt.Sprintf(fmt_str, v...), "\n"))
}
