package common

import (
	"runtime"

	"github.com/devlights/gomy/output"
)

// Assert panics with msg (after dumping every goroutine's stack for
// postmortem inspection) when condition does not hold. Reserved for
// invariants the core treats as unrecoverable corruption, never for
// expected failure paths.
func Assert(condition bool, msg string) {
	if !condition {
		dumpStacks()
		panic(msg)
	}
}

func dumpStacks() {
	buf := make([]byte, 1024)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			output.Stdoutl("=== stack-all   ", string(buf[:n]))
			return
		}
		buf = make([]byte, 2*len(buf))
	}
}
