package vtesting

import (
	"runtime/debug"
	"testing"
	"time"
)

func WaitUntil(deadline time.Duration, t *testing.T, cb func() bool) {
	end_time := time.Now().Add(deadline)

	for end_time.After(time.Now()) {
		ok := cb()
		if ok {
			return
		}

		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("Timed out %s", debug.Stack())
}
