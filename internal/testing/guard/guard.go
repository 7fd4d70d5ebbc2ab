// Package guard flips QRSUB_TEST_MODE on import. Blank-import it from a
// test binary to keep the real entry points from starting servers.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("QRSUB_TEST_MODE") == "" {
			_ = os.Setenv("QRSUB_TEST_MODE", "1")
		}
	})
}
