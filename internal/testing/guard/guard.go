// Package guard switches the binaries into test mode when imported from a
// test, so calling main() does not dial Postgres or Redis.
package guard

import (
	"os"
	"sync"
)

// Env is the variable the binaries consult before starting.
const Env = "BACKOFFICE_TEST_MODE"

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv(Env) == "" {
			_ = os.Setenv(Env, "1")
		}
	})
}
