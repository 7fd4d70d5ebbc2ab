// Package testing holds the shared entry point for suites that build
// the full application stack. Delegating a package's TestMain here sets
// QRSUB_TEST_MODE before any application code checks it, which keeps
// the real binaries from starting servers inside a test run.
package testing

import (
	"os"
	stdtesting "testing"

	"github.com/Dinesh-Das/QR-sub002/internal/app"
	_ "github.com/Dinesh-Das/QR-sub002/internal/testing/guard"
)

// TestMain runs m with the runtime guard engaged. The guard import sets
// the environment flag at init time; the refresh covers packages that
// probed the flag before this package was initialized.
func TestMain(m *stdtesting.M) {
	app.RefreshTestMode()
	os.Exit(m.Run())
}
