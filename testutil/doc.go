// Package testutil holds test helpers shared across packages: component
// lifecycle setup bound to testing.T, polling assertions for asynchronous
// work, and a scripted process.Runner for adapters that shell out.
//
// Basic usage with automatic cleanup:
//
//	func TestPool(t *testing.T) {
//	    testutil.T(t).Setup(pool)
//	    testutil.Eventually(t, time.Second, func() bool { return done.Load() })
//	}
//
// Scripting a subprocess:
//
//	runner := testutil.NewRunner()
//	runner.Handle("yt-dlp", func(cmd process.Command) (*process.Result, error) {
//	    testutil.EmitStdout(cmd, "[download]  42.0% of 3.2MiB")
//	    return testutil.Exit(0, "", ""), nil
//	})
package testutil
