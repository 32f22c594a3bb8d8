// Package shared holds code used across the salesclean packages that does
// not belong to any single pipeline stage.
//
// The testutil subpackage provides:
//
//   - deterministic raw sales rows and CSV fixture files
//   - a buffered slog handler for asserting on log output
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    path := testutil.WriteValidSalesCSV(t, t.TempDir(), 100)
//	    logger, handler := testutil.NewTestLogger(t)
//	    // ...
//	    testutil.AssertNoErrors(t, handler)
//	}
package shared
