package testutil

import (
	"path/filepath"
	"runtime"
)

// FixturePath returns the absolute path of a file under testutil/testdata,
// so tests in any package can load the shared fixtures.
func FixturePath(name string) string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		panic("testutil: cannot locate source directory")
	}
	return filepath.Join(filepath.Dir(file), "testdata", name)
}
