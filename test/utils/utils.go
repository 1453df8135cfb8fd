package utils

import (
	"math/rand"
	"os"
	"testing"
)

// Mod vals by this value to prevent hardcoding tests
// + 1 is necessary because rand.Int63n(_) can return 0
var Salt int64 = rand.Int63n(1000) + 1

// EnsureCleanup registers fn to run via t.Cleanup, once the test finishes,
// whether it passed or failed (t.Fatal included) - GetTempDbFile registers
// its file removal this way so a failed assertion never leaks a temp db file.
func EnsureCleanup(t *testing.T, fn func()) {
	t.Cleanup(fn)
}

// GetTempDbFile creates a random file in the OS's temporary directory to be used for testing,
// returning the file's name. Once the test is done running, the file is deleted
func GetTempDbFile(t *testing.T) string {
	// file will be created in OS's default temporary directory
	tmpfile, err := os.CreateTemp("", "*.db")
	if err != nil {
		t.Fatal(err)
	}

	// Since os.CreateTemp automatically opens the file, we need to close it
	_ = tmpfile.Close()

	EnsureCleanup(t, func() {
		_ = os.Remove(tmpfile.Name())
	})
	return tmpfile.Name()
}
