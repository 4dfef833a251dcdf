package util

import (
	"log/slog"
	"os"
)

// CloseFileFunc closes f and logs instead of returning the error; used in
// defers on read/write paths where the primary error already wins.
func CloseFileFunc(f *os.File) {
	if err := f.Close(); err != nil {
		slog.Error("close file", "path", f.Name(), "err", err)
	}
}
