package intermediate

import (
	"os"

	"github.com/golangplus/errors"
)

// TempPathProvider returns a fresh, unique path in a writable location,
// stable for the lifetime of the Store that requested it. See spec.md §6.
type TempPathProvider func() (string, error)

// defaultTempPathProvider allocates unique paths under dir (the platform
// temp directory when dir is empty) using os.CreateTemp's own uniqueness
// guarantee, then closes and returns just the path — callers reopen it
// themselves via os.Create/os.Open as needed.
func defaultTempPathProvider(dir string) TempPathProvider {
	return func() (string, error) {
		f, err := os.CreateTemp(dir, "mr-intermediate-*.tmp")
		if err != nil {
			return "", errorsp.WithStacksAndMessage(err, "allocate temp file under %q failed", dir)
		}
		path := f.Name()
		if err := f.Close(); err != nil {
			return "", errorsp.WithStacksAndMessage(err, "close freshly allocated temp file %q failed", path)
		}
		return path, nil
	}
}

// removeIfExists deletes path, treating "already gone" as success. Used on
// the Store destruction path (§3 "Destruction must not raise; errors are
// logged and swallowed") and wherever a fragment is consumed.
func removeIfExists(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errorsp.WithStacksAndMessage(err, "remove %q failed", path)
	}
	return nil
}
