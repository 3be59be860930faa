//go:build windows

package config

// withConfigLock is a no-op on Windows; config writes are already atomic
// via temp file + rename, so concurrent writers lose updates but never
// corrupt the file.
func withConfigLock(baseDir string, fn func() error) error {
	return fn()
}
