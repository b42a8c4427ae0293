package config

import (
	"os"
)

// FileSystem abstracts the filesystem operations the settings source needs.
// Injecting it keeps the resolver testable without touching the real disk.
type FileSystem interface {
	// ReadFile reads the named file and returns its contents
	ReadFile(filename string) ([]byte, error)

	// Stat returns a FileInfo describing the named file
	Stat(filename string) (os.FileInfo, error)

	// UserHomeDir returns the current user's home directory
	UserHomeDir() (string, error)

	// UserConfigDir returns the current user's config directory
	UserConfigDir() (string, error)

	// Getwd returns the current working directory
	Getwd() (string, error)
}

// OsFileSystem implements FileSystem using the real operating system.
// This is used in production.
type OsFileSystem struct{}

// ReadFile implements FileSystem.ReadFile using os.ReadFile
func (fs *OsFileSystem) ReadFile(filename string) ([]byte, error) {
	return os.ReadFile(filename)
}

// Stat implements FileSystem.Stat using os.Stat
func (fs *OsFileSystem) Stat(filename string) (os.FileInfo, error) {
	return os.Stat(filename)
}

// UserHomeDir implements FileSystem.UserHomeDir using os.UserHomeDir
func (fs *OsFileSystem) UserHomeDir() (string, error) {
	return os.UserHomeDir()
}

// UserConfigDir implements FileSystem.UserConfigDir using os.UserConfigDir
func (fs *OsFileSystem) UserConfigDir() (string, error) {
	return os.UserConfigDir()
}

// Getwd implements FileSystem.Getwd using os.Getwd
func (fs *OsFileSystem) Getwd() (string, error) {
	return os.Getwd()
}
