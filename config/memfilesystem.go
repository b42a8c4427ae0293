package config

import (
	"os"
	"time"
)

// MemFileSystem implements FileSystem backed by an in-memory map.
// This is used in tests to exercise settings-file discovery without disk I/O.
type MemFileSystem struct {
	Files     map[string][]byte
	HomeDir   string
	ConfigDir string
	WorkDir   string
}

// NewMemFileSystem creates an empty in-memory filesystem with sensible
// directory defaults for tests.
func NewMemFileSystem() *MemFileSystem {
	return &MemFileSystem{
		Files:     make(map[string][]byte),
		HomeDir:   "/home/test",
		ConfigDir: "/home/test/.config",
		WorkDir:   "/work",
	}
}

// AddFile registers a file and its contents.
func (fs *MemFileSystem) AddFile(name string, data []byte) {
	fs.Files[name] = data
}

// ReadFile implements FileSystem.ReadFile
func (fs *MemFileSystem) ReadFile(filename string) ([]byte, error) {
	data, ok := fs.Files[filename]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: filename, Err: os.ErrNotExist}
	}
	return data, nil
}

// Stat implements FileSystem.Stat
func (fs *MemFileSystem) Stat(filename string) (os.FileInfo, error) {
	data, ok := fs.Files[filename]
	if !ok {
		return nil, &os.PathError{Op: "stat", Path: filename, Err: os.ErrNotExist}
	}
	return memFileInfo{name: filename, size: int64(len(data))}, nil
}

// UserHomeDir implements FileSystem.UserHomeDir
func (fs *MemFileSystem) UserHomeDir() (string, error) {
	return fs.HomeDir, nil
}

// UserConfigDir implements FileSystem.UserConfigDir
func (fs *MemFileSystem) UserConfigDir() (string, error) {
	return fs.ConfigDir, nil
}

// Getwd implements FileSystem.Getwd
func (fs *MemFileSystem) Getwd() (string, error) {
	return fs.WorkDir, nil
}

// memFileInfo is a minimal os.FileInfo for in-memory files.
type memFileInfo struct {
	name string
	size int64
}

func (fi memFileInfo) Name() string       { return fi.name }
func (fi memFileInfo) Size() int64        { return fi.size }
func (fi memFileInfo) Mode() os.FileMode  { return 0o644 }
func (fi memFileInfo) ModTime() time.Time { return time.Time{} }
func (fi memFileInfo) IsDir() bool        { return false }
func (fi memFileInfo) Sys() interface{}   { return nil }
