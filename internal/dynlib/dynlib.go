//go:build darwin || linux

// Package dynlib locates and dlopens shared libraries through purego.
package dynlib

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"
)

// Library describes a shared library to search for.
type Library struct {
	// Base is the name without prefix or extension, e.g. "media_h264".
	Base string
	// Versions are sonames tried after the unversioned name on Linux,
	// e.g. "59" for libavutil.so.59.
	Versions []string
	// PathEnv names a variable holding the full path of the library.
	PathEnv string
	// DirEnv names a variable holding a directory containing the library.
	DirEnv string
}

// FileName returns the platform file name of the library.
func (l Library) FileName() string {
	if runtime.GOOS == "darwin" {
		return "lib" + l.Base + ".dylib"
	}
	return "lib" + l.Base + ".so"
}

// Paths returns candidate paths, highest priority first.
func (l Library) Paths() []string {
	var paths []string
	name := l.FileName()

	// Environment variable overrides (highest priority)
	if l.PathEnv != "" {
		if p := os.Getenv(l.PathEnv); p != "" {
			paths = append(paths, p)
		}
	}
	if l.DirEnv != "" {
		if d := os.Getenv(l.DirEnv); d != "" {
			paths = append(paths, filepath.Join(d, name))
		}
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, name),
			filepath.Join(exeDir, "..", "lib", name),
		)
	}

	if root := FindModuleRoot(); root != "" {
		paths = append(paths,
			filepath.Join(root, "build", name),
			filepath.Join(root, "build", "ffi", name),
		)
	}

	// System paths (lowest priority); bare names go through the loader search.
	paths = append(paths, name)
	for _, v := range l.Versions {
		if runtime.GOOS == "darwin" {
			paths = append(paths, "lib"+l.Base+"."+v+".dylib")
		} else {
			paths = append(paths, name+"."+v)
		}
	}
	switch runtime.GOOS {
	case "darwin":
		paths = append(paths,
			filepath.Join("/usr/local/lib", name),
			filepath.Join("/opt/homebrew/lib", name),
		)
	case "linux":
		paths = append(paths,
			filepath.Join("/usr/local/lib", name),
			filepath.Join("/usr/lib", name),
		)
	}
	return paths
}

// Open dlopens the first candidate path that loads.
func (l Library) Open() (uintptr, error) {
	var lastErr error
	for _, path := range l.Paths() {
		handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err == nil {
			return handle, nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return 0, fmt.Errorf("failed to load %s: %w", l.FileName(), lastErr)
	}
	return 0, errors.New(l.FileName() + " not found in any standard location")
}

// GoString converts a NUL terminated C string to a Go string.
func GoString(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	p := unsafe.Pointer(ptr)
	var length int
	for *(*byte)(unsafe.Add(p, length)) != 0 {
		length++
		if length > 1024 { // Safety limit
			break
		}
	}
	if length == 0 {
		return ""
	}
	return string(unsafe.Slice((*byte)(p), length))
}

// FindModuleRoot walks up from the working directory to the directory
// containing go.mod.
func FindModuleRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
