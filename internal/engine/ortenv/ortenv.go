// Package ortenv owns the process-wide ONNX Runtime environment shared by the
// sentence embedder and the regression pipeline.
package ortenv

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var env struct {
	once sync.Once
	lib  string
	err  error
}

// Init initializes ONNX Runtime from the shared library at libPath. Only the
// first call has any effect; later calls return the first result, and fail if
// they ask for a different library.
func Init(libPath string) error {
	env.once.Do(func() {
		env.lib = libPath
		ort.SetSharedLibraryPath(libPath)
		env.err = ort.InitializeEnvironment()
	})
	if env.err != nil {
		return fmt.Errorf("onnx: failed to initialize runtime: %w", env.err)
	}
	if libPath != env.lib {
		return fmt.Errorf("onnx: runtime already initialized from %s", env.lib)
	}
	return nil
}

// LibraryName is the platform file name of the ONNX Runtime shared library.
func LibraryName() string {
	switch runtime.GOOS {
	case "darwin":
		return "libonnxruntime.dylib"
	case "windows":
		return "onnxruntime.dll"
	default:
		return "libonnxruntime.so"
	}
}

// FindLibrary returns the first directory in dirs that contains the runtime
// library, joined with the library name.
func FindLibrary(dirs ...string) (string, error) {
	name := LibraryName()
	for _, dir := range dirs {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("onnx: %s not found in %v", name, dirs)
}

// SessionOptions builds session options with the given intra-op thread
// count. Caller must Destroy the result.
func SessionOptions(intraOpThreads int) (*ort.SessionOptions, error) {
	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	if intraOpThreads > 0 {
		if err := opts.SetIntraOpNumThreads(intraOpThreads); err != nil {
			opts.Destroy()
			return nil, fmt.Errorf("onnx: %w", err)
		}
	}
	if err := opts.SetInterOpNumThreads(1); err != nil {
		opts.Destroy()
		return nil, fmt.Errorf("onnx: %w", err)
	}
	return opts, nil
}
