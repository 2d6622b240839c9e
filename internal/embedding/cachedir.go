package embedding

import (
	"os"
	"path/filepath"

	"github.com/draco28/pulsedb/pkg/pulseerr"
)

// Output dimension and per-sequence token cap of the two built-in model
// sizes. Any other dimension needs an explicitly supplied model.
const (
	SmallModelDimension = 384
	SmallModelMaxTokens = 256
	LargeModelDimension = 768
	LargeModelMaxTokens = 512
)

// ModelCacheDir returns the platform-appropriate per-user cache
// directory a named model's artifacts (model.onnx, tokenizer.json) live
// under: ~/.cache/pulsedb/models/{name} on Linux, and os.UserCacheDir's
// platform equivalent elsewhere. There is no third-party cache-directory
// library anywhere in this codebase's dependency surface, so this stays
// on os.UserCacheDir rather than inventing a dependency to wrap one stdlib
// call.
func ModelCacheDir(name string) (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", pulseerr.IO("failed to resolve user cache directory", err)
	}
	return filepath.Join(base, "pulsedb", "models", name), nil
}

// EnsureModelCacheDir creates a model's cache directory if missing and
// returns its path.
func EnsureModelCacheDir(name string) (string, error) {
	dir, err := ModelCacheDir(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", pulseerr.IO("failed to create model cache directory", err)
	}
	return dir, nil
}

// HasModelArtifacts reports whether both model.onnx and tokenizer.json
// are already present in dir.
func HasModelArtifacts(dir string) bool {
	for _, name := range []string{"model.onnx", "tokenizer.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}
