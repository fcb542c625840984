package phaseshift

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// EnvPhaseDir names the environment variable holding the phase-shift
	// search directory.
	EnvPhaseDir = "CLEED_PHASE"
	// Extension is appended to relative identifiers.
	Extension = ".phs"
)

// PathResolver turns a relative phase-shift identifier into a file path.
type PathResolver interface {
	Resolve(id string) (string, error)
}

// DirResolver resolves identifiers to <Dir>/<id>.phs. A relative Dir is taken
// from the working directory at resolve time.
type DirResolver struct {
	Dir string
}

// Resolve returns absolute identifiers unchanged and the absolute path of
// <Dir>/<id>.phs otherwise.
func (r DirResolver) Resolve(id string) (string, error) {
	if filepath.IsAbs(id) {
		return id, nil
	}
	if r.Dir == "" {
		return "", &ConfigurationError{Setting: EnvPhaseDir, Identifier: id}
	}
	path, err := filepath.Abs(filepath.Join(r.Dir, id+Extension))
	if err != nil {
		return "", fmt.Errorf("resolve phase shifts %q: %w", id, err)
	}
	return path, nil
}

// EnvResolver reads the search directory from CLEED_PHASE once, at call time.
func EnvResolver() DirResolver {
	return DirResolver{Dir: os.Getenv(EnvPhaseDir)}
}

// ConfigurationError is returned for a relative identifier when no search
// directory is configured.
type ConfigurationError struct {
	Setting    string
	Identifier string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("cannot resolve phase shifts %q: %s not defined", e.Identifier, e.Setting)
}

// IndexOutOfRangeError is returned by Table for a handle the repository never
// handed out.
type IndexOutOfRangeError struct {
	Index int
	Len   int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("phase shift index %d out of range [0, %d)", e.Index, e.Len)
}
