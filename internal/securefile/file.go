package securefile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/quantumauth-io/chain-suggest-agent/internal/constants"
)

// AtomicWriteFile writes data to a sibling tmp file and renames it over path.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"

	_ = os.Remove(tmp)

	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("write tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// WriteJSON marshals v as pretty JSON and writes it atomically to path.
// Creates parent directories with constants.DirectoryPerm.
func WriteJSON[T any](path string, v T) error {
	if err := os.MkdirAll(filepath.Dir(path), constants.DirectoryPerm); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	return AtomicWriteFile(path, b, constants.FilePerm)
}

// ReadJSON reads and unmarshals JSON from path into T.
func ReadJSON[T any](path string) (T, error) {
	var zero T
	b, err := os.ReadFile(path)
	if err != nil {
		return zero, fmt.Errorf("read file: %w", err)
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return zero, fmt.Errorf("unmarshal json: %w", err)
	}
	return out, nil
}

func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ResolvePath returns the first existing candidate for filename, or the
// highest priority candidate when none exist yet.
func ResolvePath(filename string) (string, error) {
	cands, err := ConfigPathCandidates(constants.AppName, filename)
	if err != nil {
		return "", err
	}
	if len(cands) == 0 {
		return "", errors.New("no config path candidates returned")
	}
	for _, p := range cands {
		if Exists(p) {
			return p, nil
		}
	}
	return cands[0], nil
}

// ConfigPathCandidates returns state paths to try, in priority order.
// CSA_ENV optionally adds a local/ or develop/ subfolder.
func ConfigPathCandidates(app, filename string) ([]string, error) {
	if app == "" {
		return nil, errors.New("app must not be empty")
	}
	if filename == "" {
		return nil, errors.New("filename must not be empty")
	}

	envFolder, err := EnvFolder()
	if err != nil {
		return nil, err
	}

	var paths []string
	seen := map[string]bool{}
	add := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		paths = append(paths, p)
	}

	homeStyle := func(home string) string {
		dir := filepath.Join(home, ".config", app)
		if envFolder != "" {
			dir = filepath.Join(dir, envFolder)
		}
		return filepath.Join(dir, filename)
	}

	// snap confinement hides the real home
	if realHome := os.Getenv("SNAP_REAL_HOME"); realHome != "" {
		add(homeStyle(realHome))
	}
	if home := os.Getenv("HOME"); home != "" {
		add(homeStyle(home))
	}

	if dir, err := os.UserConfigDir(); err == nil {
		base := filepath.Join(dir, app)
		if envFolder != "" {
			base = filepath.Join(base, envFolder)
		}
		add(filepath.Join(base, filename))
	} else if len(paths) == 0 {
		return nil, fmt.Errorf("UserConfigDir: %w", err)
	}

	return paths, nil
}

func EnvFolder() (string, error) {
	raw := strings.TrimSpace(os.Getenv(constants.EnvPrefix + "_ENV"))
	switch strings.ToLower(raw) {
	case "", "prod", "production":
		return "", nil
	case "local":
		return "local", nil
	case "dev", "develop", "development":
		return "develop", nil
	default:
		return "", fmt.Errorf("invalid %s_ENV %q (allowed: local, develop, empty)", constants.EnvPrefix, raw)
	}
}
