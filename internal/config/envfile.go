package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// envFileNames are read in order; earlier files win because a variable is
// only set when still empty.
var envFileNames = []string{".env.local", ".env"}

// loadEnvFiles applies env files from the working directory and from the
// executable's directory. The real environment always wins.
func loadEnvFiles() {
	for _, path := range envFilePaths() {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		applyEnvFile(data)
	}
}

func envFilePaths() []string {
	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	var paths []string
	for _, dir := range lo.Uniq(dirs) {
		for _, name := range envFileNames {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths
}

func applyEnvFile(data []byte) {
	for key, value := range parseEnvFile(data) {
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, value)
		}
	}
}

// parseEnvFile reads KEY=value lines. Blank lines, comments and lines without
// a key are skipped; an "export " prefix and surrounding quotes are dropped.
func parseEnvFile(data []byte) map[string]string {
	vars := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		vars[key] = strings.Trim(strings.TrimSpace(value), `"'`)
	}
	return vars
}
