package discovery

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
)

//go:embed paths.txt
var defaultPaths string

// DefaultPaths returns the built-in known-path list.
func DefaultPaths() []string {
	paths, _ := ParsePaths(strings.NewReader(defaultPaths))
	return paths
}

// LoadPaths reads the known-path list from file. An empty file name selects
// the built-in list.
func LoadPaths(file string) ([]string, error) {
	if file == "" {
		return DefaultPaths(), nil
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	paths, err := ParsePaths(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	return paths, nil
}

// ParsePaths reads one path per line. Lines starting with '#' are skipped.
// Trailing whitespace is trimmed and blank lines are dropped rather than
// probed as the empty path, so they do not count toward the number of
// probed paths when an endpoint answers every path with 200.
func ParsePaths(r io.Reader) ([]string, error) {
	var paths []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return paths, nil
}
