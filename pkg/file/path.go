package file

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// EnsureDir creates dir (and parents) if it does not exist.
func EnsureDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("directory path is required")
	}
	return os.MkdirAll(dir, 0o755)
}

// FirstLine returns the first line of path with surrounding whitespace
// stripped. Used to read secrets kept in single-line key files.
func FirstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return "", fmt.Errorf("%s is empty", path)
	}
	return strings.TrimSpace(scanner.Text()), nil
}
