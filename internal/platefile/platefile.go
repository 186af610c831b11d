// Package platefile loads the allow-listed plate file shared by the
// Simulator (its PlateBag) and the Manager (its PlateRegistry seed).
// File loading itself is explicitly out of scope per spec.md §1 ("thin
// collaborators"); this package only does the minimal parsing needed so
// both processes start from the same list.
package platefile

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Load reads one plate per line from path, trimming whitespace and
// truncating/discarding lines that aren't exactly 6 characters after
// trimming — mirroring the original loader's `line[6] = '\0'` truncation
// but rejecting anything shorter outright rather than reading past the
// line.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plate file %q: %w", path, err)
	}
	defer f.Close()

	var plates []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if len(line) > 6 {
			line = line[:6]
		}
		if len(line) != 6 {
			continue
		}
		plates = append(plates, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read plate file %q: %w", path, err)
	}
	return plates, nil
}
