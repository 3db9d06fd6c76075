package texlog

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// maxLineSize bounds a single log line. TeX wraps its own output well below
// this, but package authors can write arbitrarily long lines.
const maxLineSize = 1 << 20

// ReadLines returns the non-empty lines of r in order. A trailing carriage
// return is dropped from each line.
func ReadLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var lines []string
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// ReadFile reads the non-empty lines of the log at path.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLines(f)
}
