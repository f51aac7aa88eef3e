package mailer

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
)

// ErrPropertyKeyEmpty is returned for lines like "=value".
var ErrPropertyKeyEmpty = errors.New("property key is empty")

// ParseProperties reads "key=value" or "key: value" lines.
// Blank lines and lines starting with # or ! are skipped; a line without
// separator is a key with an empty value. Later keys win.
func ParseProperties(text string) (map[string]string, error) {
	props := map[string]string{}

	sc := bufio.NewScanner(strings.NewReader(text))
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' || line[0] == '!' {
			continue
		}

		key, value := line, ""
		if i := strings.IndexAny(line, "=:"); i >= 0 {
			key, value = line[:i], line[i+1:]
		}

		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("line %d: %w", n, ErrPropertyKeyEmpty)
		}

		props[key] = strings.TrimSpace(value)
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read properties: %w", err)
	}

	return props, nil
}
