package config

import (
	"fmt"
	"strings"
	"time"
)

// ParseDuration parses a Go duration string, returning def when s is empty.
// name is only used in the error message.
func ParseDuration(name, s string, def time.Duration) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", name, s)
	}
	return d, nil
}
