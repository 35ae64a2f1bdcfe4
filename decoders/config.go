package decoders

import (
	"fmt"
	"regexp"
	"strings"
)

// Setting is one configuration value as reported by the board
type Setting struct {
	Source  string `json:"source"`
	Setting string `json:"setting"`
	Value   string `json:"value"`
}

var (
	configMissingPattern = regexp.MustCompile(`(.*): (.*) is not in config`)
	configGetPattern     = regexp.MustCompile(`(.*): (.*) is set to (.*)`)
	configSetPattern     = regexp.MustCompile(`(.*): (.*) has been set to (.*)`)
	configSourcePattern  = regexp.MustCompile(`(.*) source does not exist`)
	configSpacePattern   = regexp.MustCompile(`(.*): (.*) not enough space`)
	savePattern          = regexp.MustCompile(`^Settings Stored to (.*)`)
)

func source(s string) string {
	s = strings.TrimSpace(s)
	if s == "cached" {
		return "cache"
	}
	return s
}

// ConfigGet decodes "config-get [source] setting".
func ConfigGet(text string, _ []string) (any, error) {
	text = strings.TrimSpace(text)

	if m := configMissingPattern.FindStringSubmatch(text); m != nil {
		return nil, fmt.Errorf("setting %q in %q: %w", strings.TrimSpace(m[2]), source(m[1]), ErrNotFound)
	}

	m := configGetPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, unknown(text)
	}
	return Setting{
		Source:  source(m[1]),
		Setting: strings.TrimSpace(m[2]),
		Value:   strings.TrimSpace(m[3]),
	}, nil
}

// ConfigSet decodes "config-set source setting value".
func ConfigSet(text string, _ []string) (any, error) {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "Usage: config-set") {
		return nil, fmt.Errorf("%w: config-set source setting value", ErrUsage)
	}
	if m := configSetPattern.FindStringSubmatch(text); m != nil {
		return Setting{
			Source:  source(m[1]),
			Setting: strings.TrimSpace(m[2]),
			Value:   strings.TrimSpace(m[3]),
		}, nil
	}
	if m := configSourcePattern.FindStringSubmatch(text); m != nil {
		return nil, fmt.Errorf("source %q: %w", strings.TrimSpace(m[1]), ErrNotFound)
	}
	if m := configSpacePattern.FindStringSubmatch(text); m != nil {
		return nil, fmt.Errorf("not enough space in %q to overwrite %q", strings.TrimSpace(m[1]), strings.TrimSpace(m[2]))
	}
	return nil, unknown(text)
}

// Save decodes the save command and returns the file settings went to.
func Save(text string, _ []string) (any, error) {
	m := savePattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return nil, unknown(text)
	}
	return strings.TrimSpace(m[1]), nil
}
