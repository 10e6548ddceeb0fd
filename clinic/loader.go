package clinic

import (
	"encoding/json"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format represents a profile file format.
type Format string

const (
	FormatYAML    Format = "yaml"
	FormatJSON    Format = "json"
	FormatUnknown Format = "unknown"
)

// LoadProfile loads and validates a profile from a file, auto-detecting
// the format. An empty path returns the compiled-in default.
func LoadProfile(path string) (*Profile, error) {
	if path == "" {
		return DefaultProfile(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound(path)
		}
		return nil, ErrFileRead(path, err)
	}

	profile, err := ParseProfile(data, DetectFormat(path, data))
	if err != nil {
		return nil, err
	}

	if err := ValidateProfile(profile); err != nil {
		return nil, err
	}

	return profile, nil
}

// ParseProfile parses profile bytes with the given format.
func ParseProfile(data []byte, format Format) (*Profile, error) {
	var profile Profile

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return nil, ErrInvalidYAML(err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &profile); err != nil {
			return nil, ErrInvalidJSON(err)
		}
	default:
		// Try JSON first, then YAML.
		if err := json.Unmarshal(data, &profile); err != nil {
			if err := yaml.Unmarshal(data, &profile); err != nil {
				return nil, ErrInvalidYAML(err)
			}
		}
	}

	return &profile, nil
}

// DetectFormat detects the format from the file extension or content.
func DetectFormat(path string, data []byte) Format {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".json") {
		return FormatJSON
	}
	if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") {
		return FormatYAML
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return FormatJSON
	}

	return FormatYAML
}
