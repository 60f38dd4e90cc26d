package plugin

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	releasePattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
	contractRegex  = regexp.MustCompile(`^(\d+)\.x$`)
)

// PluginMetadata describes a provider: which resource type it converges and
// which provider contract it was written against.
type PluginMetadata struct {
	Name        string
	Version     string
	APIVersion  string
	Type        string
	Description string
}

// Validate checks that every metadata field is present and well-formed.
func (m PluginMetadata) Validate() error {
	var problems []string
	if strings.TrimSpace(m.Name) == "" {
		problems = append(problems, "requires a non-empty Name")
	}
	if !releasePattern.MatchString(m.Version) {
		problems = append(problems, fmt.Sprintf("has invalid Version %q (want X.Y.Z)", m.Version))
	}
	if _, err := contractMajor(m.APIVersion); err != nil {
		problems = append(problems, err.Error())
	}
	if strings.TrimSpace(m.Type) == "" {
		problems = append(problems, "requires Type")
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("plugin metadata %q %s", m.Name, strings.Join(problems, "; "))
}

// contractMajor extracts N from an "N.x" contract version.
func contractMajor(v string) (int, error) {
	match := contractRegex.FindStringSubmatch(strings.TrimSpace(v))
	if match == nil {
		return 0, fmt.Errorf("has invalid APIVersion %q (want N.x)", v)
	}
	return strconv.Atoi(match[1])
}
