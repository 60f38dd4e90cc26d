package cronplugin

import "strings"

const markerPrefix = "# converge: "

// Marker returns the comment line that tags a managed entry.
func Marker(name string) string {
	return markerPrefix + name
}

// RenderEntry returns the schedule line of a managed entry.
func RenderEntry(schedule, command string) string {
	return schedule + " " + command
}

// FindEntry returns the line following the marker for name.
func FindEntry(crontab, name string) (string, bool) {
	lines := splitLines(crontab)
	marker := Marker(name)
	for i, line := range lines {
		if line == marker {
			if i+1 < len(lines) {
				return lines[i+1], true
			}
			return "", true
		}
	}
	return "", false
}

// MergeEntry replaces the managed entry for name, or appends it when absent.
// Unmanaged lines are preserved in order.
func MergeEntry(crontab, name, entry string) string {
	lines := splitLines(crontab)
	marker := Marker(name)
	out := make([]string, 0, len(lines)+2)
	replaced := false

	for i := 0; i < len(lines); i++ {
		if lines[i] == marker {
			out = append(out, marker, entry)
			replaced = true
			i++
			continue
		}
		out = append(out, lines[i])
	}
	if !replaced {
		out = append(out, marker, entry)
	}
	return joinLines(out)
}

// RemoveEntry drops the managed entry for name.
func RemoveEntry(crontab, name string) string {
	lines := splitLines(crontab)
	marker := Marker(name)
	out := make([]string, 0, len(lines))

	for i := 0; i < len(lines); i++ {
		if lines[i] == marker {
			i++
			continue
		}
		out = append(out, lines[i])
	}
	return joinLines(out)
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
