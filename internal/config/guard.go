package config

import "fmt"

// Guard is a boolean predicate over system state. Exactly one field is set.
type Guard struct {
	FileExists      string `yaml:"file_exists,omitempty"`
	DirectoryExists string `yaml:"directory_exists,omitempty"`
	ProcessRunning  string `yaml:"process_running,omitempty"`
	Command         string `yaml:"command,omitempty"`
}

// Kind returns the predicate name, or an empty string when none is set.
func (g Guard) Kind() string {
	switch {
	case g.FileExists != "":
		return "file_exists"
	case g.DirectoryExists != "":
		return "directory_exists"
	case g.ProcessRunning != "":
		return "process_running"
	case g.Command != "":
		return "command"
	}
	return ""
}

func (g Guard) predicates() int {
	n := 0
	for _, v := range []string{g.FileExists, g.DirectoryExists, g.ProcessRunning, g.Command} {
		if v != "" {
			n++
		}
	}
	return n
}

// Describe renders the guard for logs and plans.
func (g Guard) Describe() string {
	switch g.Kind() {
	case "file_exists":
		return fmt.Sprintf("file_exists(%s)", g.FileExists)
	case "directory_exists":
		return fmt.Sprintf("directory_exists(%s)", g.DirectoryExists)
	case "process_running":
		return fmt.Sprintf("process_running(%s)", g.ProcessRunning)
	case "command":
		return fmt.Sprintf("command(%s)", g.Command)
	}
	return "empty guard"
}
