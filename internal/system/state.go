package system

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Account is a parsed /etc/passwd entry.
type Account struct {
	Name    string
	UID     int
	GID     int
	Comment string
	Home    string
	Shell   string
}

// GroupEntry is a parsed /etc/group entry.
type GroupEntry struct {
	Name    string
	GID     int
	Members []string
}

// HasMember reports whether the group lists the user.
func (g *GroupEntry) HasMember(user string) bool {
	for _, m := range g.Members {
		if m == user {
			return true
		}
	}
	return false
}

// State answers read-only questions about the host. Lookups return nil, nil when
// the entry does not exist.
type State interface {
	FileExists(path string) (bool, error)
	DirectoryExists(path string) (bool, error)
	ProcessRunning(pattern string) (bool, error)
	LookupUser(name string) (*Account, error)
	LookupGroup(name string) (*GroupEntry, error)
	ShadowHash(user string) (string, error)
}

// LocalState reads the live Linux host.
type LocalState struct {
	PasswdPath string
	GroupPath  string
	ShadowPath string
	ProcRoot   string
}

// NewLocalState returns a LocalState with the standard file locations.
func NewLocalState() *LocalState {
	return &LocalState{
		PasswdPath: "/etc/passwd",
		GroupPath:  "/etc/group",
		ShadowPath: "/etc/shadow",
		ProcRoot:   "/proc",
	}
}

// FileExists reports whether path exists and is not a directory.
func (s *LocalState) FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

// DirectoryExists reports whether path exists and is a directory.
func (s *LocalState) DirectoryExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

// ProcessRunning scans process command lines for pattern, ignoring this process.
func (s *LocalState) ProcessRunning(pattern string) (bool, error) {
	entries, err := os.ReadDir(s.ProcRoot)
	if err != nil {
		return false, fmt.Errorf("scan processes: %w", err)
	}

	self := strconv.Itoa(os.Getpid())
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || name == self {
			continue
		}
		if _, err := strconv.Atoi(name); err != nil {
			continue
		}

		raw, err := os.ReadFile(filepath.Join(s.ProcRoot, name, "cmdline"))
		if err != nil || len(raw) == 0 {
			// processes can exit between listing and reading
			continue
		}
		cmdline := string(bytes.TrimRight(bytes.ReplaceAll(raw, []byte{0}, []byte{' '}), " "))
		if strings.Contains(cmdline, pattern) {
			return true, nil
		}
	}
	return false, nil
}

// LookupUser returns the passwd entry for name.
func (s *LocalState) LookupUser(name string) (*Account, error) {
	var found *Account
	err := scanColonFile(s.PasswdPath, func(fields []string) bool {
		if len(fields) < 7 || fields[0] != name {
			return false
		}
		uid, _ := strconv.Atoi(fields[2])
		gid, _ := strconv.Atoi(fields[3])
		found = &Account{Name: fields[0], UID: uid, GID: gid, Comment: fields[4], Home: fields[5], Shell: fields[6]}
		return true
	})
	return found, err
}

// LookupGroup returns the group entry for name.
func (s *LocalState) LookupGroup(name string) (*GroupEntry, error) {
	var found *GroupEntry
	err := scanColonFile(s.GroupPath, func(fields []string) bool {
		if len(fields) < 4 || fields[0] != name {
			return false
		}
		gid, _ := strconv.Atoi(fields[2])
		found = &GroupEntry{Name: fields[0], GID: gid, Members: splitMembers(fields[3])}
		return true
	})
	return found, err
}

// ShadowHash returns the stored password hash for user, or "" when absent.
func (s *LocalState) ShadowHash(user string) (string, error) {
	var hash string
	err := scanColonFile(s.ShadowPath, func(fields []string) bool {
		if len(fields) < 2 || fields[0] != user {
			return false
		}
		hash = fields[1]
		return true
	})
	return hash, err
}

func scanColonFile(path string, match func(fields []string) bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if match(strings.Split(line, ":")) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

func splitMembers(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	members := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			members = append(members, p)
		}
	}
	return members
}
