package config

import "strings"

var defaultActions = map[string]string{
	TypePackage:   "install",
	TypeFile:      "create",
	TypeDirectory: "create",
	TypeUser:      "create",
	TypeGroup:     "create",
	TypeService:   "manage",
	TypeCron:      "create",
	TypeShell:     "run",
	TypeSymlink:   "create",
	TypeArtifact:  "discover",
	TypeGit:       "sync",
}

var allowedActions = map[string][]string{
	TypePackage:   {"install", "remove"},
	TypeFile:      {"create", "delete"},
	TypeDirectory: {"create", "delete"},
	TypeUser:      {"create", "remove"},
	TypeGroup:     {"create", "remove"},
	TypeService:   {"manage"},
	TypeCron:      {"create", "delete"},
	TypeShell:     {"run"},
	TypeSymlink:   {"create", "delete"},
	TypeArtifact:  {"discover"},
	TypeGit:       {"sync"},
}

// PackageResource installs or removes apt packages.
type PackageResource struct {
	Packages []string `yaml:"packages" validate:"required,min=1,dive,required"`
	Update   bool     `yaml:"update,omitempty"`
}

// FileResource manages a regular file's content and metadata.
type FileResource struct {
	Path    string            `yaml:"path" validate:"required"`
	Content *string           `yaml:"content,omitempty"`
	Source  string            `yaml:"source,omitempty"`
	Vars    map[string]string `yaml:"vars,omitempty"`
	Mode    string            `yaml:"mode,omitempty" validate:"omitempty,file_mode"`
	Owner   string            `yaml:"owner,omitempty"`
	Group   string            `yaml:"group,omitempty"`
}

// ManagesContent reports whether the file declares its content.
func (f *FileResource) ManagesContent() bool {
	return f.Content != nil || f.Source != ""
}

// DirectoryResource manages a directory.
type DirectoryResource struct {
	Path      string `yaml:"path" validate:"required"`
	Mode      string `yaml:"mode,omitempty" validate:"omitempty,file_mode"`
	Owner     string `yaml:"owner,omitempty"`
	Group     string `yaml:"group,omitempty"`
	Recursive bool   `yaml:"recursive,omitempty"`
}

// UserResource manages a local account. Passwords come only from a secret reference.
type UserResource struct {
	Username       string `yaml:"username" validate:"required"`
	Comment        string `yaml:"comment,omitempty"`
	Home           string `yaml:"home,omitempty"`
	Shell          string `yaml:"shell,omitempty"`
	ManageHome     bool   `yaml:"manage_home,omitempty"`
	GID            string `yaml:"gid,omitempty"`
	PasswordSecret string `yaml:"password_secret,omitempty"`

	// LiteralPassword is set when the declaration carried an inline password.
	LiteralPassword bool `yaml:"-"`
}

// GroupResource manages a local group and its members.
type GroupResource struct {
	GroupName string   `yaml:"group_name" validate:"required"`
	GID       *int     `yaml:"gid,omitempty" validate:"omitempty,min=0"`
	Members   []string `yaml:"members,omitempty" validate:"omitempty,dive,required"`
}

// ServiceResource manages a systemd unit.
type ServiceResource struct {
	ServiceName string   `yaml:"service_name" validate:"required"`
	Actions     []string `yaml:"actions" validate:"required,min=1,dive,oneof=enable disable start stop restart reload"`
	Unit        string   `yaml:"unit,omitempty"`
}

// HasAction reports whether the service declares the given action.
func (s *ServiceResource) HasAction(action string) bool {
	for _, a := range s.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// CronResource manages one entry in a user's crontab.
type CronResource struct {
	CronName string `yaml:"cron_name"`
	Minute   string `yaml:"minute,omitempty" validate:"cron_field"`
	Hour     string `yaml:"hour,omitempty" validate:"cron_field"`
	Day      string `yaml:"day,omitempty" validate:"cron_field"`
	Month    string `yaml:"month,omitempty" validate:"cron_field"`
	Weekday  string `yaml:"weekday,omitempty" validate:"cron_field"`
	Command  string `yaml:"command" validate:"required"`
	User     string `yaml:"user,omitempty"`
}

// Schedule returns the five crontab time fields.
func (c *CronResource) Schedule() string {
	return strings.Join([]string{c.Minute, c.Hour, c.Day, c.Month, c.Weekday}, " ")
}

func (c *CronResource) applyDefaults(id string) {
	if c.CronName == "" {
		c.CronName = id
	}
	for _, field := range []*string{&c.Minute, &c.Hour, &c.Day, &c.Month, &c.Weekday} {
		if strings.TrimSpace(*field) == "" {
			*field = "*"
		}
	}
	if c.User == "" {
		c.User = "root"
	}
}

// ShellResource runs a script through an interpreter.
type ShellResource struct {
	Code        string            `yaml:"code" validate:"required"`
	Cwd         string            `yaml:"cwd,omitempty"`
	Env         map[string]string `yaml:"env,omitempty"`
	Interpreter string            `yaml:"interpreter,omitempty"`
	Creates     string            `yaml:"creates,omitempty"`
}

// InterpreterOrDefault returns the configured interpreter or bash.
func (s *ShellResource) InterpreterOrDefault() string {
	if strings.TrimSpace(s.Interpreter) == "" {
		return "bash"
	}
	return s.Interpreter
}

// SymlinkResource manages a symbolic link. Exactly one of To and ToArtifact is set.
type SymlinkResource struct {
	Path       string `yaml:"path" validate:"required"`
	To         string `yaml:"to,omitempty"`
	ToArtifact string `yaml:"to_artifact,omitempty"`
	Force      bool   `yaml:"force,omitempty"`
}

// ArtifactResource discovers a build output by glob.
type ArtifactResource struct {
	Pattern string `yaml:"pattern" validate:"required"`
	Select  string `yaml:"select,omitempty" validate:"omitempty,oneof=newest first"`
}

// SelectOrDefault returns the selection strategy, newest when unset.
func (a *ArtifactResource) SelectOrDefault() string {
	if a.Select == "" {
		return "newest"
	}
	return a.Select
}

// GitResource keeps a working copy of a repository.
type GitResource struct {
	URL         string `yaml:"url" validate:"required,git_url"`
	Destination string `yaml:"destination" validate:"required"`
	Branch      string `yaml:"branch,omitempty"`
	Depth       int    `yaml:"depth,omitempty" validate:"omitempty,min=1"`
}
