package config

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Resource kinds understood by the engine.
const (
	TypePackage   = "package"
	TypeFile      = "file"
	TypeDirectory = "directory"
	TypeUser      = "user"
	TypeGroup     = "group"
	TypeService   = "service"
	TypeCron      = "cron"
	TypeShell     = "shell"
	TypeSymlink   = "symlink"
	TypeArtifact  = "artifact"
	TypeGit       = "git"
)

// Guard error policies.
const (
	GuardErrorsFail = "fail"
	GuardErrorsSkip = "skip"
)

// Recipe is a named, ordered list of resource declarations.
type Recipe struct {
	Version     string            `yaml:"version" validate:"required,semver"`
	Name        string            `yaml:"name" validate:"required,min=1,max=100"`
	Description string            `yaml:"description,omitempty"`
	Settings    Settings          `yaml:"settings,omitempty"`
	Variables   map[string]string `yaml:"variables,omitempty"`
	Resources   []Resource        `yaml:"resources" validate:"required,min=1,dive"`
	Validations []Validation      `yaml:"validations,omitempty" validate:"omitempty,dive"`

	// Path is the file the recipe was loaded from.
	Path string `yaml:"-"`
}

// Settings holds recipe-wide execution parameters.
type Settings struct {
	Timeout         int    `yaml:"timeout,omitempty" validate:"omitempty,min=1,max=360000"`
	ContinueOnError bool   `yaml:"continue_on_error,omitempty"`
	DryRun          bool   `yaml:"dry_run,omitempty"`
	Verbose         bool   `yaml:"verbose,omitempty"`
	GuardErrors     string `yaml:"guard_errors,omitempty" validate:"omitempty,oneof=fail skip"`
	SecretsRegion   string `yaml:"secrets_region,omitempty"`
}

// GuardErrorPolicy returns the effective policy for guard evaluation failures.
func (s Settings) GuardErrorPolicy() string {
	if s.GuardErrors == "" {
		return GuardErrorsFail
	}
	return s.GuardErrors
}

// Resource is one declared unit of desired state. Type selects exactly one payload.
type Resource struct {
	ID      string  `yaml:"id" validate:"required,resource_id"`
	Name    string  `yaml:"name,omitempty"`
	Type    string  `yaml:"type" validate:"required,oneof=package file directory user group service cron shell symlink artifact git"`
	Action  string  `yaml:"action,omitempty"`
	Enabled bool    `yaml:"enabled,omitempty"`
	OnlyIf  []Guard `yaml:"only_if,omitempty" validate:"omitempty,dive"`
	NotIf   []Guard `yaml:"not_if,omitempty" validate:"omitempty,dive"`

	Package   *PackageResource   `yaml:"-"`
	File      *FileResource      `yaml:"-"`
	Directory *DirectoryResource `yaml:"-"`
	User      *UserResource      `yaml:"-"`
	Group     *GroupResource     `yaml:"-"`
	Service   *ServiceResource   `yaml:"-"`
	Cron      *CronResource      `yaml:"-"`
	Shell     *ShellResource     `yaml:"-"`
	Symlink   *SymlinkResource   `yaml:"-"`
	Artifact  *ArtifactResource  `yaml:"-"`
	Git       *GitResource       `yaml:"-"`
}

// DisplayName returns the human label for the resource.
func (r *Resource) DisplayName() string {
	if strings.TrimSpace(r.Name) != "" {
		return r.Name
	}
	return r.ID
}

// Guarded reports whether the resource declares any guard.
func (r *Resource) Guarded() bool {
	return len(r.OnlyIf) > 0 || len(r.NotIf) > 0
}

// UnmarshalYAML decodes the common fields and then the payload matching Type.
func (r *Resource) UnmarshalYAML(value *yaml.Node) error {
	type baseResource struct {
		ID      string  `yaml:"id"`
		Name    string  `yaml:"name"`
		Type    string  `yaml:"type"`
		Action  string  `yaml:"action"`
		Enabled *bool   `yaml:"enabled"`
		OnlyIf  []Guard `yaml:"only_if"`
		NotIf   []Guard `yaml:"not_if"`
	}

	var base baseResource
	if err := value.Decode(&base); err != nil {
		return err
	}

	*r = Resource{
		ID:     base.ID,
		Name:   base.Name,
		Type:   base.Type,
		Action: base.Action,
		OnlyIf: base.OnlyIf,
		NotIf:  base.NotIf,
	}
	r.Enabled = base.Enabled == nil || *base.Enabled

	var err error
	switch base.Type {
	case TypePackage:
		r.Package = &PackageResource{}
		err = value.Decode(r.Package)
	case TypeFile:
		r.File = &FileResource{}
		err = value.Decode(r.File)
	case TypeDirectory:
		r.Directory = &DirectoryResource{}
		err = value.Decode(r.Directory)
	case TypeUser:
		r.User = &UserResource{}
		if err = value.Decode(r.User); err == nil {
			r.User.LiteralPassword = hasYAMLKey(value, "password")
			if r.User.Username == "" {
				r.User.Username = base.Name
			}
		}
	case TypeGroup:
		r.Group = &GroupResource{}
		if err = value.Decode(r.Group); err == nil && r.Group.GroupName == "" {
			r.Group.GroupName = base.Name
		}
	case TypeService:
		r.Service = &ServiceResource{}
		if err = value.Decode(r.Service); err == nil && r.Service.ServiceName == "" {
			r.Service.ServiceName = base.Name
		}
	case TypeCron:
		r.Cron = &CronResource{}
		if err = value.Decode(r.Cron); err == nil {
			r.Cron.applyDefaults(base.ID)
		}
	case TypeShell:
		r.Shell = &ShellResource{}
		err = value.Decode(r.Shell)
	case TypeSymlink:
		r.Symlink = &SymlinkResource{}
		err = value.Decode(r.Symlink)
	case TypeArtifact:
		r.Artifact = &ArtifactResource{}
		err = value.Decode(r.Artifact)
	case TypeGit:
		r.Git = &GitResource{}
		err = value.Decode(r.Git)
	}
	if err != nil {
		return err
	}

	if r.Action == "" {
		r.Action = defaultActions[r.Type]
	}
	return nil
}

// Validation represents a post-run check.
type Validation struct {
	Type string `yaml:"type" validate:"required,oneof=command_exists file_exists path_contains"`

	CommandExists *CommandExistsValidation `yaml:"-"`
	FileExists    *FileExistsValidation    `yaml:"-"`
	PathContains  *PathContainsValidation  `yaml:"-"`
}

// UnmarshalYAML populates the payload that matches Type.
func (v *Validation) UnmarshalYAML(value *yaml.Node) error {
	var base struct {
		Type string `yaml:"type"`
	}
	if err := value.Decode(&base); err != nil {
		return err
	}

	*v = Validation{Type: base.Type}
	switch base.Type {
	case "command_exists":
		v.CommandExists = &CommandExistsValidation{}
		return value.Decode(v.CommandExists)
	case "file_exists":
		v.FileExists = &FileExistsValidation{}
		return value.Decode(v.FileExists)
	case "path_contains":
		v.PathContains = &PathContainsValidation{}
		return value.Decode(v.PathContains)
	}
	return nil
}

// CommandExistsValidation ensures a command exists on PATH.
type CommandExistsValidation struct {
	Command string `yaml:"command" validate:"required"`
}

// FileExistsValidation ensures a file or directory exists.
type FileExistsValidation struct {
	Path string `yaml:"path" validate:"required"`
}

// PathContainsValidation ensures a file matches a pattern.
type PathContainsValidation struct {
	File string `yaml:"file" validate:"required"`
	Text string `yaml:"text" validate:"required"`
}

func hasYAMLKey(node *yaml.Node, key string) bool {
	if node == nil || node.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i < len(node.Content); i += 2 {
		if strings.EqualFold(node.Content[i].Value, key) {
			return true
		}
	}
	return false
}
