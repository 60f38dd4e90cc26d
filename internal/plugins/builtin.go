// Package plugins assembles the built-in resource providers.
package plugins

import (
	"github.com/alexisbeaulieu97/converge/internal/plugin"
	artifactplugin "github.com/alexisbeaulieu97/converge/internal/plugins/artifact"
	cronplugin "github.com/alexisbeaulieu97/converge/internal/plugins/cron"
	directoryplugin "github.com/alexisbeaulieu97/converge/internal/plugins/directory"
	fileplugin "github.com/alexisbeaulieu97/converge/internal/plugins/file"
	gitplugin "github.com/alexisbeaulieu97/converge/internal/plugins/git"
	groupplugin "github.com/alexisbeaulieu97/converge/internal/plugins/group"
	packageplugin "github.com/alexisbeaulieu97/converge/internal/plugins/package"
	serviceplugin "github.com/alexisbeaulieu97/converge/internal/plugins/service"
	shellplugin "github.com/alexisbeaulieu97/converge/internal/plugins/shell"
	symlinkplugin "github.com/alexisbeaulieu97/converge/internal/plugins/symlink"
	userplugin "github.com/alexisbeaulieu97/converge/internal/plugins/user"
	"github.com/alexisbeaulieu97/converge/internal/system"
)

// Options tweaks provider construction.
type Options struct {
	// UnitDir overrides where service unit files are written.
	UnitDir string
}

// Builtin returns a registry holding every built-in provider bound to host.
func Builtin(host *system.Host, secrets userplugin.SecretResolver, opts Options) (*plugin.Registry, error) {
	var serviceOpts []serviceplugin.Option
	if opts.UnitDir != "" {
		serviceOpts = append(serviceOpts, serviceplugin.WithUnitDir(opts.UnitDir))
	}

	providers := []plugin.Plugin{
		packageplugin.New(host),
		fileplugin.New(host),
		directoryplugin.New(host),
		userplugin.New(host, secrets),
		groupplugin.New(host),
		serviceplugin.New(host, serviceOpts...),
		cronplugin.New(host),
		shellplugin.New(host),
		symlinkplugin.New(host),
		artifactplugin.New(host),
		gitplugin.New(host),
	}

	registry := plugin.NewRegistry()
	for _, p := range providers {
		if err := registry.Register(p.PluginMetadata().Type, p); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
