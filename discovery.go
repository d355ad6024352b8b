// FILE: lixenwraith/secureconfig/discovery.go
package secureconfig

import (
	"os"
	"path/filepath"
	"strings"
)

// FileDiscoveryOptions configures automatic config file discovery
type FileDiscoveryOptions struct {
	// Base name of config file (without extension)
	Name string

	// Extensions to try (in order)
	Extensions []string

	// Custom search paths (in addition to defaults)
	Paths []string

	// Environment variable to check for explicit path
	EnvVar string

	// Command-line arguments and the flag that names the file (e.g. "--config")
	Args    []string
	CLIFlag string

	// Whether to search in XDG config directories
	UseXDG bool

	// Whether to search in current directory
	UseCurrentDir bool
}

// DefaultDiscoveryOptions returns discovery options for appName
func DefaultDiscoveryOptions(appName string) FileDiscoveryOptions {
	var args []string
	if len(os.Args) > 1 {
		args = os.Args[1:]
	}
	return FileDiscoveryOptions{
		Name:          appName,
		Extensions:    []string{".toml", ".yaml", ".yml", ".json"},
		EnvVar:        strings.ToUpper(appName) + "_CONFIG",
		Args:          args,
		CLIFlag:       "--config",
		UseXDG:        true,
		UseCurrentDir: true,
	}
}

// DiscoverFile locates a configuration file. The CLI flag wins over the
// environment variable, which wins over the search paths.
func DiscoverFile(opts FileDiscoveryOptions) (string, bool) {
	if opts.CLIFlag != "" {
		for i, arg := range opts.Args {
			if arg == opts.CLIFlag && i+1 < len(opts.Args) {
				return opts.Args[i+1], true
			}
			if value, ok := strings.CutPrefix(arg, opts.CLIFlag+"="); ok {
				return value, true
			}
		}
	}

	if opts.EnvVar != "" {
		if path := os.Getenv(opts.EnvVar); path != "" {
			return path, true
		}
	}

	searchPaths := append([]string(nil), opts.Paths...)
	if opts.UseCurrentDir {
		if cwd, err := os.Getwd(); err == nil {
			searchPaths = append(searchPaths, cwd)
		}
	}
	if opts.UseXDG {
		searchPaths = append(searchPaths, getXDGConfigPaths(opts.Name)...)
	}

	for _, dir := range searchPaths {
		for _, ext := range opts.Extensions {
			path := filepath.Join(dir, opts.Name+ext)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, true
			}
		}
	}

	return "", false
}

// WithFileDiscovery sets the configuration file to the discovered one.
// When nothing is found the builder is left unchanged and Build reports
// the missing source.
func (b *Builder) WithFileDiscovery(opts FileDiscoveryOptions) *Builder {
	if path, ok := DiscoverFile(opts); ok {
		b.file = path
	}
	return b
}

// getXDGConfigPaths returns XDG-compliant config search paths
func getXDGConfigPaths(appName string) []string {
	var paths []string

	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		paths = append(paths, filepath.Join(xdgHome, appName))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", appName))
	}

	if xdgDirs := os.Getenv("XDG_CONFIG_DIRS"); xdgDirs != "" {
		for _, dir := range filepath.SplitList(xdgDirs) {
			paths = append(paths, filepath.Join(dir, appName))
		}
	} else {
		paths = append(paths,
			filepath.Join("/etc/xdg", appName),
			filepath.Join("/etc", appName),
		)
	}

	return paths
}
