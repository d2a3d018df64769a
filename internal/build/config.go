package build

import (
	"fmt"
	"strings"

	"github.com/qrioso-software/nodefn/internal/bundle"
)

const (
	PlatformNode    = "node"
	PlatformBrowser = "browser"

	// DefaultTarget matches the Lambda runtime the functions are deployed on.
	DefaultTarget = "node18"
	DefaultOutdir = "build"
)

// Configuration controla cómo esbuild empaqueta el entry point
type Configuration struct {
	Bundle    bool   `yaml:"bundle"`
	Minify    bool   `yaml:"minify"`
	Sourcemap bool   `yaml:"sourcemap"`
	Platform  string `yaml:"platform"`
	Target    string `yaml:"target"`
	Outdir    string `yaml:"outdir"`
}

// DefaultConfiguration is used when a function declares no esbuild block.
func DefaultConfiguration() Configuration {
	return Configuration{
		Bundle:    true,
		Minify:    true,
		Sourcemap: false,
		Platform:  PlatformNode,
		Target:    DefaultTarget,
		Outdir:    DefaultOutdir,
	}
}

// Resolve returns cfg verbatim, or the defaults when cfg is nil.
func Resolve(cfg *Configuration) Configuration {
	if cfg == nil {
		return DefaultConfiguration()
	}
	return *cfg
}

func (c Configuration) Validate() error {
	if strings.TrimSpace(c.Outdir) == "" {
		return fmt.Errorf("%w: you must specify an outdir in esbuild options (default: %s)", ErrConfiguration, DefaultOutdir)
	}

	// "" deja que esbuild use su plataforma por defecto
	switch c.Platform {
	case "", PlatformNode, PlatformBrowser:
	default:
		return fmt.Errorf("%w: platform '%s' is invalid, expected %s or %s", ErrConfiguration, c.Platform, PlatformNode, PlatformBrowser)
	}

	if c.Target != "" {
		if _, _, err := bundle.ParseTarget(c.Target); err != nil {
			return fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
	}

	return nil
}
