package bundle

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// Esbuild bundles with the esbuild Go API. The build runs in-process and
// blocks until the output is on disk.
type Esbuild struct{}

func NewEsbuild() *Esbuild {
	return &Esbuild{}
}

func (e *Esbuild) Bundle(req Request) error {
	opts, err := Options(req)
	if err != nil {
		return err
	}

	result := api.Build(opts)
	if len(result.Errors) > 0 {
		msgs := api.FormatMessages(result.Errors, api.FormatMessagesOptions{
			Kind: api.ErrorMessage,
		})
		return errors.New(strings.TrimSpace(strings.Join(msgs, "\n")))
	}

	return nil
}

// Options translates a Request into esbuild build options.
func Options(req Request) (api.BuildOptions, error) {
	if len(req.EntryPoints) == 0 {
		return api.BuildOptions{}, fmt.Errorf("at least one entry point is required")
	}
	if !filepath.IsAbs(req.Outdir) {
		return api.BuildOptions{}, fmt.Errorf("outdir must be absolute, got '%s'", req.Outdir)
	}

	target, engs, err := ParseTarget(req.Target)
	if err != nil {
		return api.BuildOptions{}, err
	}

	var platform api.Platform
	switch req.Platform {
	case "":
		platform = api.PlatformDefault
	case "node":
		platform = api.PlatformNode
	case "browser":
		platform = api.PlatformBrowser
	default:
		return api.BuildOptions{}, fmt.Errorf("invalid platform '%s'", req.Platform)
	}

	// inline para que el bundle siga siendo un único archivo
	sourcemap := api.SourceMapNone
	if req.Sourcemap {
		sourcemap = api.SourceMapInline
	}

	return api.BuildOptions{
		EntryPoints:       req.EntryPoints,
		Bundle:            req.Bundle,
		MinifyWhitespace:  req.Minify,
		MinifyIdentifiers: req.Minify,
		MinifySyntax:      req.Minify,
		Sourcemap:         sourcemap,
		Platform:          platform,
		Target:            target,
		Engines:           engs,
		Outdir:            req.Outdir,
		AbsWorkingDir:     req.WorkingDir,
		Write:             true,
		LogLevel:          api.LogLevelSilent,
	}, nil
}
