// Package build turns a Node.js entry point into a zip archive ready to be
// used as Lambda code: clean, bundle, archive.
package build

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/qrioso-software/nodefn/internal/bundle"
	"github.com/qrioso-software/nodefn/internal/util"
)

// DefaultArchiveName is the archive written at the workspace root.
const DefaultArchiveName = "lambda.zip"

// Artifact is the file-backed result of a build.
type Artifact struct {
	// ArchivePath is the absolute path of the zip archive.
	ArchivePath string
	// BundlePath is the absolute path of the bundled file that was archived.
	BundlePath string
	Size       int
	// Digest is the hex sha256 of the archive bytes.
	Digest string
}

// Builder runs the clean -> bundle -> archive sequence inside a workspace.
// All paths it touches are relative to Workspace.
type Builder struct {
	Workspace   string
	Fs          afero.Fs
	Bundler     bundle.Bundler
	ArchiveName string
	Logger      *log.Logger

	mu sync.Mutex
}

// Option configura un Builder
type Option func(*Builder)

// WithFs replaces the workspace filesystem. The Fs must be rooted at the
// workspace, since the bundler writes to the real paths underneath it.
func WithFs(fs afero.Fs) Option {
	return func(b *Builder) { b.Fs = fs }
}

func WithArchiveName(name string) Option {
	return func(b *Builder) { b.ArchiveName = name }
}

func WithLogger(l *log.Logger) Option {
	return func(b *Builder) { b.Logger = l }
}

// NewBuilder crea un Builder sobre el workspace indicado
func NewBuilder(workspace string, bundler bundle.Bundler, opts ...Option) (*Builder, error) {
	abs, err := filepath.Abs(workspace)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving workspace %s: %w", ErrFilesystem, workspace, err)
	}

	b := &Builder{
		Workspace:   abs,
		Bundler:     bundler,
		ArchiveName: DefaultArchiveName,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.Fs == nil {
		b.Fs = afero.NewBasePathFs(afero.NewOsFs(), abs)
	}
	if b.Logger == nil {
		b.Logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "build"})
	}
	if b.Bundler == nil {
		b.Bundler = bundle.NewEsbuild()
	}

	return b, nil
}

// Build bundles entry and writes the archive. A nil cfg means
// DefaultConfiguration. Relative entry paths are resolved against the
// workspace.
func (b *Builder) Build(entry string, cfg *Configuration) (*Artifact, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	conf := Resolve(cfg)
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	// limpiar el outdir y el zip anterior antes de construir
	if err := b.clean(conf.Outdir); err != nil {
		return nil, err
	}
	// esbuild necesita que el workspace exista (AbsWorkingDir)
	if err := b.Fs.MkdirAll(".", 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating workspace %s: %w", ErrFilesystem, b.Workspace, err)
	}

	entryPath := entry
	if !filepath.IsAbs(entryPath) {
		entryPath = filepath.Join(b.Workspace, entryPath)
	}
	outdir := filepath.Join(b.Workspace, conf.Outdir)

	b.Logger.Debug("bundling", "entry", entryPath, "outdir", outdir, "target", conf.Target)
	err := b.Bundler.Bundle(bundle.Request{
		EntryPoints: []string{entryPath},
		Bundle:      conf.Bundle,
		Minify:      conf.Minify,
		Sourcemap:   conf.Sourcemap,
		Platform:    conf.Platform,
		Target:      conf.Target,
		Outdir:      outdir,
		WorkingDir:  b.Workspace,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: bundling %s: %w", ErrBuild, entry, err)
	}

	outputFile, err := b.singleOutput(conf.Outdir)
	if err != nil {
		return nil, err
	}

	code, err := afero.ReadFile(b.Fs, outputFile)
	if err != nil {
		return nil, fmt.Errorf("%w: reading bundle %s: %w", ErrFilesystem, outputFile, err)
	}

	zipContent, err := zipSingle(EntryName, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFilesystem, err)
	}

	if err := afero.WriteFile(b.Fs, b.ArchiveName, zipContent, 0o644); err != nil {
		return nil, fmt.Errorf("%w: writing %s: %w", ErrFilesystem, b.ArchiveName, err)
	}

	artifact := &Artifact{
		ArchivePath: filepath.Join(b.Workspace, b.ArchiveName),
		BundlePath:  filepath.Join(b.Workspace, outputFile),
		Size:        len(zipContent),
		Digest:      util.Sha256Bytes(zipContent),
	}
	b.Logger.Info("📦 archive ready", "path", artifact.ArchivePath, "bytes", artifact.Size)

	return artifact, nil
}

func (b *Builder) clean(outdir string) error {
	for _, p := range []string{outdir, b.ArchiveName} {
		if err := b.Fs.RemoveAll(p); err != nil {
			return fmt.Errorf("%w: removing %s: %w", ErrFilesystem, p, err)
		}
	}
	return nil
}

// singleOutput devuelve el único archivo generado por el bundler
func (b *Builder) singleOutput(outdir string) (string, error) {
	entries, err := afero.ReadDir(b.Fs, outdir)
	if err != nil {
		return "", fmt.Errorf("%w: reading output directory %s: %w", ErrFilesystem, outdir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		files = append(files, filepath.Join(outdir, e.Name()))
	}

	switch len(files) {
	case 0:
		return "", fmt.Errorf("%w: bundler produced no output in %s", ErrBuild, outdir)
	case 1:
		return files[0], nil
	default:
		return "", fmt.Errorf("%w: expected a single bundle in %s, found %d files", ErrBuild, outdir, len(files))
	}
}
