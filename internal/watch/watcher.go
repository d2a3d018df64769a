// Package watch rebuilds function archives when their sources change.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/qrioso-software/nodefn/internal/build"
	"github.com/qrioso-software/nodefn/internal/config"
	"github.com/qrioso-software/nodefn/internal/engine"
	"github.com/qrioso-software/nodefn/internal/util"
)

// DefaultDebounce groups bursts of editor writes into one rebuild.
const DefaultDebounce = 800 * time.Millisecond

// SourceExtensions are the files that trigger a rebuild.
var SourceExtensions = []string{".ts", ".tsx", ".mts", ".cts", ".js", ".jsx", ".mjs", ".cjs", ".json"}

// Runner maneja el rebuild local con hot reload
type Runner struct {
	cfg      *config.ServerlessConfig
	watcher  *fsnotify.Watcher
	builders map[string]*build.Builder
	debounce time.Duration
	logger   *log.Logger

	buildMu  sync.Mutex
	stopOnce sync.Once
	stopChan chan struct{}

	// OnBuild, when set, is called after every build attempt.
	OnBuild func(funcName string, artifact *build.Artifact, err error)
}

// NewRunner crea una nueva instancia del watcher
func NewRunner(cfg *config.ServerlessConfig, opts engine.Options, debounce time.Duration) (*Runner, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "watch"})
		opts.Logger = logger
	}

	builders := make(map[string]*build.Builder, len(cfg.Functions))
	for _, funcName := range cfg.FunctionNames() {
		b, err := engine.NewBuilder(cfg, funcName, opts)
		if err != nil {
			return nil, err
		}
		builders[funcName] = b
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("error creating watcher: %w", err)
	}

	return &Runner{
		cfg:      cfg,
		watcher:  watcher,
		builders: builders,
		debounce: debounce,
		logger:   logger,
		stopChan: make(chan struct{}),
	}, nil
}

// Start builds every function once, then rebuilds on change until ctx is
// done or Stop is called. Only the initial build is fatal.
func (r *Runner) Start(ctx context.Context) error {
	defer r.Stop()

	for _, funcName := range r.cfg.FunctionNames() {
		if err := r.buildFunction(funcName); err != nil {
			return err
		}
	}

	if err := r.setupFileWatchers(); err != nil {
		return err
	}

	r.logger.Info("✅ Watching for changes", "functions", len(r.builders), "debounce", r.debounce)
	r.watchForChanges(ctx)
	return nil
}

func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
		r.watcher.Close()
	})
}

func (r *Runner) buildFunction(funcName string) error {
	r.buildMu.Lock()
	defer r.buildMu.Unlock()

	fn := r.cfg.Functions[funcName]
	artifact, err := r.builders[funcName].Build(engine.EntryPath(r.cfg, fn), fn.Esbuild)
	if r.OnBuild != nil {
		r.OnBuild(funcName, artifact, err)
	}
	if err != nil {
		return fmt.Errorf("build failed for %s: %w", funcName, err)
	}

	r.logger.Info("✅ Built", "function", funcName, "archive", artifact.ArchivePath)
	return nil
}

// sourceDir is the directory tree watched for a function.
func (r *Runner) sourceDir(fn config.LambdaFunc) string {
	return filepath.Dir(engine.EntryPath(r.cfg, fn))
}

// setupFileWatchers registra el directorio de cada entry y sus subdirectorios
func (r *Runner) setupFileWatchers() error {
	seen := map[string]bool{}
	for _, funcName := range r.cfg.FunctionNames() {
		dir := r.sourceDir(r.cfg.Functions[funcName])
		if seen[dir] {
			continue
		}
		seen[dir] = true

		if err := r.watchTree(dir); err != nil {
			return err
		}
		files, err := util.FindSourceFilesRecursively(dir, SourceExtensions)
		if err != nil {
			return fmt.Errorf("could not list sources in %s: %w", dir, err)
		}
		r.logger.Info("👀 Watching", "dir", dir, "function", funcName, "files", len(files))
	}
	return nil
}

func (r *Runner) watchTree(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && util.IgnoredDir(info.Name()) {
			return filepath.SkipDir
		}
		if err := r.watcher.Add(path); err != nil {
			return fmt.Errorf("could not watch %s: %w", path, err)
		}
		return nil
	})
}

// watchNewDir starts watching a directory created while running and returns
// the sources already inside it, since events for them may have been missed.
func (r *Runner) watchNewDir(dir string) []string {
	if len(r.FunctionsForPath(dir)) == 0 || util.IgnoredDir(filepath.Base(dir)) {
		return nil
	}
	if err := r.watchTree(dir); err != nil {
		r.logger.Warn("could not watch new directory", "dir", dir, "err", err)
		return nil
	}
	r.logger.Debug("👀 Watching new directory", "dir", dir)

	files, err := util.FindSourceFilesRecursively(dir, SourceExtensions)
	if err != nil {
		r.logger.Warn("could not list sources", "dir", dir, "err", err)
		return nil
	}
	return files
}

// watchForChanges con debounce
func (r *Runner) watchForChanges(ctx context.Context) {
	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	defer debounceTimer.Stop()

	changed := map[string]bool{}

	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			// directorios nuevos se agregan al watcher
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					for _, file := range r.watchNewDir(event.Name) {
						for _, funcName := range r.FunctionsForPath(file) {
							changed[funcName] = true
						}
					}
					if len(changed) > 0 {
						debounceTimer.Reset(r.debounce)
					}
					continue
				}
			}
			if !util.HasExtension(event.Name, SourceExtensions) {
				continue
			}

			for _, funcName := range r.FunctionsForPath(event.Name) {
				changed[funcName] = true
			}
			if len(changed) > 0 {
				debounceTimer.Reset(r.debounce)
			}

		case <-debounceTimer.C:
			r.handleFileChange(changed)
			changed = map[string]bool{}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("watcher error", "err", err)

		case <-ctx.Done():
			return

		case <-r.stopChan:
			return
		}
	}
}

// FunctionsForPath returns every function whose source tree contains path.
func (r *Runner) FunctionsForPath(path string) []string {
	var names []string
	for _, funcName := range r.cfg.FunctionNames() {
		dir := r.sourceDir(r.cfg.Functions[funcName])
		rel, err := filepath.Rel(dir, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		// los artefactos propios nunca disparan un rebuild
		if strings.HasPrefix(rel, engine.WorkDir) {
			continue
		}
		names = append(names, funcName)
	}
	return names
}

func (r *Runner) handleFileChange(changed map[string]bool) {
	for _, funcName := range r.cfg.FunctionNames() {
		if !changed[funcName] {
			continue
		}
		r.logger.Info("🔄 Changes detected", "function", funcName)
		if err := r.buildFunction(funcName); err != nil {
			r.logger.Error("❌ Rebuild failed", "function", funcName, "err", err)
		}
	}
}
