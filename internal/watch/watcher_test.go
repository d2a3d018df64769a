package watch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrioso-software/nodefn/internal/build"
	"github.com/qrioso-software/nodefn/internal/bundle"
	"github.com/qrioso-software/nodefn/internal/config"
	"github.com/qrioso-software/nodefn/internal/engine"
)

// copyEntry bundles by copying the entry file verbatim.
var copyEntry = bundle.BundlerFunc(func(req bundle.Request) error {
	src, err := os.ReadFile(req.EntryPoints[0])
	if err != nil {
		return err
	}
	if err := os.MkdirAll(req.Outdir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(req.Outdir, "index.js"), src, 0o644)
})

func newProject(t *testing.T) *config.ServerlessConfig {
	t.Helper()
	root := t.TempDir()
	for _, rel := range []string{"orders/create.js", "users/get.js"} {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("exports.handler=1;"), 0o644))
	}

	return &config.ServerlessConfig{
		Service:  "shop",
		Stage:    "dev",
		RootPath: root,
		Functions: map[string]config.LambdaFunc{
			"create": {Entry: "orders/create.js", Handler: "index.handler"},
			"get":    {Entry: "users/get.js", Handler: "index.handler"},
		},
	}
}

func newRunner(t *testing.T, cfg *config.ServerlessConfig) *Runner {
	t.Helper()
	r, err := NewRunner(cfg, engine.Options{Bundler: copyEntry, Logger: log.New(io.Discard)}, 50*time.Millisecond)
	require.NoError(t, err)
	return r
}

func TestFunctionsForPath(t *testing.T) {
	cfg := newProject(t)
	r := newRunner(t, cfg)
	defer r.Stop()

	assert.Equal(t, []string{"create"}, r.FunctionsForPath(filepath.Join(cfg.RootPath, "orders", "lib", "db.js")))
	assert.Equal(t, []string{"get"}, r.FunctionsForPath(filepath.Join(cfg.RootPath, "users", "get.js")))
	assert.Empty(t, r.FunctionsForPath(filepath.Join(cfg.RootPath, "README.md")))
}

func TestFunctionsForPath_IgnoresWorkDir(t *testing.T) {
	cfg := newProject(t)
	cfg.Functions["root"] = config.LambdaFunc{Entry: "index.js", Handler: "index.handler"}
	r := newRunner(t, cfg)
	defer r.Stop()

	assert.Empty(t, r.FunctionsForPath(filepath.Join(cfg.RootPath, engine.WorkDir, "root", "build", "index.js")))
}

func TestRunner_RebuildsChangedFunction(t *testing.T) {
	cfg := newProject(t)
	r := newRunner(t, cfg)

	built := make(chan string, 16)
	r.OnBuild = func(funcName string, _ *build.Artifact, err error) {
		if err == nil {
			built <- funcName
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Start(ctx) }()

	// initial build of both functions
	initial := map[string]bool{}
	for len(initial) < 2 {
		select {
		case name := <-built:
			initial[name] = true
		case <-time.After(5 * time.Second):
			t.Fatal("initial build did not finish")
		}
	}

	// give the watcher a moment to register directories
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.RootPath, "orders", "create.js"), []byte("exports.handler=2;"), 0o644))

	select {
	case name := <-built:
		assert.Equal(t, "create", name)
	case <-time.After(5 * time.Second):
		t.Fatal("rebuild was not triggered")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestRunner_WatchesNewDirectories(t *testing.T) {
	cfg := newProject(t)
	r := newRunner(t, cfg)
	defer r.Stop()

	built := make(chan string, 16)
	r.OnBuild = func(funcName string, _ *build.Artifact, err error) {
		if err == nil {
			built <- funcName
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Start(ctx) }()

	for i := 0; i < 2; i++ {
		select {
		case <-built:
		case <-time.After(5 * time.Second):
			t.Fatal("initial build did not finish")
		}
	}

	time.Sleep(200 * time.Millisecond)
	lib := filepath.Join(cfg.RootPath, "orders", "lib")
	require.NoError(t, os.Mkdir(lib, 0o755))
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(lib, "db.js"), []byte("exports.db=1;"), 0o644))

	select {
	case name := <-built:
		assert.Equal(t, "create", name)
	case <-time.After(5 * time.Second):
		t.Fatal("change in a new directory did not trigger a rebuild")
	}

	// the first rebuild may race the write; a later edit must still be seen
	time.Sleep(200 * time.Millisecond)
	for len(built) > 0 {
		<-built
	}
	require.NoError(t, os.WriteFile(filepath.Join(lib, "db.js"), []byte("exports.db=2;"), 0o644))

	select {
	case name := <-built:
		assert.Equal(t, "create", name)
	case <-time.After(5 * time.Second):
		t.Fatal("edit in a new directory did not trigger a rebuild")
	}
}

func TestRunner_InitialBuildFailure(t *testing.T) {
	cfg := newProject(t)
	require.NoError(t, os.Remove(filepath.Join(cfg.RootPath, "users", "get.js")))
	r := newRunner(t, cfg)

	err := r.Start(context.Background())
	assert.ErrorIs(t, err, build.ErrBuild)
}
