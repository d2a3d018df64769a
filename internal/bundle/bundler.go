// Package bundle wraps the JavaScript bundler used to build function code.
package bundle

// Request describes a single blocking bundler invocation.
type Request struct {
	EntryPoints []string
	Bundle      bool
	Minify      bool
	Sourcemap   bool
	// Platform is "node", "browser" or "" for the esbuild default.
	Platform string
	// Target uses esbuild syntax, e.g. "node18" or "es2020,chrome110".
	Target string
	// Outdir must be absolute.
	Outdir     string
	WorkingDir string
}

// Bundler writes the bundled output of a request into Request.Outdir.
type Bundler interface {
	Bundle(req Request) error
}

// BundlerFunc adapts a plain function to Bundler.
type BundlerFunc func(req Request) error

func (f BundlerFunc) Bundle(req Request) error {
	return f(req)
}
