package build

import "errors"

var (
	// ErrConfiguration is returned for an invalid build configuration. Nothing on disk has been touched.
	ErrConfiguration = errors.New("configuration error")
	// ErrBuild wraps bundler failures and unexpected bundler output.
	ErrBuild = errors.New("build error")
	// ErrFilesystem wraps cleanup, read and write failures in the workspace.
	ErrFilesystem = errors.New("filesystem error")
)
