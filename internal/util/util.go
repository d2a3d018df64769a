package util

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ignoredDirs never contain function sources
var ignoredDirs = map[string]bool{
	"node_modules": true,
	"build":        true,
	"cdk.out":      true,
}

// IgnoredDir reports whether a directory named name is skipped when looking
// for sources: dot dirs (.git, .nodefn) plus build output and dependencies.
func IgnoredDir(name string) bool {
	return strings.HasPrefix(name, ".") || ignoredDirs[name]
}

// FindSourceFilesRecursively busca archivos con las extensiones dadas
func FindSourceFilesRecursively(rootDir string, exts []string) ([]string, error) {
	var files []string

	err := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() && path != rootDir {
			if IgnoredDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.IsDir() && HasExtension(info.Name(), exts) {
			files = append(files, path)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// HasExtension reports whether name ends with one of exts.
func HasExtension(name string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func Sha256Bytes(input []byte) string {
	sum := sha256.Sum256(input)
	return hex.EncodeToString(sum[:])
}

var varPattern = regexp.MustCompile(`\$\{(?:self:)?([a-zA-Z][a-zA-Z0-9_]*)\}`)

// ResolveVars reemplaza ${stage}, ${self:service}, etc. Unknown variables are
// left untouched.
func ResolveVars(input string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(input, func(m string) string {
		key := varPattern.FindStringSubmatch(m)[1]
		if v, ok := vars[key]; ok {
			return v
		}
		return m
	})
}
