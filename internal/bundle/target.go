package bundle

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

var languageTargets = map[string]api.Target{
	"esnext": api.ESNext,
	"es5":    api.ES5,
	"es6":    api.ES2015,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
}

var engines = map[string]api.EngineName{
	"node":    api.EngineNode,
	"chrome":  api.EngineChrome,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"safari":  api.EngineSafari,
	"ios":     api.EngineIOS,
	"opera":   api.EngineOpera,
	"deno":    api.EngineDeno,
}

// ParseTarget converts an esbuild target string ("node18", "es2020",
// "node18,chrome110") into the language target and engine list the Go API
// expects. An empty string yields the esbuild defaults.
func ParseTarget(s string) (api.Target, []api.Engine, error) {
	target := api.DefaultTarget
	var engs []api.Engine

	for _, part := range strings.Split(s, ",") {
		key := strings.ToLower(strings.TrimSpace(part))
		if key == "" {
			continue
		}

		if t, ok := languageTargets[key]; ok {
			target = t
			continue
		}

		name, version := splitEngine(key)
		engine, ok := engines[name]
		if !ok || version == "" {
			return api.DefaultTarget, nil, fmt.Errorf("invalid esbuild target '%s'", part)
		}
		engs = append(engs, api.Engine{Name: engine, Version: version})
	}

	return target, engs, nil
}

// splitEngine separa "node18.17" en ("node", "18.17")
func splitEngine(s string) (string, string) {
	i := strings.IndexAny(s, "0123456789")
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i:]
}
