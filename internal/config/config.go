// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/qrioso-software/nodefn/internal/build"
)

const (
	DefaultMemorySize = 128
	DefaultTimeout    = 3
)

type ServerlessConfig struct {
	Service string `yaml:"service"`
	Stage   string `yaml:"stage"`
	Region  string `yaml:"region"`
	Account string `yaml:"account"`
	// Role is an existing execution role ARN shared by every function. When
	// empty a least-privilege role is provisioned.
	Role      string                `yaml:"role"`
	Functions map[string]LambdaFunc `yaml:"functions"`
	RootPath  string                `yaml:"-"`
}

type LambdaFunc struct {
	FunctionName string            `yaml:"functionName"`
	Entry        string            `yaml:"entry"`
	Handler      string            `yaml:"handler"`
	Role         string            `yaml:"role"`
	Description  string            `yaml:"description"`
	MemorySize   int               `yaml:"memorySize"`
	Timeout      int               `yaml:"timeout"`
	Environment  map[string]string `yaml:"environment"`
	// Esbuild is used verbatim when present; nil means build.DefaultConfiguration.
	Esbuild *build.Configuration `yaml:"esbuild"`
}

func Load(path string) (*ServerlessConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	c, err := Parse(b)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("error resolving config path: %w", err)
	}
	c.RootPath = filepath.Dir(abs)

	return c, nil
}

// Parse decodes a YAML document and fills in function defaults.
func Parse(b []byte) (*ServerlessConfig, error) {
	var c ServerlessConfig
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("error parsing YAML: %w", err)
	}

	for name, fn := range c.Functions {
		if fn.MemorySize == 0 {
			fn.MemorySize = DefaultMemorySize
		}
		if fn.Timeout == 0 {
			fn.Timeout = DefaultTimeout
		}
		c.Functions[name] = fn
	}

	return &c, nil
}

// FunctionNames returns the logical function names in a stable order.
func (c *ServerlessConfig) FunctionNames() []string {
	names := make([]string, 0, len(c.Functions))
	for name := range c.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Vars are the values available to ${...} placeholders.
func (c *ServerlessConfig) Vars() map[string]string {
	return map[string]string{
		"service": c.Service,
		"stage":   c.Stage,
		"region":  c.Region,
	}
}

func (c *ServerlessConfig) Validate() error {
	if c.Service == "" {
		return fmt.Errorf("field 'service' is required")
	}

	if !isValidServiceName(c.Service) {
		return fmt.Errorf("service name '%s' is invalid. Only alphanumeric and hyphens allowed", c.Service)
	}

	if c.Stage == "" {
		return fmt.Errorf("field 'stage' is required")
	}

	if len(c.Functions) == 0 {
		return fmt.Errorf("at least one function must be defined")
	}

	for _, funcName := range c.FunctionNames() {
		function := c.Functions[funcName]
		if err := function.Validate(funcName); err != nil {
			return err
		}
	}

	return nil
}

func (f *LambdaFunc) Validate(funcName string) error {
	if f.FunctionName == "" {
		return fmt.Errorf("functionName is required for function '%s'", funcName)
	}

	if f.Entry == "" {
		return fmt.Errorf("entry is required for function '%s'", funcName)
	}

	if f.Handler == "" {
		return fmt.Errorf("handler is required for function '%s'", funcName)
	}

	if f.MemorySize < 128 || f.MemorySize > 10240 {
		return fmt.Errorf("memorySize must be between 128 and 10240 for function '%s'", funcName)
	}

	if f.Timeout < 1 || f.Timeout > 900 {
		return fmt.Errorf("timeout must be between 1 and 900 seconds for function '%s'", funcName)
	}

	if f.Esbuild != nil {
		if err := f.Esbuild.Validate(); err != nil {
			return fmt.Errorf("esbuild options for function '%s': %w", funcName, err)
		}
	}

	return nil
}

func isValidServiceName(name string) bool {
	// Solo letras, números y guiones
	match, _ := regexp.MatchString("^[a-zA-Z0-9-]+$", name)
	return match
}
