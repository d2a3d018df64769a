package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultConfigFile = "nodefn.yml"
	EnvPrefix         = "NODEFN"
)

// Settings are the CLI-level options: flags first, then NODEFN_* environment
// variables, then defaults.
type Settings struct {
	ConfigPath      string
	Profile         string
	RequireApproval string
	Verbose         bool
	// CDKOutdir is set by the CDK CLI when it invokes the app.
	CDKOutdir string
}

var approvalLevels = map[string]bool{
	"":           true,
	"never":      true,
	"any-change": true,
	"broadening": true,
}

// LoadSettings resolves settings from the given flag set. Flags that are not
// defined on the set are read from the environment only.
func LoadSettings(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("config", DefaultConfigFile)

	if err := v.BindEnv("cdk-outdir", "CDK_OUTDIR"); err != nil {
		return nil, fmt.Errorf("error binding CDK_OUTDIR: %w", err)
	}
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("error binding flags: %w", err)
		}
	}

	s := &Settings{
		ConfigPath:      v.GetString("config"),
		Profile:         v.GetString("profile"),
		RequireApproval: v.GetString("require-approval"),
		Verbose:         v.GetBool("verbose"),
		CDKOutdir:       v.GetString("cdk-outdir"),
	}

	if !approvalLevels[s.RequireApproval] {
		return nil, fmt.Errorf("require-approval '%s' is invalid. Use never|any-change|broadening", s.RequireApproval)
	}

	return s, nil
}
