package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/charmbracelet/log"

	"github.com/qrioso-software/nodefn/internal/build"
	"github.com/qrioso-software/nodefn/internal/bundle"
	"github.com/qrioso-software/nodefn/internal/config"
	"github.com/qrioso-software/nodefn/internal/iam"
	"github.com/qrioso-software/nodefn/internal/util"
)

// ErrResourceCreation wraps failures raised by the cloud resource layer.
var ErrResourceCreation = errors.New("resource creation error")

// WorkDir holds one build workspace per function.
const WorkDir = ".nodefn"

// Options tunes stack construction. The zero value bundles with esbuild.
type Options struct {
	Bundler bundle.Bundler
	Logger  *log.Logger
}

func (o Options) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.NewWithOptions(os.Stderr, log.Options{Prefix: "engine"})
}

// Workspace returns the build directory of a function.
func Workspace(cfg *config.ServerlessConfig, logicalName string) string {
	return filepath.Join(cfg.RootPath, WorkDir, logicalName)
}

// NewBuilder crea el builder para una función del config
func NewBuilder(cfg *config.ServerlessConfig, logicalName string, opts Options) (*build.Builder, error) {
	logger := opts.logger()
	return build.NewBuilder(Workspace(cfg, logicalName), opts.Bundler,
		build.WithLogger(logger.WithPrefix("build:"+logicalName)))
}

// EntryPath resolves a function entry against the project root.
func EntryPath(cfg *config.ServerlessConfig, fn config.LambdaFunc) string {
	if filepath.IsAbs(fn.Entry) {
		return fn.Entry
	}
	return filepath.Join(cfg.RootPath, filepath.Clean(fn.Entry))
}

// Spec converts a configured function into a FunctionSpec.
func Spec(cfg *config.ServerlessConfig, logicalName string, role awsiam.IRole) FunctionSpec {
	fn := cfg.Functions[logicalName]
	vars := cfg.Vars()

	var env *map[string]*string
	if len(fn.Environment) > 0 {
		m := make(map[string]*string, len(fn.Environment))
		for k, v := range fn.Environment {
			m[k] = jsii.String(util.ResolveVars(v, vars))
		}
		env = &m
	}

	props := awslambda.FunctionProps{
		FunctionName: jsii.String(util.ResolveVars(fn.FunctionName, vars)),
		MemorySize:   jsii.Number(float64(fn.MemorySize)),
		Timeout:      awscdk.Duration_Seconds(jsii.Number(float64(fn.Timeout))),
		Environment:  env,
	}
	if fn.Description != "" {
		props.Description = jsii.String(fn.Description)
	}

	return FunctionSpec{
		Name:      logicalName,
		EntryPath: EntryPath(cfg, fn),
		Handler:   fn.Handler,
		Role:      role,
		Build:     fn.Esbuild,
		Props:     props,
	}
}

// NewStack declares the execution role and every configured function. Each
// function is built before it is declared; the first failure aborts.
func NewStack(scope constructs.Construct, id string, cfg *config.ServerlessConfig, env *awscdk.Environment, opts Options) (awscdk.Stack, error) {
	logger := opts.logger()

	var stack awscdk.Stack
	if err := declare(id, func() {
		stack = awscdk.NewStack(scope, &id, &awscdk.StackProps{Env: env})
	}); err != nil {
		return nil, err
	}

	var shared awsiam.IRole
	roleFor := func(scope constructs.Construct, logicalName string, fn config.LambdaFunc) (awsiam.IRole, error) {
		switch {
		case fn.Role != "":
			var r awsiam.IRole
			err := declare(logicalName+"/Role", func() {
				r = iam.ImportRole(scope, "Role", fn.Role)
			})
			return r, err
		case shared != nil:
			return shared, nil
		case cfg.Role != "":
			err := declare("lambda-role", func() {
				shared = iam.ImportRole(stack, "lambda-role", cfg.Role)
			})
			return shared, err
		}

		var role *iam.ExecutionRole
		var err error
		if derr := declare("lambda-role", func() {
			role, err = iam.NewExecutionRole(stack, "lambda")
		}); derr != nil {
			return nil, derr
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrResourceCreation, err)
		}
		shared = role.IRole()
		logger.Info("🔐 execution role declared", "policy", "logs:*")
		return shared, nil
	}

	// cada función vive en su propio scope, así su nombre nunca choca con el rol
	var functions constructs.Construct
	if err := declare("Functions", func() {
		functions = constructs.NewConstruct(stack, jsii.String("Functions"))
	}); err != nil {
		return nil, err
	}

	for _, logicalName := range cfg.FunctionNames() {
		fn := cfg.Functions[logicalName]

		var scope constructs.Construct
		if err := declare(logicalName, func() {
			scope = constructs.NewConstruct(functions, jsii.String(logicalName))
		}); err != nil {
			return nil, err
		}

		role, err := roleFor(scope, logicalName, fn)
		if err != nil {
			return nil, err
		}

		builder, err := NewBuilder(cfg, logicalName, opts)
		if err != nil {
			return nil, err
		}

		deployed, err := DeployFunction(scope, Spec(cfg, logicalName, role), builder)
		if err != nil {
			return nil, err
		}

		if err := declare(logicalName+"/outputs", func() {
			awscdk.NewCfnOutput(scope, jsii.String("Name"), &awscdk.CfnOutputProps{
				Value:       deployed.Name(),
				Description: jsii.String(fmt.Sprintf("Name of the %s function", logicalName)),
			})
			awscdk.NewCfnOutput(scope, jsii.String("Arn"), &awscdk.CfnOutputProps{
				Value:       deployed.Arn(),
				Description: jsii.String(fmt.Sprintf("ARN of the %s function", logicalName)),
			})
		}); err != nil {
			return nil, err
		}
		logger.Info("✅ function declared", "function", logicalName)
	}

	return stack, nil
}

// StackID is the stack name for a config, "<service>-<stage>".
func StackID(cfg *config.ServerlessConfig) string {
	return fmt.Sprintf("%s-%s", cfg.Service, cfg.Stage)
}

// Environment returns the stack environment, or nil when no region or
// account is configured.
func Environment(cfg *config.ServerlessConfig) *awscdk.Environment {
	if cfg.Region == "" && cfg.Account == "" {
		return nil
	}
	env := &awscdk.Environment{}
	if cfg.Region != "" {
		env.Region = jsii.String(cfg.Region)
	}
	if cfg.Account != "" {
		env.Account = jsii.String(cfg.Account)
	}
	return env
}

// Synth builds every function and writes the cloud assembly to outdir. An
// empty outdir lets CDK pick its default.
func Synth(cfg *config.ServerlessConfig, outdir string, opts ...Options) error {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}

	props := &awscdk.AppProps{}
	if outdir != "" {
		props.Outdir = jsii.String(outdir)
	}

	var app awscdk.App
	if err := declare("app", func() { app = awscdk.NewApp(props) }); err != nil {
		return err
	}

	if _, err := NewStack(app, StackID(cfg), cfg, Environment(cfg), o); err != nil {
		return err
	}

	return declare("synth", func() { app.Synth(nil) })
}
