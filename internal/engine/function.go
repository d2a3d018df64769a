package engine

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/qrioso-software/nodefn/internal/build"
)

// PackageType is always a zip archive.
const PackageType = "Zip"

// Runtime is the fixed Lambda runtime every bundle targets.
func Runtime() awslambda.Runtime {
	return awslambda.Runtime_NODEJS_18_X()
}

// FunctionSpec describes one deployable function.
type FunctionSpec struct {
	// Name is the construct id of the function.
	Name      string
	EntryPath string
	Handler   string
	Role      awsiam.IRole
	// Build is used verbatim when set; nil means build.DefaultConfiguration.
	Build *build.Configuration
	// Props are passed through to the function unchanged. Code, Runtime,
	// Handler and Role are always overwritten.
	Props awslambda.FunctionProps
}

// DeployedFunction is the handle returned once a function is declared.
type DeployedFunction struct {
	Function awslambda.Function
}

// Name is the resolved function name.
func (d *DeployedFunction) Name() *string {
	return d.Function.FunctionName()
}

func (d *DeployedFunction) Arn() *string {
	return d.Function.FunctionArn()
}

// FunctionID is the construct id of the function inside its scope.
const FunctionID = "Function"

// NewNodeFunction declares the Lambda function for an already built artifact.
func NewNodeFunction(scope constructs.Construct, spec FunctionSpec, artifact *build.Artifact) (*DeployedFunction, error) {
	if artifact == nil {
		return nil, fmt.Errorf("%w: function '%s' has no artifact", ErrResourceCreation, spec.Name)
	}

	var fn awslambda.Function
	err := declare(spec.Name, func() {
		props := spec.Props
		props.Code = awslambda.Code_FromAsset(jsii.String(artifact.ArchivePath), nil)
		props.Runtime = Runtime()
		props.Handler = jsii.String(spec.Handler)
		props.Role = spec.Role

		fn = awslambda.NewFunction(scope, jsii.String(FunctionID), &props)

		cfn := fn.Node().DefaultChild().(awslambda.CfnFunction)
		cfn.AddPropertyOverride(jsii.String("PackageType"), jsii.String(PackageType))
	})
	if err != nil {
		return nil, err
	}

	return &DeployedFunction{Function: fn}, nil
}

// DeployFunction builds the function code and then declares the function.
// Nothing is declared when the build fails.
func DeployFunction(scope constructs.Construct, spec FunctionSpec, builder *build.Builder) (*DeployedFunction, error) {
	artifact, err := builder.Build(spec.EntryPath, spec.Build)
	if err != nil {
		return nil, fmt.Errorf("building function '%s': %w", spec.Name, err)
	}

	return NewNodeFunction(scope, spec, artifact)
}

// declare converts jsii panics raised while constructing resources into errors.
func declare(name string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrResourceCreation, name, r)
		}
	}()
	fn()
	return nil
}
