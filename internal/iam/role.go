// Package iam declares the execution identity Lambda functions run with.
package iam

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// ExecutionRole is a least-privilege Lambda role together with its attached
// permission policy.
type ExecutionRole struct {
	Role   awsiam.CfnRole
	Policy awsiam.CfnManagedPolicy

	imported awsiam.IRole
}

// NewExecutionRole declares the role "<id>-role" from TrustPolicy, the
// managed policy "<id>-policy" from PermissionPolicy attached to it, and an
// output "<id>Arn" exposing the role ARN.
func NewExecutionRole(scope constructs.Construct, id string) (*ExecutionRole, error) {
	trust, err := TrustPolicy().Map()
	if err != nil {
		return nil, err
	}
	permissions, err := PermissionPolicy().Map()
	if err != nil {
		return nil, err
	}

	role := awsiam.NewCfnRole(scope, jsii.String(id+"-role"), &awsiam.CfnRoleProps{
		AssumeRolePolicyDocument: trust,
	})

	// Roles adjunta la política al rol por nombre
	policy := awsiam.NewCfnManagedPolicy(scope, jsii.String(id+"-policy"), &awsiam.CfnManagedPolicyProps{
		PolicyDocument: permissions,
		Roles:          jsii.Strings(*role.Ref()),
	})

	awscdk.NewCfnOutput(scope, jsii.String(id+"Arn"), &awscdk.CfnOutputProps{
		Value:       role.AttrArn(),
		Description: jsii.String("Lambda execution role ARN"),
	})

	return &ExecutionRole{
		Role:   role,
		Policy: policy,
		// immutable: CDK must not add statements to a least-privilege role
		imported: awsiam.Role_FromRoleArn(scope, jsii.String(id+"-imported"), role.AttrArn(), &awsiam.FromRoleArnOptions{
			Mutable: jsii.Bool(false),
		}),
	}, nil
}

// IRole can be handed to function declarations.
func (r *ExecutionRole) IRole() awsiam.IRole {
	return r.imported
}

// ImportRole references an existing role by ARN.
func ImportRole(scope constructs.Construct, id string, arn string) awsiam.IRole {
	return awsiam.Role_FromRoleArn(scope, jsii.String(id), jsii.String(arn), &awsiam.FromRoleArnOptions{
		Mutable: jsii.Bool(false),
	})
}
