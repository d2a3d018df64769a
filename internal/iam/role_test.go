package iam

import (
	"os"
	"testing"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/assertions"
	"github.com/aws/jsii-runtime-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	code := m.Run()
	jsii.Close()
	os.Exit(code)
}

func TestTrustPolicy_JSON(t *testing.T) {
	s, err := TrustPolicy().JSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"Version": "2012-10-17",
		"Statement": [{
			"Action": "sts:AssumeRole",
			"Principal": {"Service": "lambda.amazonaws.com"},
			"Effect": "Allow",
			"Sid": ""
		}]
	}`, s)
}

func TestPermissionPolicy_JSON(t *testing.T) {
	s, err := PermissionPolicy().JSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"Version": "2012-10-17",
		"Statement": [{
			"Effect": "Allow",
			"Action": ["logs:CreateLogGroup", "logs:CreateLogStream", "logs:PutLogEvents"],
			"Resource": "*"
		}]
	}`, s)
}

func TestPolicyDocument_Map(t *testing.T) {
	m, err := PermissionPolicy().Map()
	require.NoError(t, err)

	statements, ok := m["Statement"].([]interface{})
	require.True(t, ok)
	require.Len(t, statements, 1)

	stmt := statements[0].(map[string]interface{})
	assert.Equal(t, "Allow", stmt["Effect"])
	assert.Equal(t, "*", stmt["Resource"])
	assert.Equal(t, []interface{}{"logs:CreateLogGroup", "logs:CreateLogStream", "logs:PutLogEvents"}, stmt["Action"])
	assert.NotContains(t, stmt, "Principal")
}

func TestNewExecutionRole(t *testing.T) {
	app := awscdk.NewApp(nil)
	stack := awscdk.NewStack(app, jsii.String("RoleStack"), nil)

	role, err := NewExecutionRole(stack, "lambda")
	require.NoError(t, err)
	require.NotNil(t, role.IRole())

	template := assertions.Template_FromStack(stack, nil)
	template.ResourceCountIs(jsii.String("AWS::IAM::Role"), jsii.Number(1))
	template.ResourceCountIs(jsii.String("AWS::IAM::ManagedPolicy"), jsii.Number(1))

	template.HasResourceProperties(jsii.String("AWS::IAM::Role"), map[string]interface{}{
		"AssumeRolePolicyDocument": map[string]interface{}{
			"Version": "2012-10-17",
			"Statement": []interface{}{
				map[string]interface{}{
					"Action":    "sts:AssumeRole",
					"Effect":    "Allow",
					"Principal": map[string]interface{}{"Service": "lambda.amazonaws.com"},
				},
			},
		},
	})

	roleID := *stack.GetLogicalId(role.Role)
	template.HasResourceProperties(jsii.String("AWS::IAM::ManagedPolicy"), map[string]interface{}{
		"PolicyDocument": map[string]interface{}{
			"Statement": []interface{}{
				map[string]interface{}{
					"Effect":   "Allow",
					"Action":   []interface{}{"logs:CreateLogGroup", "logs:CreateLogStream", "logs:PutLogEvents"},
					"Resource": "*",
				},
			},
		},
		"Roles": []interface{}{
			map[string]interface{}{"Ref": roleID},
		},
	})

	template.HasOutput(jsii.String("*"), map[string]interface{}{
		"Value": map[string]interface{}{
			"Fn::GetAtt": []interface{}{roleID, "Arn"},
		},
	})
}
