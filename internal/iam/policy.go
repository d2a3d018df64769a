package iam

import (
	"encoding/json"
	"fmt"
)

const PolicyVersion = "2012-10-17"

// LambdaServicePrincipal is the only principal allowed to assume the execution role.
const LambdaServicePrincipal = "lambda.amazonaws.com"

// LogActions: lo mínimo para que la función escriba en CloudWatch Logs
var LogActions = []string{
	"logs:CreateLogGroup",
	"logs:CreateLogStream",
	"logs:PutLogEvents",
}

// PolicyDocument is an IAM policy document.
type PolicyDocument struct {
	Version   string            `json:"Version"`
	Statement []PolicyStatement `json:"Statement"`
}

type PolicyStatement struct {
	Sid       *string    `json:"Sid,omitempty"`
	Effect    string     `json:"Effect"`
	Principal *Principal `json:"Principal,omitempty"`
	Action    any        `json:"Action"`
	Resource  any        `json:"Resource,omitempty"`
}

// Principal serializes to {"Service": ...}.
type Principal struct {
	Service string `json:"Service"`
}

// TrustPolicy allows only the Lambda service to assume the role.
func TrustPolicy() PolicyDocument {
	sid := ""
	return PolicyDocument{
		Version: PolicyVersion,
		Statement: []PolicyStatement{
			{
				Sid:       &sid,
				Effect:    "Allow",
				Principal: &Principal{Service: LambdaServicePrincipal},
				Action:    "sts:AssumeRole",
			},
		},
	}
}

// PermissionPolicy allows log group, log stream and log event writes on any resource.
func PermissionPolicy() PolicyDocument {
	return PolicyDocument{
		Version: PolicyVersion,
		Statement: []PolicyStatement{
			{
				Effect:   "Allow",
				Action:   LogActions,
				Resource: "*",
			},
		},
	}
}

func (d PolicyDocument) JSON() (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("error encoding policy document: %w", err)
	}
	return string(b), nil
}

// Map renders the document as plain JSON values, the shape CloudFormation
// document properties accept.
func (d PolicyDocument) Map() (map[string]interface{}, error) {
	s, err := d.JSON()
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("error decoding policy document: %w", err)
	}
	return m, nil
}
