package main

import (
	"encoding/json"
	"fmt"
)

type bucketPolicy struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Sid       string      `json:"Sid,omitempty"`
	Effect    string      `json:"Effect"`
	Principal interface{} `json:"Principal"`
	Action    interface{} `json:"Action"`
	Resource  interface{} `json:"Resource"`
}

func publicReadPolicy(bucket string) (string, error) {
	policy := bucketPolicy{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Sid:       "PublicReadGetObject",
			Effect:    "Allow",
			Principal: "*",
			Action:    "s3:GetObject",
			Resource:  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
		}},
	}
	raw, marshalErr := json.Marshal(policy)
	if marshalErr != nil {
		return "", marshalErr
	}
	return string(raw), nil
}

// grantsPublicRead reports whether the policy document allows anonymous
// s3:GetObject on every object of bucket.
func grantsPublicRead(policyJSON, bucket string) bool {
	if policyJSON == "" {
		return false
	}
	var policy bucketPolicy
	if err := json.Unmarshal([]byte(policyJSON), &policy); err != nil {
		return false
	}

	resource := fmt.Sprintf("arn:aws:s3:::%s/*", bucket)
	for _, statement := range policy.Statement {
		if statement.Effect != "Allow" || !isAnonymous(statement.Principal) {
			continue
		}
		if containsValue(statement.Action, "s3:GetObject", "s3:*", "*") && containsValue(statement.Resource, resource) {
			return true
		}
	}
	return false
}

func isAnonymous(principal interface{}) bool {
	switch p := principal.(type) {
	case string:
		return p == "*"
	case map[string]interface{}:
		return containsValue(p["AWS"], "*")
	}
	return false
}

// containsValue reports whether field, a JSON string or array of strings,
// holds any of wanted.
func containsValue(field interface{}, wanted ...string) bool {
	var values []string
	switch f := field.(type) {
	case string:
		values = []string{f}
	case []interface{}:
		for _, v := range f {
			if s, ok := v.(string); ok {
				values = append(values, s)
			}
		}
	}
	for _, value := range values {
		for _, w := range wanted {
			if value == w {
				return true
			}
		}
	}
	return false
}
