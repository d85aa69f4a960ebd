package main

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// MockSNSClient records published notifications. PublishErr, when set, is
// returned after the request is recorded.
type MockSNSClient struct {
	PublishRequests []*sns.PublishInput
	PublishErr      error
}

func (c *MockSNSClient) PublishMessage(msg *sns.PublishInput) error {
	c.PublishRequests = append(c.PublishRequests, msg)
	return c.PublishErr
}

func (c *MockSNSClient) Subjects() []string {
	subjects := make([]string, 0, len(c.PublishRequests))
	for _, req := range c.PublishRequests {
		subjects = append(subjects, aws.ToString(req.Subject))
	}
	return subjects
}
