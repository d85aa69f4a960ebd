package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

func NewSNSNotifier(appConfig AppConfig) (Notifier, error) {
	var notifier Notifier

	cfg, cfgErr := config.LoadDefaultConfig(context.TODO(),
		config.WithSharedConfigProfile(appConfig.Notify.Profile),
		config.WithRegion(appConfig.Notify.Region))

	if cfgErr != nil {
		return notifier, cfgErr
	}
	snsClient := &SNSClient{sns.NewFromConfig(cfg)}
	notifier = &SNSNotifier{Client: snsClient, Topic: appConfig.Notify.ID}

	return notifier, nil
}

type SNSClientIface interface {
	PublishMessage(msg *sns.PublishInput) error
}

type SNSClient struct {
	Client *sns.Client
}

func (s *SNSClient) PublishMessage(msg *sns.PublishInput) error {
	_, publishErr := s.Client.Publish(context.TODO(), msg)
	return publishErr
}

type SNSNotifier struct {
	Client SNSClientIface
	Topic  string
}

func (s *SNSNotifier) NotifyRunResults(job JobResult) error {
	statusString := "succeeded"
	if job.Err != nil {
		statusString = "failed"
	}

	var subject string
	if job.Action == "Download" {
		subject = fmt.Sprintf("%s %s: %s -> %s", job.Action, statusString, job.Container, job.Local)
	} else {
		subject = fmt.Sprintf("%s %s: %s -> %s", job.Action, statusString, job.Local, job.Container)
	}

	notificationBody := fmt.Sprintf("Files transferred: %d\n", job.Stats.Count)
	notificationBody += fmt.Sprintf("Bytes transferred: %d\n", job.Stats.Bytes)
	notificationBody += fmt.Sprintf("Error: %v\n", job.Err)

	snsPublishReq := &sns.PublishInput{
		Message:  aws.String(notificationBody),
		TopicArn: aws.String(s.Topic),
		Subject:  aws.String(subject),
	}
	return s.Client.PublishMessage(snsPublishReq)
}
