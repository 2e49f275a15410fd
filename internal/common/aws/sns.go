// internal/common/aws/sns.go
package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSAPI is the subset of the SNS client used here.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSClient publishes to a single topic.
type SNSClient struct {
	client   SNSAPI
	topicARN string
}

func NewSNSClient(cfg sdkaws.Config, topicARN string) *SNSClient {
	return NewSNSClientWithAPI(sns.NewFromConfig(cfg), topicARN)
}

func NewSNSClientWithAPI(api SNSAPI, topicARN string) *SNSClient {
	return &SNSClient{client: api, topicARN: topicARN}
}

// Publish sends message with the given subject and string attributes and
// returns the SNS message id.
func (s *SNSClient) Publish(ctx context.Context, subject, message string, attrs map[string]string) (string, error) {
	input := &sns.PublishInput{
		TopicArn: sdkaws.String(s.topicARN),
		Subject:  sdkaws.String(subject),
		Message:  sdkaws.String(message),
	}
	if len(attrs) > 0 {
		input.MessageAttributes = stringAttributes(attrs)
	}

	out, err := s.client.Publish(ctx, input)
	if err != nil {
		return "", fmt.Errorf("sns publish to %s: %w", s.topicARN, err)
	}
	return sdkaws.ToString(out.MessageId), nil
}
