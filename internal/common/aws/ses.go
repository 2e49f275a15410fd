// internal/common/aws/ses.go
package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESClient sends plain text mail from a fixed sender.
type SESClient struct {
	client SESAPI
	from   string
}

func NewSESClient(cfg sdkaws.Config, from string) *SESClient {
	return NewSESClientWithAPI(ses.NewFromConfig(cfg), from)
}

func NewSESClientWithAPI(api SESAPI, from string) *SESClient {
	return &SESClient{client: api, from: from}
}

func (s *SESClient) SendText(ctx context.Context, to []string, subject, body string) (string, error) {
	if len(to) == 0 {
		return "", fmt.Errorf("ses: no recipients")
	}
	input := &ses.SendEmailInput{
		Source:      sdkaws.String(s.from),
		Destination: &types.Destination{ToAddresses: to},
		Message: &types.Message{
			Subject: &types.Content{Data: sdkaws.String(subject), Charset: sdkaws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: sdkaws.String(body), Charset: sdkaws.String("UTF-8")},
			},
		},
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return "", fmt.Errorf("ses send from %s: %w", s.from, err)
	}
	return sdkaws.ToString(out.MessageId), nil
}
