package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/Tzelon/thunder-mail/internal/model"
)

// configurationSet tags every send so the provider publishes feedback
// events for it.
const configurationSet = "thunder-mail"

type SESProvider struct {
	client     *ses.Client
	returnPath string
}

// NewSESFactory returns a Factory that builds an SES client from each org's
// stored credentials.
func NewSESFactory(returnPath string) Factory {
	return func(org *model.Org) (EmailProvider, error) {
		if org.SESAccessKeyID == "" || org.SESSecretAccessKey == "" || org.SESRegion == "" {
			return nil, errors.New("org has no provider credentials")
		}
		cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(org.SESRegion),
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(org.SESAccessKeyID, org.SESSecretAccessKey, ""),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("load provider config: %w", err)
		}
		return &SESProvider{client: ses.NewFromConfig(cfg), returnPath: returnPath}, nil
	}
}

func (p *SESProvider) Send(ctx context.Context, in SendInput) (string, error) {
	body := &types.Body{}
	if in.HTML != "" {
		body.Html = &types.Content{Charset: aws.String("UTF-8"), Data: aws.String(in.HTML)}
	}
	if in.Text != "" {
		body.Text = &types.Content{Charset: aws.String("UTF-8"), Data: aws.String(in.Text)}
	}

	input := &ses.SendEmailInput{
		Source: aws.String(in.From),
		Destination: &types.Destination{
			ToAddresses:  in.To,
			CcAddresses:  in.CC,
			BccAddresses: in.BCC,
		},
		Message: &types.Message{
			Subject: &types.Content{Charset: aws.String("UTF-8"), Data: aws.String(in.Subject)},
			Body:    body,
		},
		ConfigurationSetName: aws.String(configurationSet),
	}
	if p.returnPath != "" {
		input.ReturnPath = aws.String(p.returnPath)
	}

	out, err := p.client.SendEmail(ctx, input)
	if err != nil {
		return "", err
	}
	return aws.ToString(out.MessageId), nil
}

func (p *SESProvider) GetSendQuota(ctx context.Context) (Quota, error) {
	out, err := p.client.GetSendQuota(ctx, &ses.GetSendQuotaInput{})
	if err != nil {
		return Quota{}, err
	}
	return Quota{
		Max24HourSend:   out.Max24HourSend,
		SentLast24Hours: out.SentLast24Hours,
		MaxSendRate:     out.MaxSendRate,
	}, nil
}

var _ EmailProvider = (*SESProvider)(nil)
