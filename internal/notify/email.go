package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/resend/resend-go/v2"
	"gopkg.in/gomail.v2"
)

// envelope is shared by the email sinks.
type envelope struct {
	from string
	to   []string
}

// mailDialer is the part of *gomail.Dialer the SMTP sink uses.
type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// smtpSink sends email over SMTP.
type smtpSink struct {
	envelope

	host   string
	dialer mailDialer
}

func (s *smtpSink) Name() string {
	return "mailto:" + s.host
}

// Notify implements Sink. gomail has no context support, so the call is
// bounded only by the dispatcher deadline.
func (s *smtpSink) Notify(_ context.Context, msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", s.to...)
	m.SetHeader("Subject", msg.Title)
	m.SetBody("text/plain", msg.Body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

// sesAPI is the part of *sesv2.Client the SES sink uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// sesSink sends email through AWS SES.
type sesSink struct {
	envelope

	region string
	client sesAPI
}

func (s *sesSink) Name() string {
	return "ses:" + s.region
}

func (s *sesSink) Notify(ctx context.Context, msg Message) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: &s.from,
		Destination: &types.Destination{
			ToAddresses: s.to,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &msg.Title},
				Body: &types.Body{
					Text: &types.Content{Data: &msg.Body},
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses send: %w", err)
	}

	return nil
}

// resendAPI is the part of the Resend emails service the sink uses.
type resendAPI interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// resendSink sends email through the Resend API.
type resendSink struct {
	envelope

	emails resendAPI
}

func (s *resendSink) Name() string {
	return "resend"
}

func (s *resendSink) Notify(_ context.Context, msg Message) error {
	_, err := s.emails.Send(&resend.SendEmailRequest{
		From:    s.from,
		To:      s.to,
		Subject: msg.Title,
		Text:    msg.Body,
	})
	if err != nil {
		return fmt.Errorf("resend send: %w", err)
	}

	return nil
}
