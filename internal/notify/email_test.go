package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params

	return &sesv2.SendEmailOutput{}, f.err
}

func TestSESSink(t *testing.T) {
	t.Parallel()

	client := &fakeSES{}
	sink := &sesSink{
		envelope: envelope{from: "bot@example.com", to: []string{"a@example.com"}},
		region:   "eu-central-1",
		client:   client,
	}

	require.Equal(t, "ses:eu-central-1", sink.Name())
	require.NoError(t, sink.Notify(context.Background(), Message{Title: "title", Body: "body"}))

	require.Equal(t, "bot@example.com", *client.input.FromEmailAddress)
	require.Equal(t, []string{"a@example.com"}, client.input.Destination.ToAddresses)
	require.Equal(t, "title", *client.input.Content.Simple.Subject.Data)
	require.Equal(t, "body", *client.input.Content.Simple.Body.Text.Data)
}

func TestSESSinkWrapsErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("throttled")
	sink := &sesSink{client: &fakeSES{err: boom}}

	require.ErrorIs(t, sink.Notify(context.Background(), Message{}), boom)
}

type fakeResend struct {
	request *resend.SendEmailRequest
}

func (f *fakeResend) Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	f.request = params

	return &resend.SendEmailResponse{Id: "1"}, nil
}

func TestResendSink(t *testing.T) {
	t.Parallel()

	emails := &fakeResend{}
	sink := &resendSink{
		envelope: envelope{from: "bot@example.com", to: []string{"a@example.com", "b@example.com"}},
		emails:   emails,
	}

	require.NoError(t, sink.Notify(context.Background(), Message{Title: "title", Body: "body"}))
	require.Equal(t, "title", emails.request.Subject)
	require.Equal(t, "body", emails.request.Text)
	require.Equal(t, []string{"a@example.com", "b@example.com"}, emails.request.To)
}
