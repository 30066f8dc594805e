package publisher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/redalert/internal/domain/alert"
)

type message struct {
	topic   string
	payload string
}

type recorder struct {
	messages []message
	err      error
}

func (r *recorder) Publish(_ context.Context, topic string, payload []byte) error {
	if r.err != nil {
		return r.err
	}

	r.messages = append(r.messages, message{topic, string(payload)})

	return nil
}

func TestPublisherTopics(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	p := New(rec, "/redalert/")
	ctx := context.Background()

	a, err := alert.Parse(`{"id": "133", "title": "ירי רקטות וטילים", "data": ["תל אביב - מרכז העיר", "רמת גן"], "desc": "היכנסו למרחב המוגן"}`)
	require.NoError(t, err)

	require.NoError(t, p.PublishData(ctx, a.Regions))
	require.NoError(t, p.PublishAlert(ctx, a))
	require.NoError(t, p.PublishStatus(ctx, StatusOn))

	require.Equal(t, []message{
		{"redalert/data", `["תל אביב - מרכז העיר","רמת גן"]`},
		{"redalert/alerts", string(a.Raw)},
		{"redalert/status", "on"},
	}, rec.messages)
}

func TestPublisherEmptyNamespace(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	p := New(rec, "")

	require.NoError(t, p.PublishData(context.Background(), nil))
	require.Equal(t, []message{{"data", "[]"}}, rec.messages)
}

func TestPublisherWrapsSenderErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	p := New(&recorder{err: boom}, "redalert")

	err := p.PublishStatus(context.Background(), StatusOff)
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "redalert/status")
}
