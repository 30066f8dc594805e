package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type capturedRequest struct {
	path        string
	contentType string
	body        string
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, func() []capturedRequest) {
	t.Helper()

	var (
		mu       sync.Mutex
		requests []capturedRequest
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		mu.Lock()
		requests = append(requests, capturedRequest{r.URL.Path, r.Header.Get("Content-Type"), string(body)})
		mu.Unlock()

		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []capturedRequest {
		mu.Lock()
		defer mu.Unlock()

		return append([]capturedRequest(nil), requests...)
	}
}

func decode(t *testing.T, body string) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &out))

	return out
}

func TestTelegramSink(t *testing.T) {
	t.Parallel()

	srv, requests := newCaptureServer(t, http.StatusOK)

	sink, err := Parse(context.Background(), "tgram://1:TOKEN/-100/42", WithEndpoints(Endpoints{Telegram: srv.URL}))
	require.NoError(t, err)
	require.NoError(t, sink.Notify(context.Background(), Message{Title: "ירי רקטות", Body: "שדרות"}))

	got := requests()
	require.Len(t, got, 2)
	require.Equal(t, "/bot1:TOKEN/sendMessage", got[0].path)
	require.Equal(t, "application/json", got[0].contentType)
	require.Equal(t, map[string]any{"chat_id": "-100", "text": "ירי רקטות\nשדרות"}, decode(t, got[0].body))
	require.Equal(t, "42", decode(t, got[1].body)["chat_id"])
}

func TestDiscordAndSlackSinks(t *testing.T) {
	t.Parallel()

	srv, requests := newCaptureServer(t, http.StatusNoContent)
	endpoints := WithEndpoints(Endpoints{Discord: srv.URL + "/discord", Slack: srv.URL + "/slack"})
	ctx := context.Background()

	discord, err := Parse(ctx, "discord://1234/secret", endpoints)
	require.NoError(t, err)
	require.NoError(t, discord.Notify(ctx, Message{Title: "t", Body: "b"}))

	slack, err := Parse(ctx, "slack://A/B/C", endpoints)
	require.NoError(t, err)
	require.NoError(t, slack.Notify(ctx, Message{Title: "t", Body: "b"}))

	got := requests()
	require.Len(t, got, 2)
	require.Equal(t, "/discord/1234/secret", got[0].path)
	require.Equal(t, "/slack/A/B/C", got[1].path)
	require.Equal(t, "*t*\nb", decode(t, got[1].body)["text"])
}

func TestJSONSink(t *testing.T) {
	t.Parallel()

	srv, requests := newCaptureServer(t, http.StatusOK)
	target, err := url.Parse(srv.URL)
	require.NoError(t, err)

	sink, err := Parse(context.Background(), "json://"+target.Host+"/hook")
	require.NoError(t, err)
	require.NoError(t, sink.Notify(context.Background(), Message{Title: "t", Body: "b"}))

	got := requests()
	require.Len(t, got, 1)
	require.Equal(t, "/hook", got[0].path)
	require.Equal(t, "b", decode(t, got[0].body)["message"])
}

func TestPushoverSink(t *testing.T) {
	t.Parallel()

	srv, requests := newCaptureServer(t, http.StatusOK)

	sink, err := Parse(context.Background(), "pover://user@app", WithEndpoints(Endpoints{Pushover: srv.URL + "/1/messages.json"}))
	require.NoError(t, err)
	require.NoError(t, sink.Notify(context.Background(), Message{Title: "t", Body: "b"}))

	got := requests()
	require.Len(t, got, 1)
	require.Equal(t, "application/x-www-form-urlencoded", got[0].contentType)

	values, err := url.ParseQuery(got[0].body)
	require.NoError(t, err)
	require.Equal(t, "user", values.Get("user"))
	require.Equal(t, "app", values.Get("token"))
	require.Equal(t, "b", values.Get("message"))
}

func TestWebhookReportsStatus(t *testing.T) {
	t.Parallel()

	srv, _ := newCaptureServer(t, http.StatusForbidden)

	sink, err := Parse(context.Background(), "discord://1/2", WithEndpoints(Endpoints{Discord: srv.URL}))
	require.NoError(t, err)

	err = sink.Notify(context.Background(), Message{Title: "t", Body: "b"})
	require.ErrorContains(t, err, "unexpected status 403")
}

type fakeDialer struct {
	sent []*gomail.Message
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)

	return nil
}

// TestWebhookErrorsHideTokens checks that transport failures do not expose
// the credentials embedded in the request URL.
func TestWebhookErrorsHideTokens(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	closed := srv.URL
	srv.Close()

	endpoints := WithEndpoints(Endpoints{Telegram: closed, Discord: closed, Slack: closed})

	for _, uri := range []string{
		"tgram://123456:SECRET/987",
		"discord://42/SECRET",
		"slack://T000/B000/SECRET",
	} {
		sink, err := Parse(context.Background(), uri, endpoints)
		require.NoError(t, err, uri)

		err = sink.Notify(context.Background(), Message{Title: "t", Body: "b"})
		require.Error(t, err, uri)
		require.Contains(t, err.Error(), "request failed", uri)
		require.NotContains(t, err.Error(), "SECRET", uri)
	}
}

func TestSMTPSink(t *testing.T) {
	t.Parallel()

	dialer := &fakeDialer{}
	sink := &smtpSink{
		envelope: envelope{from: "bot@example.com", to: []string{"a@example.com"}},
		host:     "smtp.example.com",
		dialer:   dialer,
	}

	require.NoError(t, sink.Notify(context.Background(), Message{Title: "ירי רקטות", Body: "b"}))
	require.Len(t, dialer.sent, 1)
	require.Equal(t, []string{"a@example.com"}, dialer.sent[0].GetHeader("To"))
	require.Equal(t, []string{"ירי רקטות"}, dialer.sent[0].GetHeader("Subject"))
}
