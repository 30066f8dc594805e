package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/multierr"
)

// Public endpoints of the webhook services.
const (
	TelegramAPI = "https://api.telegram.org"
	DiscordAPI  = "https://discord.com/api/webhooks"
	SlackAPI    = "https://hooks.slack.com/services"
	PushoverAPI = "https://api.pushover.net/1/messages.json"
)

// maxErrorBody limits how much of a failed response ends up in the error.
const maxErrorBody = 512

// webhook posts requests and checks the response status.
type webhook struct {
	client *http.Client
}

func (w webhook) postJSON(ctx context.Context, endpoint string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	return w.post(ctx, endpoint, "application/json", bytes.NewReader(body))
}

func (w webhook) postForm(ctx context.Context, endpoint string, values url.Values) error {
	return w.post(ctx, endpoint, "application/x-www-form-urlencoded", strings.NewReader(values.Encode()))
}

func (w webhook) post(ctx context.Context, endpoint, contentType string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)

	resp, err := w.client.Do(req)
	if err != nil {
		// The URL carries bot and webhook tokens, keep only the cause.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}

		return fmt.Errorf("request failed: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		content, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(content)))
	}

	//nolint:errcheck // Draining lets the connection be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

// telegramSink sends through the Bot API to one or more chats.
type telegramSink struct {
	webhook

	base  string
	token string
	chats []string
}

func (s *telegramSink) Name() string {
	return "tgram"
}

func (s *telegramSink) Notify(ctx context.Context, msg Message) error {
	endpoint := s.base + "/bot" + s.token + "/sendMessage"

	var errs error

	for _, chat := range s.chats {
		err := s.postJSON(ctx, endpoint, map[string]any{
			"chat_id": chat,
			"text":    joinMessage(msg),
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("chat %s: %w", chat, err))
		}
	}

	return errs
}

// discordSink posts to a channel webhook.
type discordSink struct {
	webhook

	base  string
	id    string
	token string
}

func (s *discordSink) Name() string {
	return "discord"
}

func (s *discordSink) Notify(ctx context.Context, msg Message) error {
	return s.postJSON(ctx, s.base+"/"+s.id+"/"+s.token, map[string]any{
		"username": "redalert",
		"embeds": []map[string]string{{
			"title":       msg.Title,
			"description": msg.Body,
		}},
	})
}

// slackSink posts to an incoming webhook.
type slackSink struct {
	webhook

	base   string
	tokens []string
}

func (s *slackSink) Name() string {
	return "slack"
}

func (s *slackSink) Notify(ctx context.Context, msg Message) error {
	return s.postJSON(ctx, s.base+"/"+strings.Join(s.tokens, "/"), map[string]string{
		"text": "*" + msg.Title + "*\n" + msg.Body,
	})
}

// jsonSink posts a generic JSON document to any URL.
type jsonSink struct {
	webhook

	endpoint string
	host     string
}

func (s *jsonSink) Name() string {
	return "json:" + s.host
}

func (s *jsonSink) Notify(ctx context.Context, msg Message) error {
	return s.postJSON(ctx, s.endpoint, map[string]string{
		"version": "1.0",
		"type":    "warning",
		"title":   msg.Title,
		"message": msg.Body,
	})
}

// pushoverSink sends through the Pushover messages API.
type pushoverSink struct {
	webhook

	endpoint string
	user     string
	token    string
}

func (s *pushoverSink) Name() string {
	return "pover"
}

func (s *pushoverSink) Notify(ctx context.Context, msg Message) error {
	values := url.Values{}
	values.Set("token", s.token)
	values.Set("user", s.user)
	values.Set("title", msg.Title)
	values.Set("message", msg.Body)

	return s.postForm(ctx, s.endpoint, values)
}

func joinMessage(msg Message) string {
	if msg.Title == "" {
		return msg.Body
	}

	return msg.Title + "\n" + msg.Body
}
