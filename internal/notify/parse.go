package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/resend/resend-go/v2"
	"go.uber.org/multierr"
	"gopkg.in/gomail.v2"
)

var (
	// ErrUnsupportedScheme is returned for URIs no sink understands.
	ErrUnsupportedScheme = errors.New("unsupported notifier scheme")
	// ErrInvalidURI is returned when a known scheme lacks required parts.
	ErrInvalidURI = errors.New("invalid notifier URI")
)

// Default SMTP ports.
const (
	smtpPort    = 25
	smtpTLSPort = 465
)

// Endpoints overrides the public webhook APIs.
type Endpoints struct {
	Telegram string
	Discord  string
	Slack    string
	Pushover string
}

type parseOptions struct {
	client    *http.Client
	endpoints Endpoints
}

// ParseOption configures Parse.
type ParseOption func(*parseOptions)

// WithHTTPClient sets the client used by webhook sinks.
func WithHTTPClient(client *http.Client) ParseOption {
	return func(o *parseOptions) {
		if client != nil {
			o.client = client
		}
	}
}

// WithEndpoints overrides the webhook APIs, empty fields keep the defaults.
func WithEndpoints(e Endpoints) ParseOption {
	return func(o *parseOptions) {
		if e.Telegram != "" {
			o.endpoints.Telegram = e.Telegram
		}

		if e.Discord != "" {
			o.endpoints.Discord = e.Discord
		}

		if e.Slack != "" {
			o.endpoints.Slack = e.Slack
		}

		if e.Pushover != "" {
			o.endpoints.Pushover = e.Pushover
		}
	}
}

// ParseAll parses every URI and reports all failures together.
func ParseAll(ctx context.Context, uris []string, opts ...ParseOption) ([]Sink, error) {
	var (
		sinks = make([]Sink, 0, len(uris))
		errs  error
	)

	for _, uri := range uris {
		sink, err := Parse(ctx, uri, opts...)
		if err != nil {
			errs = multierr.Append(errs, err)

			continue
		}

		sinks = append(sinks, sink)
	}

	return sinks, errs
}

// Parse builds a sink from its URI.
//
//nolint:ireturn // Sinks are consumed through the interface.
func Parse(ctx context.Context, uri string, opts ...ParseOption) (Sink, error) {
	o := parseOptions{
		client: http.DefaultClient,
		endpoints: Endpoints{
			Telegram: TelegramAPI,
			Discord:  DiscordAPI,
			Slack:    SlackAPI,
			Pushover: PushoverAPI,
		},
	}

	for _, opt := range opts {
		opt(&o)
	}

	uri = strings.TrimSpace(uri)
	hook := webhook{client: o.client}

	// Bot tokens contain a colon that url.Parse would read as a port.
	if rest, ok := cutScheme(uri, "tgram"); ok {
		parts := strings.FieldsFunc(rest, func(r rune) bool { return r == '/' })
		if len(parts) < 2 { //nolint:mnd // Token and at least one chat.
			return nil, fmt.Errorf("%w: tgram://...: expected tgram://token/chat", ErrInvalidURI)
		}

		return &telegramSink{webhook: hook, base: o.endpoints.Telegram, token: parts[0], chats: parts[1:]}, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		// url.Error would echo credentials.
		return nil, fmt.Errorf("%w: malformed URI", ErrInvalidURI)
	}

	parts := pathParts(u)

	switch strings.ToLower(u.Scheme) {
	case "discord":
		if u.Host == "" || len(parts) != 1 {
			return nil, invalid(u, "expected discord://id/token")
		}

		return &discordSink{webhook: hook, base: o.endpoints.Discord, id: u.Host, token: parts[0]}, nil
	case "slack":
		if u.Host == "" || len(parts) != 2 { //nolint:mnd // Three webhook tokens.
			return nil, invalid(u, "expected slack://A/B/C")
		}

		return &slackSink{webhook: hook, base: o.endpoints.Slack, tokens: append([]string{u.Host}, parts...)}, nil
	case "json", "jsons":
		if u.Host == "" {
			return nil, invalid(u, "host is required")
		}

		return newJSONSink(hook, u), nil
	case "pover":
		if u.User == nil || u.User.Username() == "" || u.Host == "" {
			return nil, invalid(u, "expected pover://user@token")
		}

		return &pushoverSink{webhook: hook, endpoint: o.endpoints.Pushover, user: u.User.Username(), token: u.Host}, nil
	case "mailto", "mailtos":
		return newSMTPSink(u)
	case "ses":
		return newSESSink(ctx, u)
	case "resend":
		return newResendSink(u)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

func newJSONSink(hook webhook, u *url.URL) *jsonSink {
	target := *u
	target.Scheme = "http"

	if strings.EqualFold(u.Scheme, "jsons") {
		target.Scheme = "https"
	}

	return &jsonSink{webhook: hook, endpoint: target.String(), host: u.Host}
}

func newSMTPSink(u *url.URL) (*smtpSink, error) {
	env, err := parseEnvelope(u)
	if err != nil {
		return nil, err
	}

	host := u.Hostname()
	if host == "" {
		return nil, invalid(u, "host is required")
	}

	secure := strings.EqualFold(u.Scheme, "mailtos")

	port := smtpPort
	if secure {
		port = smtpTLSPort
	}

	if p := u.Port(); p != "" {
		if port, err = strconv.Atoi(p); err != nil {
			return nil, invalid(u, "bad port")
		}
	}

	var user, pass string
	if u.User != nil {
		user = u.User.Username()
		pass, _ = u.User.Password()
	}

	dialer := gomail.NewDialer(host, port, user, pass)
	dialer.SSL = secure

	return &smtpSink{envelope: env, host: host, dialer: dialer}, nil
}

func newSESSink(ctx context.Context, u *url.URL) (*sesSink, error) {
	env, err := parseEnvelope(u)
	if err != nil {
		return nil, err
	}

	if u.Host == "" {
		return nil, invalid(u, "expected ses://region")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(u.Host))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &sesSink{envelope: env, region: u.Host, client: sesv2.NewFromConfig(cfg)}, nil
}

func newResendSink(u *url.URL) (*resendSink, error) {
	env, err := parseEnvelope(u)
	if err != nil {
		return nil, err
	}

	if u.Host == "" {
		return nil, invalid(u, "expected resend://apikey")
	}

	return &resendSink{envelope: env, emails: resend.NewClient(u.Host).Emails}, nil
}

func parseEnvelope(u *url.URL) (envelope, error) {
	query := u.Query()

	env := envelope{from: query.Get("from")}

	for _, addr := range strings.Split(query.Get("to"), ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			env.to = append(env.to, addr)
		}
	}

	if env.from == "" || len(env.to) == 0 {
		return envelope{}, invalid(u, "from and to are required")
	}

	return env, nil
}

func cutScheme(uri, scheme string) (string, bool) {
	prefix := scheme + "://"
	if len(uri) < len(prefix) || !strings.EqualFold(uri[:len(prefix)], prefix) {
		return "", false
	}

	return uri[len(prefix):], true
}

func pathParts(u *url.URL) []string {
	var parts []string

	for _, p := range strings.Split(u.Path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}

	return parts
}

// invalid reports a problem with u without echoing its credentials.
func invalid(u *url.URL, reason string) error {
	return fmt.Errorf("%w: %s://...: %s", ErrInvalidURI, u.Scheme, reason)
}
