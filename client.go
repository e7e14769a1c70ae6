package alphasms

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the gateway endpoint the client posts to unless
// overridden with WithBaseURL.
const DefaultBaseURL = "http://alphasms.com.ua/api/xml.php"

const (
	defaultTimeout   = 30 * time.Second
	defaultBodyLimit = 64 * 1024
	defaultRegion    = "UA"
)

// HTTPClient abstracts the http.Client Do method for easier testing. The
// standard *http.Client satisfies this interface.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Auth carries the gateway credentials. Exactly one mode must be set: either
// APIKey, or Login together with Password.
type Auth struct {
	APIKey   string
	Login    string
	Password string
}

func (a Auth) validate() error {
	hasKey := strings.TrimSpace(a.APIKey) != ""
	hasPair := strings.TrimSpace(a.Login) != "" && strings.TrimSpace(a.Password) != ""

	switch {
	case hasKey && hasPair:
		return invalidf("set an API key or a login/password pair, not both")
	case !hasKey && !hasPair:
		return invalidf("an API key or a login/password pair is required")
	}
	return nil
}

// Option customises client behaviour.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used to talk to the gateway. When
// set, WithTimeout has no effect.
func WithHTTPClient(client HTTPClient) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the gateway endpoint. Useful for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if strings.TrimSpace(baseURL) != "" {
			c.baseURL = strings.TrimSpace(baseURL)
		}
	}
}

// WithTimeout sets the request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithDefaultRegion sets the region used to parse national phone numbers.
func WithDefaultRegion(region string) Option {
	return func(c *Client) {
		if strings.TrimSpace(region) != "" {
			c.region = strings.ToUpper(strings.TrimSpace(region))
		}
	}
}

// WithBodyLimit adjusts how many bytes are read from gateway responses.
func WithBodyLimit(limit int64) Option {
	return func(c *Client) {
		if limit > 0 {
			c.maxBodyBytes = limit
		}
	}
}

// Client binds the AlphaSMS XML-over-HTTP API: it serializes requests into
// the gateway schema, posts them, and decodes responses into typed results.
// A Client is not designed for concurrent use from multiple goroutines.
type Client struct {
	logger       zerolog.Logger
	auth         Auth
	httpClient   HTTPClient
	baseURL      string
	region       string
	timeout      time.Duration
	maxBodyBytes int64
	newID        func() string
}

// NewClient constructs a gateway client. The logger defaults to a no-op
// logger, so the library is silent unless the caller opts in.
func NewClient(auth Auth, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if err := auth.validate(); err != nil {
		return nil, err
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	c := &Client{
		logger:       logger,
		auth:         auth,
		baseURL:      DefaultBaseURL,
		region:       defaultRegion,
		timeout:      defaultTimeout,
		maxBodyBytes: defaultBodyLimit,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c, nil
}

// SendMessages submits the batch in a single gateway round trip and returns
// one SendResult per message, in input order. An empty batch fails fast
// without touching the network.
func (c *Client) SendMessages(ctx context.Context, msgs []Message) ([]SendResult, error) {
	if len(msgs) == 0 {
		return nil, invalidf("at least one message is required")
	}

	normalized := make([]Message, len(msgs))
	ids := make([]string, len(msgs))
	for i, m := range msgs {
		nm, err := m.normalize(c.region)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		normalized[i] = nm
		ids[i] = c.newID()
	}

	body, err := encodeSend(c.auth, normalized, ids)
	if err != nil {
		return nil, err
	}
	data, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}
	results, err := decodeSend(data, ids)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().Int("messages", len(results)).Msg("batch send completed")
	return results, nil
}

// SendSMS sends a single message as a batch of one.
func (c *Client) SendSMS(ctx context.Context, msg Message) (SendResult, error) {
	results, err := c.SendMessages(ctx, []Message{msg})
	if err != nil {
		return SendResult{}, err
	}
	return results[0], nil
}

// Status queries the delivery state of a previously submitted message.
func (c *Client) Status(ctx context.Context, smsID string) (StatusResult, error) {
	smsID = strings.TrimSpace(smsID)
	if smsID == "" {
		return StatusResult{}, invalidf("sms id is required")
	}

	body, err := encodeStatus(c.auth, []string{smsID})
	if err != nil {
		return StatusResult{}, err
	}
	data, err := c.post(ctx, body)
	if err != nil {
		return StatusResult{}, err
	}
	reports, err := decodeStatus(data)
	if err != nil {
		return StatusResult{}, err
	}

	report, ok := reports[smsID]
	if !ok {
		return StatusResult{}, malformedf("response has no entry for sms id %s", smsID)
	}
	return report, nil
}

// Balance returns the remaining account balance.
func (c *Client) Balance(ctx context.Context) (BalanceResult, error) {
	body, err := encodeBalance(c.auth)
	if err != nil {
		return BalanceResult{}, err
	}
	data, err := c.post(ctx, body)
	if err != nil {
		return BalanceResult{}, err
	}
	return decodeBalance(data)
}

// MessageQueue returns a batching queue bound to this client. See
// MessageQueue for the flush contract.
func (c *Client) MessageQueue() *MessageQueue {
	return newMessageQueue(c)
}

// post performs the single synchronous round trip every operation shares.
// Retry policy, if any, belongs to the caller.
func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, wrapTransport(err)
	}
	defer resp.Body.Close()

	data, err := c.readBody(resp.Body)
	if err != nil {
		return nil, wrapTransport(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, wrapTransport(fmt.Errorf("http %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	}

	c.logger.Debug().Int("status", resp.StatusCode).Int("bytes", len(data)).Msg("gateway request completed")
	return data, nil
}

func (c *Client) readBody(rc io.ReadCloser) ([]byte, error) {
	limit := c.maxBodyBytes
	if limit <= 0 {
		limit = defaultBodyLimit
	}

	data, err := io.ReadAll(io.LimitReader(rc, limit))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}
