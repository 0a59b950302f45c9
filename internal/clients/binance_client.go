package clients

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/binance-exporter/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL Binance REST API endpoint.
	DefaultBaseURL = "https://api.binance.com"

	apiKeyHeader = "X-MBX-APIKEY"

	defaultTimeout    = 5 * time.Second
	defaultRecvWindow = 5 * time.Second
	maxLoggedBody     = 2048
)

// Binance error codes meaning the key or the signature was refused.
var authErrorCodes = map[int64]struct{}{
	-1022: {}, // signature for this request is not valid
	-2014: {}, // API-key format invalid
	-2015: {}, // invalid API-key, IP, or permissions for action
}

// BinanceClient performs signed calls against the Binance private REST API.
type BinanceClient struct {
	baseURL    string
	apiKey     string
	signer     *Signer
	recvWindow time.Duration
	httpClient *http.Client
	timeSource TimeSource
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// Option configures the BinanceClient.
type Option func(*BinanceClient)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option {
	return func(c *BinanceClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets the HTTP client used for every call.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *BinanceClient) {
		c.httpClient = hc
	}
}

// WithRecvWindow sets the recvWindow parameter. Zero omits it.
func WithRecvWindow(d time.Duration) Option {
	return func(c *BinanceClient) {
		c.recvWindow = d
	}
}

// WithTimeSource sets where request timestamps come from.
func WithTimeSource(ts TimeSource) Option {
	return func(c *BinanceClient) {
		c.timeSource = ts
	}
}

// WithRateLimit caps outbound calls per second. Zero or less disables the limit.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *BinanceClient) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *BinanceClient) {
		c.logger = l
	}
}

// NewBinanceClient creates a signed API client for the given credentials.
func NewBinanceClient(creds domain.Credentials, opts ...Option) *BinanceClient {
	c := &BinanceClient{
		baseURL:    DefaultBaseURL,
		apiKey:     creds.APIKey,
		signer:     NewSigner(creds.APISecret),
		recvWindow: defaultRecvWindow,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeSource == nil {
		c.timeSource = NewLocalTime(nil)
	}
	return c
}

// Call performs one signed request and returns the raw JSON body.
func (c *BinanceClient) Call(ctx context.Context, method, path string, params url.Values) (json.RawMessage, error) {
	op := method + " " + path

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &domain.TransportError{Op: op, Err: err}
		}
	}

	ts, err := c.timeSource.NowMs(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get request timestamp")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create HTTP request")
	}
	req.URL.RawQuery = c.signer.SignedQuery(params, ts, c.recvWindow.Milliseconds())
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransportError{Op: op, Err: errors.Wrap(err, "failed to read response body")}
	}

	c.logger.Debug("binance response",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.String("body", truncate(body, maxLoggedBody)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classifyStatus(resp.StatusCode, body)
	}

	if !json.Valid(body) {
		return nil, &domain.DecodeError{Endpoint: path, Err: errors.New("response body is not valid JSON")}
	}

	return body, nil
}

// classifyStatus maps a non-2xx answer onto the error taxonomy.
func classifyStatus(status int, body []byte) error {
	var apiErr common.APIError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		apiErr = common.APIError{}
	}

	_, authCode := authErrorCodes[apiErr.Code]
	if status == http.StatusUnauthorized || authCode {
		return &domain.AuthenticationError{Status: status, Code: apiErr.Code, Message: apiErr.Message}
	}

	return &domain.APIError{
		Status:  status,
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Body:    truncate(body, maxLoggedBody),
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
