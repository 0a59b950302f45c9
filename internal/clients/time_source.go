package clients

import (
	"context"
	"net/http"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/vadiminshakov/binance-exporter/internal/domain"
)

const serverTimeOp = "GET /api/v3/time"

// TimeSource provides the request timestamp in milliseconds since epoch.
type TimeSource interface {
	NowMs(ctx context.Context) (int64, error)
}

// LocalTime reads timestamps from the local clock.
type LocalTime struct {
	clock clock.Clock
}

// NewLocalTime creates a local time source. A nil clock means the wall clock.
func NewLocalTime(c clock.Clock) *LocalTime {
	if c == nil {
		c = clock.New()
	}
	return &LocalTime{clock: c}
}

// NowMs returns the local time in milliseconds.
func (t *LocalTime) NowMs(context.Context) (int64, error) {
	return t.clock.Now().UnixMilli(), nil
}

// ServerTime asks the exchange for its clock before every signed call,
// which keeps requests inside recvWindow even when the host clock drifts.
type ServerTime struct {
	client *binance.Client
}

// NewServerTime creates a server time source using the given base URL and HTTP client.
func NewServerTime(baseURL string, httpClient *http.Client) *ServerTime {
	client := binance.NewClient("", "")
	client.BaseURL = baseURL
	if httpClient != nil {
		client.HTTPClient = httpClient
	}
	return &ServerTime{client: client}
}

// NowMs returns the exchange server time in milliseconds.
func (t *ServerTime) NowMs(ctx context.Context) (int64, error) {
	serverTime, err := t.client.NewServerTimeService().Do(ctx)
	if err != nil {
		var apiErr *common.APIError
		if errors.As(err, &apiErr) {
			return 0, errors.Wrap(&domain.APIError{Code: apiErr.Code, Message: apiErr.Message}, serverTimeOp)
		}
		return 0, &domain.TransportError{Op: serverTimeOp, Err: err}
	}
	return serverTime, nil
}
