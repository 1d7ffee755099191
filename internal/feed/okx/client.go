package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aadarsh2904/GoQunat-Project/internal/httpclient"
	"github.com/aadarsh2904/GoQunat-Project/internal/rate"
	"github.com/aadarsh2904/GoQunat-Project/pkg/model"
)

// Client wraps OKX's public market-data REST API.
type Client struct {
	logger  *zap.Logger
	exec    *httpclient.Executor
	baseURL string
	depth   int
	now     func() time.Time
}

// NewClient constructs an OKX REST client. depth is clamped to the venue's
// maximum of 400 levels per side.
func NewClient(logger *zap.Logger, rateMgr *rate.Manager, httpClient *http.Client, baseURL string, depth int) *Client {
	if depth <= 0 {
		depth = defaultDepth
	}
	if depth > maxRESTDepth {
		depth = maxRESTDepth
	}
	exec := httpclient.New(logger, rateMgr, httpClient, 2, "okx", func(status int, body []byte) error {
		var errResp errorResponse
		_ = json.Unmarshal(body, &errResp)

		logger.Warn("okx.client_error",
			zap.Int("status", status),
			zap.String("code", errResp.Code),
			zap.String("msg", errResp.Msg))

		msg := errResp.Msg
		if msg == "" {
			msg = string(body)
		}
		return fmt.Errorf("okx returned %d: %s", status, msg)
	})
	return &Client{
		logger:  logger,
		exec:    exec,
		baseURL: strings.TrimRight(baseURL, "/"),
		depth:   depth,
		now:     time.Now,
	}
}

// rateLimitKey scopes the limiter to one endpoint of this venue.
func rateLimitKey(path string) string { return Venue + ":" + path }

// FetchBook retrieves a full-depth snapshot for one instrument.
// GET /api/v5/market/books?instId=BTC-USDT&sz=400
func (c *Client) FetchBook(ctx context.Context, instID string) (*model.OrderBook, error) {
	q := url.Values{}
	q.Set("instId", instID)
	q.Set("sz", strconv.Itoa(c.depth))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+booksPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	var resp booksResponse
	if err := c.exec.DoJSON(ctx, req, rateLimitKey(booksPath), &resp); err != nil {
		return nil, err
	}
	if resp.Code != successCode {
		return nil, fmt.Errorf("okx books %s: code %s: %s", instID, resp.Code, resp.Msg)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("okx books %s: empty data", instID)
	}
	return ToOrderBook(instID, resp.Data[0], c.now())
}
