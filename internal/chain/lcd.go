package chain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"transfers-client/pkg/errno"
	"transfers-client/pkg/logger"

	"go.uber.org/zap"
)

// LCDClient queries contracts through the cosmos REST gateway.
type LCDClient struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

func NewLCDClient(baseURL string, log *zap.Logger) *LCDClient {
	if log == nil {
		log = logger.Named("lcd")
	}
	return &LCDClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		log:     log,
	}
}

type smartQueryResponse struct {
	Data json.RawMessage `json:"data"`
}

type lcdError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// QuerySmart implements Querier via
// GET /cosmwasm/wasm/v1/contract/{address}/smart/{base64(query)}.
func (c *LCDClient) QuerySmart(ctx context.Context, contract string, msg json.Marshaler, out any) error {
	query, err := msg.MarshalJSON()
	if err != nil {
		return errno.Wrap(errno.ErrQueryFailed, err)
	}

	endpoint := fmt.Sprintf("%s/cosmwasm/wasm/v1/contract/%s/smart/%s",
		c.baseURL, url.PathEscape(contract), url.PathEscape(base64.StdEncoding.EncodeToString(query)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errno.Wrap(errno.ErrQueryFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errno.Wrap(errno.ErrQueryFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return errno.Wrap(errno.ErrQueryFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		var le lcdError
		if json.Unmarshal(body, &le) == nil && le.Message != "" {
			return errno.Wrap(errno.ErrQueryFailed, fmt.Errorf("status %d: %s", resp.StatusCode, le.Message))
		}
		return errno.Wrap(errno.ErrQueryFailed, fmt.Errorf("status %d", resp.StatusCode))
	}

	var sr smartQueryResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return errno.Wrap(errno.ErrQueryFailed, fmt.Errorf("decode response: %w", err))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(sr.Data, out); err != nil {
		return errno.Wrap(errno.ErrQueryFailed, fmt.Errorf("decode data: %w", err))
	}

	c.log.Debug("smart query", zap.String("contract", contract), zap.ByteString("query", query))
	return nil
}
