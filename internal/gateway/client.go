package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/bankmore/internal/apperr"
	"github.com/baharkarakas/bankmore/internal/metrics"
)

const DefaultTimeout = 30 * time.Second

// Client talks to the account service over HTTP. It never retries; a
// timeout or a non-2xx answer is an UpstreamFailure.
type Client struct {
	base    string
	http    *http.Client
	tokens  TokenSource
	timeout time.Duration
	log     *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		base:    strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		timeout: timeout,
		log:     log,
	}
}

type errorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	outcome := "error"
	defer func() {
		metrics.GatewayLatency.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
	}()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, apperr.Wrap(apperr.Internal, "encode request", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return 0, apperr.Wrap(apperr.Internal, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return 0, apperr.Wrap(apperr.Internal, "service token", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("account service unreachable", "op", op, "err", err)
		return 0, apperr.Wrap(apperr.UpstreamFailure, "account service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = "rejected"
		var eb errorBody
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&eb)
		c.log.Warn("account service rejected call", "op", op, "status", resp.StatusCode, "type", eb.Type, "message", eb.Message)
		return resp.StatusCode, apperr.E(apperr.UpstreamFailure,
			fmt.Sprintf("account service answered %d: %s", resp.StatusCode, eb.Message))
	}
	outcome = "ok"
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			outcome = "error"
			return resp.StatusCode, apperr.Wrap(apperr.UpstreamFailure, "decode account service response", err)
		}
	}
	return resp.StatusCode, nil
}

func (c *Client) ApplyMovement(ctx context.Context, r MovementRequest) error {
	_, err := c.do(ctx, "movement", http.MethodPost, "/api/account/movement", r, nil)
	return err
}

func (c *Client) Resolve(ctx context.Context, ref string) (AccountInfo, error) {
	var info AccountInfo
	status, err := c.do(ctx, "resolve", http.MethodGet, "/api/account/resolve/"+url.PathEscape(ref), nil, &info)
	if status == http.StatusNotFound {
		return AccountInfo{}, apperr.E(apperr.AccountNotFound, "account not found")
	}
	return info, err
}

type balanceBody struct {
	AccountNumber string          `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
}

func (c *Client) FreshBalance(ctx context.Context, number string) (decimal.Decimal, error) {
	var b balanceBody
	status, err := c.do(ctx, "balance", http.MethodGet, "/api/account/balance/"+url.PathEscape(number)+"?fresh=1", nil, &b)
	if status == http.StatusNotFound {
		return decimal.Zero, apperr.E(apperr.AccountNotFound, "account not found")
	}
	if err != nil {
		return decimal.Zero, err
	}
	return b.Balance, nil
}
