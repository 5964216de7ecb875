// Package relay is a client of the coordinator that stores the research
// metadata last published by every node.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-researchsync/tech"
)

const (
	ownStatePath = "/api/getSlaveMeta"
	peersPath    = "/api/slaves"
	publishPath  = "/api/editSlaveMeta"

	tokenHeader = "x-access-token"
)

var (
	// ErrNotRegistered is returned while the relay does not know this node yet.
	ErrNotRegistered = errors.New("node is not registered")
	// ErrUnexpectedStatus is returned for any other non-200 response.
	ErrUnexpectedStatus = errors.New("unexpected response status")
)

type Config struct {
	URL        string `mapstructure:"url"`
	Token      string `mapstructure:"token"`
	InstanceID string `mapstructure:"instance-id"`
	Password   string `mapstructure:"password"`
	// InstanceName names the research log file of this node.
	InstanceName string `mapstructure:"instance-name"`

	RequestTimeout    time.Duration `mapstructure:"request-timeout"`
	MaxRequestRetries int           `mapstructure:"retry-max"`
	RequestRetryDelay time.Duration `mapstructure:"retry-delay"`
}

func DefaultConfig() Config {
	return Config{
		URL:               "http://localhost:8080",
		InstanceName:      "instance",
		RequestTimeout:    10 * time.Second,
		MaxRequestRetries: 2,
		RequestRetryDelay: 500 * time.Millisecond,
	}
}

// A wrapper around zap.Logger to make it compatible with
// retryablehttp.LeveledLogger interface.
type retryableHttpLogger struct {
	inner *zap.Logger
}

func (r retryableHttpLogger) Error(format string, args ...any) {
	r.inner.Sugar().Errorw(format, args...)
}

func (r retryableHttpLogger) Info(format string, args ...any) {
	r.inner.Sugar().Infow(format, args...)
}

func (r retryableHttpLogger) Warn(format string, args ...any) {
	r.inner.Sugar().Warnw(format, args...)
}

func (r retryableHttpLogger) Debug(format string, args ...any) {
	r.inner.Sugar().Debugw(format, args...)
}

type Opt func(*Client)

func WithLogger(logger *zap.Logger) Opt {
	return func(c *Client) {
		c.logger = logger
		c.client.Logger = &retryableHttpLogger{inner: logger}
		c.client.ResponseLogHook = func(_ retryablehttp.Logger, resp *http.Response) {
			c.logger.Debug(
				"response received",
				zap.Stringer("url", resp.Request.URL),
				zap.Int("status", resp.StatusCode),
			)
		}
	}
}

// Client talks to the relay on behalf of one node.
type Client struct {
	logger  *zap.Logger
	cfg     Config
	baseURL *url.URL
	client  *retryablehttp.Client
}

func NewClient(cfg Config, opts ...Opt) (*Client, error) {
	baseURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing relay url: %w", err)
	}
	if baseURL.Scheme == "" {
		baseURL.Scheme = "http"
	}
	client := &retryablehttp.Client{
		HTTPClient:   &http.Client{Transport: gzhttp.Transport(http.DefaultTransport)},
		RetryMax:     cfg.MaxRequestRetries,
		RetryWaitMin: cfg.RequestRetryDelay,
		RetryWaitMax: 2 * cfg.RequestRetryDelay,
		Backoff:      retryablehttp.LinearJitterBackoff,
		CheckRetry:   retryablehttp.DefaultRetryPolicy,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
	}
	c := &Client{
		logger:  zap.NewNop(),
		cfg:     cfg,
		baseURL: baseURL,
		client:  client,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger.Info("created relay client",
		zap.Stringer("url", baseURL),
		zap.String("instance", cfg.InstanceID),
		zap.Int("max retries", client.RetryMax),
		zap.Duration("request timeout", cfg.RequestTimeout),
	)
	return c, nil
}

type credentials struct {
	InstanceID string `json:"instanceID"`
	Password   string `json:"password"`
}

type publishRequest struct {
	credentials
	Meta publishedMeta `json:"meta"`
}

type publishedMeta struct {
	Research tech.Map `json:"research"`
}

// FetchOwnState returns the research this node published before. A nil map
// without error means the node is registered but published nothing yet.
func (c *Client) FetchOwnState(ctx context.Context) (tech.Map, error) {
	data, err := c.req(ctx, http.MethodPost, ownStatePath, c.credentials())
	if err != nil {
		return nil, err
	}
	data = unwrapString(data)
	if len(data) == 0 {
		return nil, nil
	}
	var meta struct {
		Research json.RawMessage `json:"research"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decoding own state: %w", err)
	}
	research, ok := tech.DecodeResearch(meta.Research)
	if !ok {
		return nil, nil
	}
	return tech.Records(research), nil
}

type peerEntry struct {
	Unique json.RawMessage `json:"unique"`
	Meta   struct {
		Research json.RawMessage `json:"research"`
	} `json:"meta"`
}

// FetchPeers returns the snapshots published by every node except this one.
// Entries without research are skipped. Snapshots are ordered by node id.
func (c *Client) FetchPeers(ctx context.Context) ([]tech.PeerSnapshot, error) {
	data, err := c.req(ctx, http.MethodGet, peersPath, nil)
	if err != nil {
		return nil, err
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding peers: %w", err)
	}
	peers := make([]tech.PeerSnapshot, 0, len(entries))
	for key, raw := range entries {
		var entry peerEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			c.logger.Debug("skipping malformed peer entry", zap.String("key", key), zap.Error(err))
			continue
		}
		id := nodeID(entry.Unique)
		if id == "" {
			id = key
		}
		if id == c.cfg.InstanceID {
			continue
		}
		research, ok := tech.DecodeResearch(entry.Meta.Research)
		if !ok {
			continue
		}
		peers = append(peers, tech.PeerSnapshot{NodeID: id, Research: research})
	}
	slices.SortFunc(peers, func(a, b tech.PeerSnapshot) int {
		return strings.Compare(a.NodeID, b.NodeID)
	})
	return peers, nil
}

// Publish stores research as this node's metadata.
func (c *Client) Publish(ctx context.Context, research tech.Map) error {
	if research == nil {
		research = tech.Map{}
	}
	_, err := c.req(ctx, http.MethodPost, publishPath, publishRequest{
		credentials: c.credentials(),
		Meta:        publishedMeta{Research: research},
	})
	return err
}

func (c *Client) credentials() credentials {
	return credentials{InstanceID: c.cfg.InstanceID, Password: c.cfg.Password}
}

func (c *Client) req(ctx context.Context, method, path string, reqBody any) ([]byte, error) {
	if c.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}
	var body io.Reader
	if reqBody != nil {
		jsonReqBody, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		body = bytes.NewReader(jsonReqBody)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), body)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Token != "" {
		req.Header.Set(tokenHeader, c.cfg.Token)
	}

	res, err := c.client.Do(req)
	if err != nil {
		if res != nil {
			res.Body.Close()
		}
		return nil, fmt.Errorf("doing request: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body (%w)", err)
	}

	switch res.StatusCode {
	case http.StatusOK:
		return data, nil
	case http.StatusNotFound:
		if path == ownStatePath {
			return nil, ErrNotRegistered
		}
	}
	c.logger.Debug("relay request failed",
		zap.String("path", path),
		zap.String("status", res.Status),
		zap.String("body", string(data)),
	)
	return nil, fmt.Errorf("%w: %s %s: %s", ErrUnexpectedStatus, method, path, res.Status)
}

// unwrapString returns the content of a JSON string literal, or data itself.
// Some relays return metadata as a string holding JSON.
func unwrapString(data []byte) []byte {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '"' {
		return data
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return data
	}
	return bytes.TrimSpace([]byte(s))
}

// nodeID reads a node identity that may be published as a string or a number.
func nodeID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
