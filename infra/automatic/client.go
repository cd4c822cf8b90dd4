package automatic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/kilianp07/carfuel/core/model"
	"github.com/kilianp07/carfuel/infra/logger"
)

// MaxResponseLength caps the size of a decoded response body.
const MaxResponseLength = 1 << 20

// Client talks to the Automatic REST API with a fixed bearer token.
type Client struct {
	http    *http.Client
	apiRoot string
	log     logger.Logger
}

type options struct {
	base http.RoundTripper
	log  logger.Logger
}

// Option customises a Client.
type Option func(*options)

// WithTransport replaces the transport used below the bearer token layer.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.base = rt }
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// NewClient creates a client for cfg. The token is attached as
// "Authorization: Bearer <token>" and never refreshed.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.SetDefaults()
	o := options{base: http.DefaultTransport}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.New("automatic")
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})
	hc := &http.Client{Transport: &oauth2.Transport{Source: src, Base: o.base}}
	if cfg.TimeoutSeconds > 0 {
		hc.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &Client{http: hc, apiRoot: cfg.APIRoot, log: o.log}
}

// ListVehicles returns the vehicles of the account, in API order.
func (c *Client) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
	var list model.VehicleList
	if err := c.get(ctx, "/vehicle", &list); err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	c.log.Debugw("vehicles listed", map[string]any{"count": len(list.Results)})
	return list.Results, nil
}

// FirstVehicle returns the first vehicle of the account.
func (c *Client) FirstVehicle(ctx context.Context) (model.Vehicle, error) {
	vehicles, err := c.ListVehicles(ctx)
	if err != nil {
		return model.Vehicle{}, err
	}
	return model.VehicleList{Results: vehicles}.First()
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	url := c.apiRoot + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	c.log.Debugf("requesting %s", url)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseLength))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
