// Package rush is a client for the SwiftRush on-demand delivery API. A
// Client creates Delivery objects; each delivery manages its own lifecycle
// from quoting through confirmation, status polling and courier tracking to
// completion.
package rush

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/swiftrush/rush-go/pkg/config"
	"github.com/swiftrush/rush-go/pkg/transport"
)

// ClientConfig configures a Client. ClientID and ClientSecret are required
// unless a pre-built Transport is supplied.
type ClientConfig struct {
	ClientID     string
	ClientSecret string
	ServerToken  string

	// Sandbox selects the sandbox environment. Production must be opted
	// into explicitly.
	Sandbox bool

	// Simulate, when positive, starts the sandbox simulation driver after
	// each confirmation, advancing statuses with this delay between stages.
	Simulate time.Duration

	// PollInterval is the base delivery status poll period.
	PollInterval time.Duration

	// Extrapolate enables courier motion extrapolation between polls.
	Extrapolate bool

	// Debug enables a development logger when no Logger is given.
	Debug bool

	// BaseURL and TokenURL override the environment-derived endpoints.
	BaseURL  string
	TokenURL string

	// Transport overrides the HTTP transport entirely; used by tests.
	Transport transport.Transport

	// Logger overrides the client logger.
	Logger *zap.Logger

	// Metrics, when set, registers poll instrumentation on this registerer.
	Metrics prometheus.Registerer
}

// Client is a handle on the SwiftRush API. Deliveries created by the client
// share its transport, logger and tuning but are otherwise independent.
type Client struct {
	api          transport.Transport
	logger       *zap.Logger
	metrics      *Metrics
	pollInterval time.Duration
	simulate     time.Duration
	extrapolate  bool
}

// NewClient builds a client from the config, constructing an authenticated
// transport unless one was supplied.
func NewClient(cfg ClientConfig) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		if cfg.Debug {
			logger, _ = zap.NewDevelopment()
		} else {
			logger = zap.NewNop()
		}
	}

	api := cfg.Transport
	if api == nil {
		var err error
		api, err = transport.New(transport.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			ServerToken:  cfg.ServerToken,
			Sandbox:      cfg.Sandbox,
			BaseURL:      cfg.BaseURL,
			TokenURL:     cfg.TokenURL,
			Logger:       logger,
		})
		if err != nil {
			return nil, err
		}
	}

	var metrics *Metrics
	if cfg.Metrics != nil {
		metrics = NewMetrics(cfg.Metrics)
	}

	environment := "production"
	if cfg.Sandbox {
		environment = "sandbox"
	}
	logger.Debug("initializing swiftrush client",
		zap.String("environment", environment),
		zap.Bool("simulate", cfg.Simulate > 0),
	)

	return &Client{
		api:          api,
		logger:       logger,
		metrics:      metrics,
		pollInterval: cfg.PollInterval,
		simulate:     cfg.Simulate,
		extrapolate:  cfg.Extrapolate,
	}, nil
}

// NewClientFromEnv builds a client from environment variables (see
// pkg/config for the variable names).
func NewClientFromEnv() (*Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	return NewClient(ClientConfig{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		ServerToken:  cfg.ServerToken,
		Sandbox:      cfg.Sandbox,
		Simulate:     cfg.Simulate,
		PollInterval: cfg.PollInterval,
		Extrapolate:  cfg.Extrapolate,
		Debug:        cfg.Debug,
	})
}

// CreateDelivery builds a new delivery bound to this client. An order
// reference id is generated when the options don't carry one.
func (c *Client) CreateDelivery(opts DeliveryOptions) (*Delivery, error) {
	if opts.OrderReferenceID == "" {
		opts.OrderReferenceID = uuid.NewString()
	}
	return newDelivery(c.api, c.logger, c.metrics, c.pollInterval, c.simulate, c.extrapolate, opts)
}

// ListDeliveries fetches the account's deliveries. Mirrors the API's lenient
// listing behavior: a failure yields an empty list rather than an error.
func (c *Client) ListDeliveries(ctx context.Context) []*Delivery {
	resp, err := c.api.Get(ctx, "deliveries")
	if err != nil || !resp.OK() {
		c.logger.Warn("listing deliveries failed", zap.Error(err))
		return []*Delivery{}
	}

	var payloads []deliveryPayload
	if err := resp.Decode(&payloads); err != nil {
		c.logger.Warn("could not decode delivery list", zap.Error(err))
		return []*Delivery{}
	}

	deliveries := make([]*Delivery, 0, len(payloads))
	for _, payload := range payloads {
		d, err := newDelivery(c.api, c.logger, c.metrics, c.pollInterval, 0, c.extrapolate, DeliveryOptions{})
		if err != nil {
			continue
		}
		d.mu.Lock()
		d.applyPayloadLocked(payload, false)
		d.mu.Unlock()
		deliveries = append(deliveries, d)
	}
	return deliveries
}
