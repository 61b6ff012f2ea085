package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CourseCheckout/internal/pkg/apperror"
	"github.com/ManuelReschke/CourseCheckout/internal/pkg/config"
)

const (
	acceptanceTokenTTL      = 10 * time.Minute
	acceptanceTokenCacheKey = "wompi:acceptance_token:"
	maxErrorBodyLog         = 512
)

// WompiClient talks to the gateway REST API. Every request carries the
// private key as bearer token and is bounded by the client timeout.
type WompiClient struct {
	http      *resty.Client
	publicKey string
	cache     TokenCache
}

type wompiEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Type     string          `json:"type"`
		Reason   string          `json:"reason"`
		Messages json.RawMessage `json:"messages"`
	} `json:"error"`
}

// NewWompiClient builds a client from gateway config. cache may be nil.
func NewWompiClient(cfg config.GatewayConfig, cache TokenCache) *WompiClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIURL, "/")).
		SetTimeout(timeout).
		SetAuthToken(cfg.PrivateKey).
		SetHeader("Accept", "application/json")

	return &WompiClient{
		http:      client,
		publicKey: cfg.PublicKey,
		cache:     cache,
	}
}

// GetTransaction fetches the authoritative transaction state.
func (c *WompiClient) GetTransaction(ctx context.Context, id string) (*GatewayTransaction, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.NewValidation("missing_transaction_id", "transaction id is required")
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		Get("/transactions/{id}")
	if err != nil {
		return nil, apperror.WrapUpstream("gateway transaction lookup failed", err)
	}

	var out GatewayTransaction
	if err := decodeEnvelope(resp, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, apperror.WrapUpstream("gateway transaction lookup failed", errors.New("response without transaction id"))
	}
	out.Status = strings.ToUpper(strings.TrimSpace(out.Status))
	return &out, nil
}

// CreateTransaction submits a charge. The request must already be signed.
func (c *WompiClient) CreateTransaction(ctx context.Context, req CreateTransactionRequest) (*GatewayTransaction, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/transactions")
	if err != nil {
		return nil, apperror.WrapUpstream("gateway charge failed", err)
	}

	var out GatewayTransaction
	if err := decodeEnvelope(resp, &out); err != nil {
		return nil, err
	}
	out.Status = strings.ToUpper(strings.TrimSpace(out.Status))
	return &out, nil
}

// AcceptanceToken returns the merchant's presigned acceptance token, cached
// when a cache is configured.
func (c *WompiClient) AcceptanceToken(ctx context.Context) (string, error) {
	if c.publicKey == "" {
		return "", apperror.NewConfig("WOMPI_PUBLIC_KEY is not configured")
	}

	cacheKey := acceptanceTokenCacheKey + c.publicKey
	if c.cache != nil {
		if token, err := c.cache.Get(ctx, cacheKey); err == nil && token != "" {
			return token, nil
		} else if err != nil {
			log.Warnf("[Wompi] Acceptance token cache read failed: %v", err)
		}
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("key", c.publicKey).
		Get("/merchants/{key}")
	if err != nil {
		return "", apperror.WrapUpstream("gateway merchant lookup failed", err)
	}

	var merchant struct {
		PresignedAcceptance struct {
			AcceptanceToken string `json:"acceptance_token"`
			Permalink       string `json:"permalink"`
		} `json:"presigned_acceptance"`
	}
	if err := decodeEnvelope(resp, &merchant); err != nil {
		return "", err
	}

	token := merchant.PresignedAcceptance.AcceptanceToken
	if token == "" {
		return "", apperror.WrapUpstream("gateway merchant lookup failed", errors.New("empty acceptance token"))
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, token, acceptanceTokenTTL); err != nil {
			log.Warnf("[Wompi] Acceptance token cache write failed: %v", err)
		}
	}
	return token, nil
}

func decodeEnvelope(resp *resty.Response, out interface{}) error {
	body := resp.Body()

	var env wompiEnvelope
	jsonErr := json.Unmarshal(body, &env)

	if resp.IsError() {
		detail := truncate(string(body), maxErrorBodyLog)
		if jsonErr == nil && env.Error != nil {
			detail = env.Error.Type
			if env.Error.Reason != "" {
				detail += ": " + env.Error.Reason
			}
		}
		e := apperror.WrapUpstream(
			"gateway request failed",
			fmt.Errorf("%s %s: status=%d %s", resp.Request.Method, resp.Request.URL, resp.StatusCode(), detail),
		)
		// Input errors are the caller's fault and must not look like an outage.
		if resp.StatusCode() == 422 || resp.StatusCode() == 400 {
			e.Kind = apperror.Validation
			e.Code = "gateway_rejected"
			e.Message = "gateway rejected the request: " + detail
		}
		return e
	}

	if jsonErr != nil {
		return apperror.WrapUpstream("gateway returned invalid JSON", jsonErr)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return apperror.WrapUpstream("gateway returned an empty response", errors.New("missing data"))
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apperror.WrapUpstream("gateway returned an unexpected payload", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
