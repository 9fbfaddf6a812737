package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tair/storefront/pkg/breaker"
	"github.com/tair/storefront/pkg/logger"
)

// HTTPGateway calls a REST payment processor with intent endpoints under
// /v1/payment_intents. Calls fail fast while its breaker is open.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	http    *http.Client
	breaker *breaker.Breaker
}

func NewHTTPGateway(baseURL, apiKey string) *HTTPGateway {
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   10 * time.Second,
		},
		breaker: breaker.New("payment-gateway", 5, 30*time.Second),
	}
}

func (g *HTTPGateway) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	var intent Intent
	if err := g.call(ctx, http.MethodPost, "/v1/payment_intents", req, &intent); err != nil {
		return Intent{}, fmt.Errorf("create payment intent: %w", err)
	}

	logger.Info(ctx).
		Str("intent_id", intent.ID).
		Str("reference", req.Reference).
		Int64("amount_cents", req.AmountCents).
		Msg("Payment intent created")
	return intent, nil
}

func (g *HTTPGateway) GetIntent(ctx context.Context, id string) (Intent, error) {
	var intent Intent
	if err := g.call(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(id), nil, &intent); err != nil {
		return Intent{}, fmt.Errorf("get payment intent: %w", err)
	}
	return intent, nil
}

func (g *HTTPGateway) call(ctx context.Context, method, path string, in, out interface{}) error {
	if !g.breaker.Allow() {
		return breaker.ErrOpen
	}

	err := g.roundTrip(ctx, method, path, in, out)
	if errors.Is(err, ErrIntentNotFound) {
		g.breaker.Record(nil)
	} else {
		g.breaker.Record(err)
	}
	return err
}

func (g *HTTPGateway) roundTrip(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrIntentNotFound
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("payment gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
