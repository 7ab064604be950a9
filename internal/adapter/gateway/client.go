package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/voltwise/chargewatch/internal/domain"
	"github.com/voltwise/chargewatch/internal/infrastructure/circuitbreaker"
	"github.com/voltwise/chargewatch/internal/ports"
	"github.com/voltwise/chargewatch/pkg/config"
)

// Client talks to the remote session gateway over HTTP. Every call carries a
// bounded timeout and a bearer token from the token source, and failures are
// mapped onto the domain error taxonomy before they reach the service layer.
type Client struct {
	baseURL string
	http    *circuitbreaker.HTTPClient
	tokens  ports.TokenSource
	timeout time.Duration
	log     *zap.Logger
}

var _ ports.SessionGateway = (*Client)(nil)

func NewClient(cfg config.GatewayConfig, tokens ports.TokenSource, log *zap.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	breaker := circuitbreaker.New(circuitbreaker.Settings{
		Name:             "session-gateway",
		MaxRequests:      cfg.Breaker.MaxRequests,
		Interval:         cfg.Breaker.Interval,
		Timeout:          cfg.Breaker.Timeout,
		FailureThreshold: cfg.Breaker.FailureThreshold,
	}, log)

	httpClient := circuitbreaker.NewHTTPClient(&http.Client{Timeout: timeout}, breaker, log)

	return &Client{
		baseURL: cfg.BaseURL,
		http:    httpClient,
		tokens:  tokens,
		timeout: timeout,
		log:     log,
	}
}

type startSessionRequest struct {
	OrderID   string `json:"order_id"`
	VehicleID string `json:"vehicle_id"`
	Location  string `json:"location"`
}

type startSessionResponse struct {
	SessionID string `json:"session_id"`
}

func (c *Client) StartSession(ctx context.Context, orderID, vehicleID, location string) (string, error) {
	var out startSessionResponse
	err := c.post(ctx, "/api/v1/sessions/start", startSessionRequest{
		OrderID:   orderID,
		VehicleID: vehicleID,
		Location:  location,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.SessionID == "" {
		return "", &domain.ValidationError{Message: "gateway returned empty session id"}
	}
	return out.SessionID, nil
}

type monitoringResponse struct {
	Status                    string    `json:"status"`
	CurrentBattery            float64   `json:"current_battery"`
	TargetBattery             float64   `json:"target_battery"`
	PowerConsumed             float64   `json:"power_consumed"`
	Cost                      float64   `json:"cost"`
	ElapsedSeconds            *int64    `json:"elapsed_seconds,omitempty"`
	CurrentTime               time.Time `json:"current_time"`
	EstimatedRemainingMinutes int       `json:"estimated_remaining_minutes"`
}

func (c *Client) MonitoringSnapshot(ctx context.Context, sessionID string) (*domain.MonitoringSnapshot, error) {
	var out monitoringResponse
	if err := c.get(ctx, "/api/v1/sessions/"+sessionID+"/monitor", &out); err != nil {
		return nil, err
	}
	return &domain.MonitoringSnapshot{
		Status:                    out.Status,
		CurrentBattery:            out.CurrentBattery,
		TargetBattery:             out.TargetBattery,
		PowerConsumed:             out.PowerConsumed,
		Cost:                      out.Cost,
		ElapsedSeconds:            out.ElapsedSeconds,
		CurrentTime:               out.CurrentTime,
		EstimatedRemainingMinutes: out.EstimatedRemainingMinutes,
	}, nil
}

func (c *Client) EndSession(ctx context.Context, sessionID string) error {
	return c.post(ctx, "/api/v1/sessions/"+sessionID+"/end", nil, nil)
}

type parkingResponse struct {
	ParkingStartTime     *time.Time `json:"parking_start_time,omitempty"`
	CurrentFee           float64    `json:"current_fee"`
	ChargingCost         float64    `json:"charging_cost"`
	ParkingRatePerMinute float64    `json:"parking_rate_per_minute"`
}

func (c *Client) ParkingSnapshot(ctx context.Context, sessionID string) (*domain.ParkingSnapshot, error) {
	var out parkingResponse
	if err := c.get(ctx, "/api/v1/sessions/"+sessionID+"/parking", &out); err != nil {
		return nil, err
	}
	return &domain.ParkingSnapshot{
		ParkingStartTime:     out.ParkingStartTime,
		CurrentFee:           out.CurrentFee,
		ChargingCost:         out.ChargingCost,
		ParkingRatePerMinute: out.ParkingRatePerMinute,
	}, nil
}

type paymentDetailResponse struct {
	UserName         string    `json:"user_name"`
	StationName      string    `json:"station_name"`
	StationAddress   string    `json:"station_address"`
	SessionStartTime time.Time `json:"session_start_time"`
	SessionEndTime   time.Time `json:"session_end_time"`
	PowerConsumed    float64   `json:"power_consumed"`
	BaseCost         float64   `json:"base_cost"`
	TotalFee         *float64  `json:"total_fee,omitempty"`
}

func (c *Client) PaymentDetail(ctx context.Context, sessionID, userID string) (*domain.PaymentDetail, error) {
	var out paymentDetailResponse
	path := "/api/v1/sessions/" + sessionID + "/payment?user_id=" + userID
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	detail := &domain.PaymentDetail{
		UserName:         out.UserName,
		StationName:      out.StationName,
		StationAddress:   out.StationAddress,
		SessionStartTime: out.SessionStartTime,
		SessionEndTime:   out.SessionEndTime,
		PowerConsumed:    out.PowerConsumed,
		BaseCost:         out.BaseCost,
	}
	if out.TotalFee != nil {
		detail.TotalFee = *out.TotalFee
		detail.HasTotalFee = true
	}
	return detail, nil
}

type initiatePaymentRequest struct {
	UserID    string `json:"user_id"`
	Method    string `json:"method"`
	ReturnURL string `json:"return_url"`
}

type initiatePaymentResponse struct {
	PaymentURL string `json:"payment_url"`
}

func (c *Client) InitiatePayment(ctx context.Context, sessionID, userID string, method domain.PaymentMethod, returnURL string) (string, error) {
	var out initiatePaymentResponse
	err := c.post(ctx, "/api/v1/sessions/"+sessionID+"/payment/initiate", initiatePaymentRequest{
		UserID:    userID,
		Method:    string(method),
		ReturnURL: returnURL,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.PaymentURL, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.call(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	return c.call(ctx, http.MethodPost, path, body, out)
}

var tracer = otel.Tracer("chargewatch/gateway")

func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	ctx, span := tracer.Start(ctx, "gateway."+method)
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := c.tokens.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= 400 {
		return c.mapStatus(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.TransientError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// mapStatus turns an HTTP error response into the domain taxonomy. 401 is
// auth expiry, 404 kills the session, 5xx is transient, everything else in
// the 4xx range is a permanent validation rejection surfaced verbatim.
func (c *Client) mapStatus(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return domain.ErrAuthExpired
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrSessionNotFound
	case resp.StatusCode >= 500:
		return &domain.TransientError{Err: fmt.Errorf("gateway returned %d", resp.StatusCode)}
	default:
		msg := extractMessage(raw)
		if msg == "" {
			msg = fmt.Sprintf("gateway rejected request with status %d", resp.StatusCode)
		}
		return &domain.ValidationError{Message: msg}
	}
}

func extractMessage(raw []byte) string {
	var body errorResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}

// Transport-level failures (timeouts, refused connections, open breaker)
// are all recoverable from the caller's point of view.
func classifyTransportError(err error) error {
	return &domain.TransientError{Err: err}
}
