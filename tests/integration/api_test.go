package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/voltwise/chargewatch/internal/adapter/http/fiber/handlers"
	"github.com/voltwise/chargewatch/internal/adapter/http/fiber/middleware"
	"github.com/voltwise/chargewatch/internal/adapter/store"
	"github.com/voltwise/chargewatch/internal/domain"
	"github.com/voltwise/chargewatch/internal/mocks"
	"github.com/voltwise/chargewatch/internal/service/payment"
	"github.com/voltwise/chargewatch/internal/service/session"
	"github.com/voltwise/chargewatch/pkg/config"
)

type testApp struct {
	app     *fiber.App
	gateway *mocks.MockSessionGateway
	history *mocks.MockHistoryRepository
	engine  *session.Engine
}

// setupTestApp wires the full HTTP surface the way cmd/server does, with the
// gateway mocked and the in-memory session store. Ticker intervals are set
// far beyond the test duration so only explicit requests drive the engine.
func setupTestApp(t *testing.T) *testApp {
	t.Helper()

	log := zap.NewNop()
	gatewayMock := &mocks.MockSessionGateway{}
	historyRepo := &mocks.MockHistoryRepository{}
	sessionStore := store.NewLocalStore(time.Hour, log)

	monitorCfg := config.MonitorConfig{
		PollInterval:     time.Hour,
		TickInterval:     time.Hour,
		FreshnessWindow:  3 * time.Second,
		ElapsedTolerance: 2 * time.Second,
		ParkingInterval:  time.Hour,
	}

	engine := session.NewEngine(session.EngineDeps{
		Gateway: gatewayMock,
		Store:   sessionStore,
		History: historyRepo,
		Log:     log,
	}, monitorCfg, config.BatteryConfig{CapacityKWh: 50}, config.AuthConfig{MaxAuthRetries: 3}, session.Callbacks{})
	t.Cleanup(engine.Close)

	parkingMonitor := session.NewParkingMonitor(gatewayMock, monitorCfg, nil, log)

	paymentService := payment.NewService(gatewayMock, engine, historyRepo, config.PaymentConfig{
		Provider: "gateway",
		Currency: "inr",
	}, log)
	paymentService.RegisterInitiator(domain.PaymentProviderGateway, payment.NewGatewayInitiator(gatewayMock))

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(log)})

	sessionHandler := handlers.NewSessionHandler(engine, parkingMonitor, log)
	paymentHandler := handlers.NewPaymentHandler(paymentService, log)
	historyHandler := handlers.NewHistoryHandler(historyRepo, log)

	v1 := app.Group("/api/v1")
	v1.Post("/sessions", sessionHandler.Start)
	v1.Get("/sessions/current", sessionHandler.Get)
	v1.Post("/sessions/current/stop", sessionHandler.Stop)
	v1.Post("/sessions/current/refresh", sessionHandler.Refresh)
	v1.Get("/payment/bill", paymentHandler.GetBill)
	v1.Post("/payment/initiate", paymentHandler.Initiate)
	v1.Get("/history", historyHandler.List)

	return &testApp{
		app:     app,
		gateway: gatewayMock,
		history: historyRepo,
		engine:  engine,
	}
}

func (ta *testApp) request(t *testing.T, method, path string, payload interface{}) *http.Response {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ta.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func startPayload() map[string]interface{} {
	return map[string]interface{}{
		"order_id":      "order-42",
		"vehicle_id":    "veh-1",
		"station_id":    "station-7",
		"user_id":       "user-9",
		"power_kw":      50.0,
		"cost_per_unit": 12.0,
		"station_name":  "Harbor Point",
	}
}

func TestAPI_SessionLifecycle(t *testing.T) {
	ta := setupTestApp(t)

	ta.gateway.StartSessionFunc = func(ctx context.Context, orderID, vehicleID, location string) (string, error) {
		return "sess-api-1", nil
	}
	ta.gateway.MonitoringSnapshotFunc = func(ctx context.Context, sessionID string) (*domain.MonitoringSnapshot, error) {
		return &domain.MonitoringSnapshot{
			Status:         domain.RemotePhaseCharging,
			CurrentBattery: 45,
			TargetBattery:  80,
			PowerConsumed:  12.5,
			Cost:           150,
		}, nil
	}

	// Start.
	resp := ta.request(t, http.MethodPost, "/api/v1/sessions", startPayload())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 on start, got %d", resp.StatusCode)
	}
	var started domain.ChargingSession
	decode(t, resp, &started)
	if started.SessionID != "sess-api-1" {
		t.Fatalf("unexpected session id %q", started.SessionID)
	}

	// Manual refresh applies the authoritative snapshot.
	resp = ta.request(t, http.MethodPost, "/api/v1/sessions/current/refresh", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on refresh, got %d", resp.StatusCode)
	}
	var view handlers.SessionView
	decode(t, resp, &view)
	if view.Session.CurrentBattery != 45 {
		t.Errorf("expected battery 45 after refresh, got %v", view.Session.CurrentBattery)
	}
	if view.Session.TargetBattery != 80 {
		t.Errorf("expected target 80 after refresh, got %v", view.Session.TargetBattery)
	}

	// Stop through the gateway.
	resp = ta.request(t, http.MethodPost, "/api/v1/sessions/current/stop", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on stop, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Bill and pay.
	total := 177.0
	ta.gateway.PaymentDetailFunc = func(ctx context.Context, sessionID, userID string) (*domain.PaymentDetail, error) {
		return &domain.PaymentDetail{
			PowerConsumed: 12.5,
			BaseCost:      150,
			TotalFee:      total,
			HasTotalFee:   true,
		}, nil
	}

	resp = ta.request(t, http.MethodGet, "/api/v1/payment/bill", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on bill, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = ta.request(t, http.MethodPost, "/api/v1/payment/initiate", map[string]string{"method": "card"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on initiate, got %d", resp.StatusCode)
	}
	var initiated map[string]string
	decode(t, resp, &initiated)
	if initiated["payment_url"] == "" {
		t.Error("expected a payment url")
	}

	// Payment cleared the session.
	resp = ta.request(t, http.MethodGet, "/api/v1/sessions/current", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after payment, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	if len(ta.history.Payments) != 1 {
		t.Fatalf("expected 1 payment record, got %d", len(ta.history.Payments))
	}
	if ta.history.Payments[0].Status != domain.PaymentStatusInitiated {
		t.Errorf("expected initiated payment, got %s", ta.history.Payments[0].Status)
	}
}

func TestAPI_StartRejectionIsVerbatim(t *testing.T) {
	ta := setupTestApp(t)

	ta.gateway.StartSessionFunc = func(ctx context.Context, orderID, vehicleID, location string) (string, error) {
		return "", &domain.ValidationError{Message: "Vehicle is parked at the wrong charging slot"}
	}

	resp := ta.request(t, http.MethodPost, "/api/v1/sessions", startPayload())
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	var body map[string]string
	decode(t, resp, &body)
	if body["error"] != "Vehicle is parked at the wrong charging slot" {
		t.Errorf("expected verbatim rejection message, got %q", body["error"])
	}
}

func TestAPI_NoActiveSession(t *testing.T) {
	ta := setupTestApp(t)

	resp := ta.request(t, http.MethodGet, "/api/v1/sessions/current", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 with no session, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAPI_HistoryByUser(t *testing.T) {
	ta := setupTestApp(t)

	ta.history.Archived = []domain.SessionArchive{
		{SessionID: "sess-old-1", UserID: "user-9"},
		{SessionID: "sess-old-2", UserID: "someone-else"},
	}

	resp := ta.request(t, http.MethodGet, "/api/v1/history?user_id=user-9", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out []domain.SessionArchive
	decode(t, resp, &out)
	if len(out) != 1 || out[0].SessionID != "sess-old-1" {
		t.Errorf("expected only user-9 sessions, got %+v", out)
	}

	resp = ta.request(t, http.MethodGet, "/api/v1/history", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 without user_id, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
