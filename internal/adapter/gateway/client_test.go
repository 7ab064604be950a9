package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/voltwise/chargewatch/internal/domain"
	"github.com/voltwise/chargewatch/pkg/config"
)

type staticTokens struct {
	token string
}

func (s *staticTokens) Token() (string, bool) { return s.token, s.token != "" }
func (s *staticTokens) Clear()                { s.token = "" }

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.GatewayConfig{
		BaseURL:        srv.URL,
		RequestTimeout: 2 * time.Second,
	}
	return NewClient(cfg, &staticTokens{token: "test-token"}, zap.NewNop()), srv
}

func TestMonitoringSnapshotSuccess(t *testing.T) {
	// Arrange
	now := time.Now().UTC().Truncate(time.Second)
	elapsed := int64(36)
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/sessions/sess-1/monitor" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("expected bearer token, got %q", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":          "CHARGING",
			"current_battery": 21.0,
			"target_battery":  80.0,
			"power_consumed":  0.5,
			"cost":            6.0,
			"elapsed_seconds": elapsed,
			"current_time":    now,
		})
	}))

	// Act
	snap, err := client.MonitoringSnapshot(context.Background(), "sess-1")

	// Assert
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if snap.Status != domain.RemotePhaseCharging {
		t.Errorf("expected status CHARGING, got %s", snap.Status)
	}
	if snap.CurrentBattery != 21.0 {
		t.Errorf("expected battery 21.0, got %f", snap.CurrentBattery)
	}
	if snap.ElapsedSeconds == nil || *snap.ElapsedSeconds != 36 {
		t.Errorf("expected elapsed 36, got %v", snap.ElapsedSeconds)
	}
}

func TestMonitoringSnapshotOmitsElapsed(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":          "CHARGING",
			"current_battery": 50.0,
		})
	}))

	snap, err := client.MonitoringSnapshot(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if snap.ElapsedSeconds != nil {
		t.Errorf("expected nil elapsed, got %d", *snap.ElapsedSeconds)
	}
}

func TestErrorTaxonomyMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"unauthorized maps to auth expired", http.StatusUnauthorized, "", domain.IsAuthExpired},
		{"not found maps to session not found", http.StatusNotFound, "", domain.IsNotFound},
		{"server error maps to transient", http.StatusInternalServerError, "", domain.IsTransient},
		{"bad gateway maps to transient", http.StatusBadGateway, "", domain.IsTransient},
		{"bad request maps to validation", http.StatusBadRequest, `{"message":"vehicle too far from station"}`, domain.IsValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				if tt.body != "" {
					w.Write([]byte(tt.body))
				}
			}))

			_, err := client.MonitoringSnapshot(context.Background(), "sess-1")
			if err == nil {
				t.Fatal("expected error")
			}
			if !tt.check(err) {
				t.Errorf("error %v not classified as expected", err)
			}
		})
	}
}

func TestValidationMessageSurfacedVerbatim(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message":"booking slot has not started yet"}`))
	}))

	_, err := client.StartSession(context.Background(), "order-1", "veh-1", "station-9")
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "booking slot has not started yet" {
		t.Errorf("expected verbatim message, got %q", err.Error())
	}
}

func TestStartSessionReturnsID(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req startSessionRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.OrderID != "order-7" {
			t.Errorf("expected order-7, got %s", req.OrderID)
		}
		json.NewEncoder(w).Encode(map[string]string{"session_id": "sess-42"})
	}))

	id, err := client.StartSession(context.Background(), "order-7", "veh-1", "station-9")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if id != "sess-42" {
		t.Errorf("expected sess-42, got %s", id)
	}
}

func TestTimeoutMapsToTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	cfg := config.GatewayConfig{BaseURL: srv.URL, RequestTimeout: 50 * time.Millisecond}
	client := NewClient(cfg, &staticTokens{token: "t"}, zap.NewNop())

	err := client.EndSession(context.Background(), "sess-1")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !domain.IsTransient(err) {
		t.Errorf("expected transient classification, got %v", err)
	}
}

func TestPaymentDetailTotalFeeFallback(t *testing.T) {
	t.Run("total fee present", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"base_cost": 100.0, "total_fee": 118.0}`))
		}))

		detail, err := client.PaymentDetail(context.Background(), "sess-1", "user-1")
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if !detail.HasTotalFee || detail.Amount() != 118.0 {
			t.Errorf("expected amount 118.0, got %f", detail.Amount())
		}
	})

	t.Run("total fee omitted falls back to base cost", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"base_cost": 100.0}`))
		}))

		detail, err := client.PaymentDetail(context.Background(), "sess-1", "user-1")
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if detail.HasTotalFee || detail.Amount() != 100.0 {
			t.Errorf("expected fallback amount 100.0, got %f", detail.Amount())
		}
	})
}
