package ginserver

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"rentverse/internal/app/dto"
	authsvc "rentverse/internal/app/services/auth"
	paymentsvc "rentverse/internal/app/services/payment"
	"rentverse/internal/infra/config"
	gormdb "rentverse/internal/infra/db/gorm"
	"rentverse/internal/infra/obs"
	"rentverse/internal/infra/security"
)

const testWebhookToken = "callback-secret"

func setupServer(t *testing.T) http.Handler {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gormdb.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	authService := &authsvc.Service{
		Users:      gormdb.NewUserRepository(db),
		Sessions:   gormdb.NewSessionStore(db),
		Passwords:  security.BcryptHasher{Cost: 4},
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: time.Hour,
		Logger:     logger,
	}
	paymentService := &paymentsvc.Service{
		UoWFactory: gormdb.Factory{DB: db},
		Logger:     logger,
	}
	server := NewServer(config.Config{Env: "test", HTTPAddr: ":0"},
		obs.Middleware{Logger: logger},
		obs.HealthHandlers{},
		Handlers{
			Auth:           AuthHandler{Service: authService, Logger: logger},
			Payment:        PaymentHandler{Service: paymentService},
			Webhook:        WebhookHandler{Service: paymentService, Token: testWebhookToken, Logger: logger},
			AuthMiddleware: AuthMiddleware{Service: authService, Logger: logger}.Handle,
		})
	return server.Handler
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestRegisterLoginAndMe(t *testing.T) {
	handler := setupServer(t)

	w := doJSON(t, handler, http.MethodPost, "/api/v1/auth/register",
		`{"email":"anna@test.dev","name":"Anna","password":"supersecret","landlord":true}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var registered dto.AuthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &registered); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if registered.Token == "" {
		t.Fatalf("missing session token")
	}
	hasLandlord := false
	for _, role := range registered.User.Roles {
		if role == "landlord" {
			hasLandlord = true
		}
	}
	if !hasLandlord {
		t.Fatalf("expected landlord role, got %v", registered.User.Roles)
	}

	w = doJSON(t, handler, http.MethodPost, "/api/v1/auth/login",
		`{"email":"anna@test.dev","password":"supersecret"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var logged dto.AuthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &logged); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w = doJSON(t, handler, http.MethodGet, "/api/v1/auth/me", "",
		map[string]string{"Authorization": "Bearer " + logged.Token})
	if w.Code != http.StatusOK {
		t.Fatalf("me: expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	var profile dto.UserProfile
	if err := json.Unmarshal(w.Body.Bytes(), &profile); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if profile.Email != "anna@test.dev" {
		t.Fatalf("unexpected profile %+v", profile)
	}

	w = doJSON(t, handler, http.MethodGet, "/api/v1/auth/me", "",
		map[string]string{"Authorization": "Bearer bogus"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bogus token: expected 401 got %d", w.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	handler := setupServer(t)
	w := doJSON(t, handler, http.MethodPost, "/api/v1/auth/register",
		`{"email":"bob@test.dev","name":"Bob","password":"supersecret"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201 got %d", w.Code)
	}
	w = doJSON(t, handler, http.MethodPost, "/api/v1/auth/login",
		`{"email":"bob@test.dev","password":"wrong-password"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	handler := setupServer(t)
	body := `{"email":"dup@test.dev","name":"Dup","password":"supersecret"}`
	if w := doJSON(t, handler, http.MethodPost, "/api/v1/auth/register", body, nil); w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201 got %d", w.Code)
	}
	if w := doJSON(t, handler, http.MethodPost, "/api/v1/auth/register", body, nil); w.Code != http.StatusConflict {
		t.Fatalf("duplicate: expected 409 got %d", w.Code)
	}
}

func TestPaymentWebhookRejectsBadToken(t *testing.T) {
	handler := setupServer(t)
	w := doJSON(t, handler, http.MethodPost, "/api/v1/webhooks/payments",
		`{"external_id":"installment_x_1","status":"PAID","paid_amount":40000}`,
		map[string]string{"X-Callback-Token": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d body=%s", w.Code, w.Body.String())
	}
}

func TestPaymentWebhookUnknownInvoiceStillAcks(t *testing.T) {
	handler := setupServer(t)
	w := doJSON(t, handler, http.MethodPost, "/api/v1/webhooks/payments",
		`{"external_id":"installment_missing_1","status":"PAID","paid_amount":40000,"currency":"USD"}`,
		map[string]string{"X-Callback-Token": testWebhookToken})
	if w.Code != http.StatusOK {
		t.Fatalf("unknown invoice must still be 200, got %d body=%s", w.Code, w.Body.String())
	}
	var ack dto.WebhookAck
	if err := json.Unmarshal(w.Body.Bytes(), &ack); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ack.Processed || ack.Detail == "" {
		t.Fatalf("expected diagnostic ack got %+v", ack)
	}
}

func TestInstallmentEndpointsRequireAuth(t *testing.T) {
	handler := setupServer(t)
	w := doJSON(t, handler, http.MethodGet, "/api/v1/me/installments", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}
}

func TestLiveness(t *testing.T) {
	handler := setupServer(t)
	w := doJSON(t, handler, http.MethodGet, "/livez", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
}
