package payment

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newTestRouter(t *testing.T, provider Provider) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(newTestService(t, provider)).RegisterRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlers(t *testing.T) {
	provider := newFakeProvider()
	h := newTestRouter(t, provider)

	rec := do(t, h, http.MethodGet, "/packages", "", nil)
	var catalog struct {
		Packages map[string]Package `json:"packages"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&catalog); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("GET /packages: %d, %v", rec.Code, err)
	}
	if len(catalog.Packages) != 3 || catalog.Packages["leader"].Price != 1999 {
		t.Errorf("unexpected catalog: %+v", catalog)
	}

	rec = do(t, h, http.MethodPost, "/create-payment-intent", `{"packageId":"unknown"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid package: got %d", rec.Code)
	}
	rec = do(t, h, http.MethodPost, "/create-payment-intent", `{"packageId":"super","customerEmail":"fan@example.com"}`, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"clientSecret":"pi_1_secret"`) {
		t.Fatalf("create intent: %d %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodPost, "/confirm-payment", `{"paymentIntentId":"pi_1"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("incomplete payment: got %d", rec.Code)
	}
	provider.intents["pi_1"].Succeeded = true
	rec = do(t, h, http.MethodPost, "/confirm-payment", `{"paymentIntentId":"pi_1"}`, nil)
	var conf Confirmation
	if err := json.NewDecoder(rec.Body).Decode(&conf); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("confirm: %d, %v", rec.Code, err)
	}
	if !conf.Success || conf.Powerups.Hints != 15 || conf.PackageID != "super" {
		t.Errorf("unexpected confirmation: %+v", conf)
	}
	rec = do(t, h, http.MethodPost, "/confirm-payment", `{"paymentIntentId":"pi_1"}`, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("second confirmation: got %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/webhook", `{}`, http.Header{"Stripe-Signature": {"forged"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("forged webhook: got %d", rec.Code)
	}
	provider.checkout = &CheckoutCompleted{SessionID: "cs_1", Email: "fan@example.com", ProductID: "prod_TAIwEzATegHXOR"}
	rec = do(t, h, http.MethodPost, "/webhook", `{}`, http.Header{"Stripe-Signature": {"valid"}})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"received":true`) {
		t.Fatalf("webhook: %d %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodGet, "/pending-powerups/fan@example.com", "", nil)
	if !strings.Contains(rec.Body.String(), `"sessionId":"cs_1"`) {
		t.Errorf("pending: %s", rec.Body)
	}

	rec = do(t, h, http.MethodPost, "/claim-powerups", `{"email":"fan@example.com"}`, nil)
	var claim struct {
		Powerups *struct{ Time, Hints, Skips int } `json:"powerups"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&claim); err != nil {
		t.Fatal(err)
	}
	if claim.Powerups == nil || claim.Powerups.Time != 100 || claim.Powerups.Skips != 7 {
		t.Errorf("unexpected claim: %+v", claim.Powerups)
	}
	rec = do(t, h, http.MethodPost, "/claim-powerups", `{"email":"fan@example.com"}`, nil)
	if strings.TrimSpace(rec.Body.String()) != `{"powerups":null}` {
		t.Errorf("second claim: %s", rec.Body)
	}

	rec = do(t, h, http.MethodPost, "/claim-powerups", `not json`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad body: got %d", rec.Code)
	}
}

func TestHandlersWithoutProvider(t *testing.T) {
	h := newTestRouter(t, nil)
	rec := do(t, h, http.MethodPost, "/create-payment-intent", `{"packageId":"super"}`, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("create intent without provider: got %d", rec.Code)
	}
	rec = do(t, h, http.MethodPost, "/webhook", `{}`, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("webhook without provider: got %d", rec.Code)
	}
}
