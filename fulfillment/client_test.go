package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lucidmetrics/adsync_backend/utils"
)

func newTestClient(t *testing.T, handler http.Handler) *dropexClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	t.Setenv("FULFILLMENT_API_BASE_URL", server.URL)
	t.Setenv("FULFILLMENT_RATE_LIMIT_PER_MIN", "600000")

	client, err := NewDropexClient("co", "seller@test.co", "secret", "", "55")
	if err != nil {
		t.Fatalf("NewDropexClient: %v", err)
	}
	return client
}

func TestLogin_SendsBrowserFingerprintAndPayload(t *testing.T) {
	var gotPayload map[string]interface{}
	var gotHeaders http.Header
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/login" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotHeaders = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&gotPayload)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"token": "jwt-token",
			"user":  map[string]interface{}{"id": 4242},
		})
	}))

	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if gotHeaders.Get("User-Agent") != browserUserAgent {
		t.Fatalf("login must carry the browser user agent, got %q", gotHeaders.Get("User-Agent"))
	}
	if gotHeaders.Get("Origin") != "https://app.dropex.co" {
		t.Fatalf("login must carry the regional app origin, got %q", gotHeaders.Get("Origin"))
	}
	if gotHeaders.Get("Sec-Fetch-Mode") != "cors" {
		t.Fatalf("login must carry the fetch metadata headers")
	}

	if gotPayload["email"] != "seller@test.co" {
		t.Fatalf("unexpected email in payload: %v", gotPayload["email"])
	}
	if gotPayload["white_brand_id"] != float64(1) {
		t.Fatalf("white_brand_id must be 1, got %v", gotPayload["white_brand_id"])
	}
	if _, present := gotPayload["otp"]; !present || gotPayload["otp"] != nil {
		t.Fatalf("otp must be present and null, got %v", gotPayload["otp"])
	}
	if gotPayload["with_cdc"] != false {
		t.Fatalf("with_cdc must be false, got %v", gotPayload["with_cdc"])
	}

	if client.UserId() != "4242" {
		t.Fatalf("login should capture the provider user id, got %q", client.UserId())
	}
}

func TestLogin_RejectedCredential(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	err := client.Login(context.Background())
	if !errors.Is(err, utils.ErrCredentialExpired) {
		t.Fatalf("expected ErrCredentialExpired, got %v", err)
	}
}

func TestLogin_EmptyTokenIsExpiredCredential(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"token": ""})
	}))

	err := client.Login(context.Background())
	if !errors.Is(err, utils.ErrCredentialExpired) {
		t.Fatalf("expected ErrCredentialExpired on empty token, got %v", err)
	}
}

func TestGetWalletMovements_SendsUserAndWalletParams(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"token": "jwt-token",
				"user":  map[string]interface{}{"id": 7},
			})
		case "/api/wallets/transactions":
			if r.Header.Get("X-Authorization") != "Bearer jwt-token" {
				t.Fatalf("wallet request must carry the session token")
			}
			q := r.URL.Query()
			if q.Get("user_id") != "7" || q.Get("wallet_id") != "55" {
				t.Fatalf("wallet request must carry user_id and wallet_id, got %v", q)
			}
			if q.Get("result_number") != "500" || q.Get("start") != "0" {
				t.Fatalf("unexpected paging params: %v", q)
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"objects": []map[string]interface{}{},
				"count":   0,
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))

	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := client.GetWalletMovements(context.Background(), 0, 500, nil, nil); err != nil {
		t.Fatalf("GetWalletMovements: %v", err)
	}
}

func TestGet_ServerErrorIsTransient(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.GetOrders(context.Background(), 0, 100, nil, nil)
	if err == nil || !utils.IsTransient(err) {
		t.Fatalf("a 5xx must surface as transient, got %v", err)
	}
}

func TestGet_ClientErrorIsPermanent(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))

	_, err := client.GetOrders(context.Background(), 0, 100, nil, nil)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if utils.IsTransient(err) || errors.Is(err, utils.ErrCredentialExpired) {
		t.Fatalf("a 4xx (non-auth) must be permanent, got %v", err)
	}
}
