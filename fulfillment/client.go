package fulfillment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lucidmetrics/adsync_backend/utils"
)

// Client is what the ledger ingestor needs from the fulfillment provider.
type Client interface {
	// Login authenticates and stores the session token for later calls.
	// A rejected credential is fatal for the run.
	Login(ctx context.Context) error
	// GetOrders fetches one page of orders starting at offset start.
	GetOrders(ctx context.Context, start, limit int, from, until *time.Time) ([]OrderRecord, error)
	// GetWalletMovements fetches one page of wallet movements, newest first.
	GetWalletMovements(ctx context.Context, start, limit int, from, until *time.Time) ([]WalletRecord, error)
}

// OrderRecord is one row of the provider's order listing.
type OrderRecord struct {
	ID             int64       `json:"id"`
	ClientName     string      `json:"client_name"`
	ClientPhone    string      `json:"client_phone"`
	TotalOrder     json.Number `json:"total_order"`
	ShippingAmount json.Number `json:"shipping_amount"`
	SupplierCost   json.Number `json:"supplier_cost"`
	Status         string      `json:"status"`
	AdID           string      `json:"ad_id"`
	CreatedAt      string      `json:"created_at"`
}

// WalletRecord is one row of the provider's wallet ledger. The provider
// reports the running balance on every movement; the freshest movement's
// balance is the wallet balance.
type WalletRecord struct {
	ID             int64       `json:"id"`
	Amount         json.Number `json:"amount"`
	CurrentBalance json.Number `json:"current_balance"`
	Description    string      `json:"description"`
	Type           string      `json:"type"`
	OrderID        *int64      `json:"order_id"`
	CreatedAt      string      `json:"created_at"`
}

// regionalDomains maps a connection's country to the provider's regional app.
// Login origin checks are per-region; a mismatched Origin gets a 403.
var regionalDomains = map[string]string{
	"co": "dropex.co",
	"mx": "dropex.com.mx",
	"ec": "dropex.ec",
	"pa": "dropex.com.pa",
	"py": "dropex.com.py",
	"cl": "dropex.cl",
	"pe": "dropex.pe",
}

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

type dropexClient struct {
	apiBase  string
	appOrigin string
	email    string
	password string
	userId   string
	walletId string
	token    string
	timezone string
	http     *http.Client
	limiter  <-chan time.Time
}

// NewDropexClient builds the fulfillment API client for one connection.
// country selects the regional app; userId/walletId come from the connection
// row (the wallet endpoints require them as query params).
func NewDropexClient(country, email, password, userId, walletId string) (*dropexClient, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil, errors.New("fulfillment credentials are empty")
	}
	domain, ok := regionalDomains[strings.ToLower(strings.TrimSpace(country))]
	if !ok {
		domain = regionalDomains["co"]
	}
	apiBase := strings.TrimSpace(os.Getenv("FULFILLMENT_API_BASE_URL"))
	if apiBase == "" {
		apiBase = "https://api." + domain
	}
	rateLimitPerMin := int64(60)
	if v := strings.TrimSpace(os.Getenv("FULFILLMENT_RATE_LIMIT_PER_MIN")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			rateLimitPerMin = n
		}
	}
	interval := time.Minute / time.Duration(rateLimitPerMin)

	return &dropexClient{
		apiBase:   strings.TrimRight(apiBase, "/"),
		appOrigin: "https://app." + domain,
		email:     email,
		password:  password,
		userId:    userId,
		walletId:  walletId,
		http:      &http.Client{Timeout: 60 * time.Second},
		limiter:   time.Tick(interval),
	}, nil
}

// applyBrowserHeaders mimics the regional web app. The provider fingerprints
// requests and rejects anything that does not look like its own frontend.
func (c *dropexClient) applyBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "es-419,es;q=0.9,en;q=0.8")
	req.Header.Set("Origin", c.appOrigin)
	req.Header.Set("Referer", c.appOrigin+"/")
	req.Header.Set("Sec-Ch-Ua", `"Chromium";v="124", "Google Chrome";v="124", "Not-A.Brand";v="99"`)
	req.Header.Set("Sec-Ch-Ua-Mobile", "?0")
	req.Header.Set("Sec-Ch-Ua-Platform", `"Windows"`)
	req.Header.Set("Sec-Fetch-Dest", "empty")
	req.Header.Set("Sec-Fetch-Mode", "cors")
	req.Header.Set("Sec-Fetch-Site", "same-site")
	if c.token != "" {
		req.Header.Set("X-Authorization", "Bearer "+c.token)
	}
}

type loginRequest struct {
	Email        string  `json:"email"`
	Password     string  `json:"password"`
	WhiteBrandId int     `json:"white_brand_id"`
	Brand        string  `json:"brand"`
	Otp          *string `json:"otp"`
	WithCdc      bool    `json:"with_cdc"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  struct {
		ID int64 `json:"id"`
	} `json:"user"`
}

func (c *dropexClient) Login(ctx context.Context) error {
	payload := loginRequest{
		Email:        c.email,
		Password:     c.password,
		WhiteBrandId: 1,
		Brand:        "",
		Otp:          nil,
		WithCdc:      false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	<-c.limiter
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/api/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.applyBrowserHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return utils.NewTransientError("fulfillment login", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return utils.ErrCredentialExpired
	case resp.StatusCode >= 500:
		return utils.NewTransientError("fulfillment login",
			fmt.Errorf("fulfillment api error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("fulfillment login error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed loginResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	if parsed.Token == "" {
		return utils.ErrCredentialExpired
	}
	c.token = parsed.Token
	if c.userId == "" && parsed.User.ID != 0 {
		c.userId = strconv.FormatInt(parsed.User.ID, 10)
	}
	return nil
}

// UserId reports the provider-side user id, available after Login when the
// connection row did not carry one yet.
func (c *dropexClient) UserId() string {
	return c.userId
}

type ordersResponse struct {
	Objects []OrderRecord `json:"objects"`
	Count   int64         `json:"count"`
}

func (c *dropexClient) GetOrders(ctx context.Context, start, limit int, from, until *time.Time) ([]OrderRecord, error) {
	params := url.Values{}
	params.Set("result_number", strconv.Itoa(limit))
	params.Set("start", strconv.Itoa(start))
	params.Set("order_by", "id")
	params.Set("order_dir", "desc")
	if from != nil {
		params.Set("from", from.Format("2006-01-02"))
	}
	if until != nil {
		params.Set("until", until.Format("2006-01-02"))
	}

	body, err := c.get(ctx, "/api/orders/myorders", params)
	if err != nil {
		return nil, err
	}
	var parsed ordersResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode orders page: %w", err)
	}
	return parsed.Objects, nil
}

type walletResponse struct {
	Objects []WalletRecord `json:"objects"`
	Count   int64          `json:"count"`
}

func (c *dropexClient) GetWalletMovements(ctx context.Context, start, limit int, from, until *time.Time) ([]WalletRecord, error) {
	params := url.Values{}
	params.Set("result_number", strconv.Itoa(limit))
	params.Set("start", strconv.Itoa(start))
	params.Set("order_by", "id")
	params.Set("order_dir", "desc")
	if c.userId != "" {
		params.Set("user_id", c.userId)
	}
	if c.walletId != "" {
		params.Set("wallet_id", c.walletId)
	}
	if from != nil {
		params.Set("from", from.Format("2006-01-02"))
	}
	if until != nil {
		params.Set("until", until.Format("2006-01-02"))
	}

	body, err := c.get(ctx, "/api/wallets/transactions", params)
	if err != nil {
		return nil, err
	}
	var parsed walletResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode wallet page: %w", err)
	}
	return parsed.Objects, nil
}

func (c *dropexClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	<-c.limiter
	endpoint := c.apiBase + path
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.applyBrowserHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, utils.NewTransientError("fulfillment "+path, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, utils.ErrCredentialExpired
	case resp.StatusCode >= 500:
		return nil, utils.NewTransientError("fulfillment "+path,
			fmt.Errorf("fulfillment api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("fulfillment api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
