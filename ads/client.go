package ads

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/lucidmetrics/adsync_backend/analytics"
	"github.com/lucidmetrics/adsync_backend/utils"
	"github.com/shopspring/decimal"
)

// Client fetches per-ad spend from the ad platform's insights API.
type Client interface {
	// GetSpend returns one flattened SpendRecord per ad for the time range.
	GetSpend(ctx context.Context, adAccountId string, from, to time.Time) ([]analytics.SpendRecord, error)
}

type graphClient struct {
	baseURL    string
	apiVersion string
	token      string
	http       *http.Client
}

// NewGraphClient builds the insights client. token is the ad account's
// long-lived access token from the credential vault.
func NewGraphClient(token string) (*graphClient, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("ads access token is empty")
	}
	baseURL := strings.TrimSpace(os.Getenv("ADS_API_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://graph.facebook.com"
	}
	apiVersion := strings.TrimSpace(os.Getenv("ADS_API_VERSION"))
	if apiVersion == "" {
		apiVersion = "v19.0"
	}
	return &graphClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiVersion: apiVersion,
		token:      token,
		http:       &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type insightsRow struct {
	AdID        string      `json:"ad_id"`
	AdName      string      `json:"ad_name"`
	Spend       string      `json:"spend"`
	Impressions json.Number `json:"impressions"`
	Clicks      json.Number `json:"clicks"`
}

type insightsResponse struct {
	Data   []insightsRow `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// GetSpend walks the insights pages at ad level. Token rejections surface as
// ErrCredentialExpired; rate-limit responses as transient.
func (c *graphClient) GetSpend(ctx context.Context, adAccountId string, from, to time.Time) ([]analytics.SpendRecord, error) {
	params := url.Values{}
	params.Set("level", "ad")
	params.Set("fields", "ad_id,ad_name,spend,impressions,clicks")
	params.Set("time_range", fmt.Sprintf(`{"since":"%s","until":"%s"}`,
		from.Format("2006-01-02"), to.Format("2006-01-02")))
	params.Set("limit", "500")
	params.Set("access_token", c.token)

	endpoint := fmt.Sprintf("%s/%s/act_%s/insights?%s", c.baseURL, c.apiVersion, adAccountId, params.Encode())

	var records []analytics.SpendRecord
	for endpoint != "" {
		page, err := c.fetchPage(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		for _, row := range page.Data {
			spend, err := decimal.NewFromString(row.Spend)
			if err != nil {
				spend = decimal.Zero
			}
			impressions, _ := row.Impressions.Int64()
			clicks, _ := row.Clicks.Int64()
			records = append(records, analytics.SpendRecord{
				AdID:        row.AdID,
				AdName:      row.AdName,
				Spend:       spend,
				Impressions: impressions,
				Clicks:      clicks,
				From:        from,
				To:          to,
			})
		}
		endpoint = page.Paging.Next
	}
	return records, nil
}

func (c *graphClient) fetchPage(ctx context.Context, endpoint string) (*insightsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, utils.NewTransientError("ads insights", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var parsed insightsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode insights page: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, utils.ErrCredentialExpired
	case parsed.Error != nil && (parsed.Error.Code == 190 || parsed.Error.Code == 102):
		// OAuth token errors come back as 400 with a Graph error code.
		return nil, utils.ErrCredentialExpired
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, utils.NewTransientError("ads insights",
			fmt.Errorf("ads api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("ads api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return &parsed, nil
}
