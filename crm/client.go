package crm

import (
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

// Client is what the enrichment pipeline needs from the CRM panel.
type Client interface {
	// ListContacts walks the panel's bulk listing. The listing omits custom
	// fields; a per-contact GetContactDetail call is needed for those.
	ListContacts(ctx context.Context) ([]ContactSummary, error)
	GetContactDetail(ctx context.Context, contactId string) (*ContactDetail, error)
}

type panelClient struct {
	baseURL  string
	token    string
	pageSize int
	http     *http.Client
	limiter  <-chan time.Time
}

// NewPanelClient builds the HTTP client for the CRM panel. The panel
// authenticates with a session JWT sent as a cookie.
func NewPanelClient(token string) (*panelClient, error) {
	baseURL := strings.TrimSpace(os.Getenv("CRM_API_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://panel.leadbot.app"
	}
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("crm session token is empty")
	}
	pageSize := 200
	if v := strings.TrimSpace(os.Getenv("CRM_PAGE_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			pageSize = n
		}
	}
	rateLimitPerMin := int64(120)
	if v := strings.TrimSpace(os.Getenv("CRM_RATE_LIMIT_PER_MIN")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			rateLimitPerMin = n
		}
	}
	interval := time.Minute / time.Duration(rateLimitPerMin)

	return &panelClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		pageSize: pageSize,
		http:     &http.Client{Timeout: 30 * time.Second},
		limiter:  time.Tick(interval),
	}, nil
}

type listResponse struct {
	Data       []ContactSummary `json:"data"`
	LastPageId string           `json:"last_page_id"`
}

func (c *panelClient) ListContacts(ctx context.Context) ([]ContactSummary, error) {
	var all []ContactSummary
	lastPageId := ""
	for {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(c.pageSize))
		if lastPageId != "" {
			params.Set("last_page_id", lastPageId)
		}

		body, err := c.get(ctx, "/api/contacts/list", params)
		if err != nil {
			return nil, err
		}
		var parsed listResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("decode contact listing: %w", err)
		}
		all = append(all, parsed.Data...)

		// A short page is the end of the collection.
		if len(parsed.Data) < c.pageSize || parsed.LastPageId == "" {
			return all, nil
		}
		lastPageId = parsed.LastPageId
	}
}

func (c *panelClient) GetContactDetail(ctx context.Context, contactId string) (*ContactDetail, error) {
	body, err := c.get(ctx, "/api/contacts/"+url.PathEscape(contactId), nil)
	if err != nil {
		return nil, err
	}
	var detail ContactDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, fmt.Errorf("decode contact %s detail: %w", contactId, err)
	}
	if detail.ID == "" {
		detail.ID = contactId
	}
	return &detail, nil
}

func (c *panelClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	<-c.limiter
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.AddCookie(&http.Cookie{Name: "token", Value: c.token})

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, utils.NewTransientError("crm "+path, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, utils.ErrCredentialExpired
	case resp.StatusCode >= 500:
		return nil, utils.NewTransientError("crm "+path,
			fmt.Errorf("crm api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("crm api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
