package crm

import (
	"os"
	"strings"
)

// Well-known custom field names in the CRM panel. Panels can rename fields,
// so each default has an env override.
const (
	defaultFieldAdID        = "Facebook Ad"
	defaultFieldAdPayload   = "fb_payload"
	defaultFieldOrderTotal  = "Order Total"
	defaultFieldProducts    = "Ordered Products"
	defaultFieldStatus      = "Delivery Status"
	defaultFieldRating      = "Lead Rating"
)

// payloadAdIDKey is the member of the JSON payload field that carries the ad id.
const payloadAdIDKey = "ad_id"

func fieldFromEnv(envKey, def string) string {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v
	}
	return def
}

// FieldNames resolves the custom field names for the current deployment.
type FieldNames struct {
	AdID       string
	AdPayload  string
	OrderTotal string
	Products   string
	Status     string
	Rating     string
}

func LoadFieldNames() FieldNames {
	return FieldNames{
		AdID:       fieldFromEnv("CRM_FIELD_AD_ID", defaultFieldAdID),
		AdPayload:  fieldFromEnv("CRM_FIELD_AD_PAYLOAD", defaultFieldAdPayload),
		OrderTotal: fieldFromEnv("CRM_FIELD_ORDER_TOTAL", defaultFieldOrderTotal),
		Products:   fieldFromEnv("CRM_FIELD_PRODUCTS", defaultFieldProducts),
		Status:     fieldFromEnv("CRM_FIELD_STATUS", defaultFieldStatus),
		Rating:     fieldFromEnv("CRM_FIELD_RATING", defaultFieldRating),
	}
}

// ContactSummary is one row of the panel's bulk listing. The listing is cheap
// but does NOT include custom fields; those need a per-contact detail fetch.
type ContactSummary struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
}

// ContactDetail is the per-contact payload with the custom field map.
type ContactDetail struct {
	ID           string            `json:"id"`
	FullName     string            `json:"full_name"`
	Phone        string            `json:"phone"`
	Email        string            `json:"email"`
	CustomFields map[string]string `json:"custom_fields"`
}
