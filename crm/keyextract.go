package crm

import (
	"encoding/json"
	"strings"

	"github.com/lucidmetrics/adsync_backend/models"
	"github.com/shopspring/decimal"
)

// ExtractAdID pulls the ad correlation key out of a contact's custom fields.
//
// Precedence:
//  1. the direct ad field, taken verbatim when non-empty
//  2. the payload field, parsed as a JSON object whose "ad_id" member is used
//
// Anything else (both absent, empty direct field AND malformed/keyless
// payload) yields ("", false). A malformed payload is a normal outcome, not
// an error: contacts from organic traffic never carry one.
func ExtractAdID(fields map[string]string, names FieldNames) (string, bool) {
	if direct := strings.TrimSpace(fields[names.AdID]); direct != "" {
		return direct, true
	}

	raw := strings.TrimSpace(fields[names.AdPayload])
	if raw == "" {
		return "", false
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", false
	}
	idRaw, ok := payload[payloadAdIDKey]
	if !ok {
		return "", false
	}
	var id string
	if err := json.Unmarshal(idRaw, &id); err != nil {
		// Some panels store the id as a bare number.
		var n json.Number
		if err := json.Unmarshal(idRaw, &n); err != nil {
			return "", false
		}
		id = n.String()
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", false
	}
	return id, true
}

// DeriveSale reads the order-total field: a parseable positive amount marks
// the contact as a sale with that value.
func DeriveSale(fields map[string]string, names FieldNames) (bool, decimal.NullDecimal) {
	raw := strings.TrimSpace(fields[names.OrderTotal])
	if raw == "" {
		return false, decimal.NullDecimal{}
	}
	// Panels format totals with thousands separators.
	raw = strings.NewReplacer("$", "", ",", "", " ", "").Replace(raw)
	value, err := decimal.NewFromString(raw)
	if err != nil || !value.IsPositive() {
		return false, decimal.NullDecimal{}
	}
	return true, decimal.NullDecimal{Decimal: value, Valid: true}
}

// DeriveStatus maps the delivery-status field to the canonical contact status.
func DeriveStatus(fields map[string]string, names FieldNames) models.ContactStatus {
	return models.CanonicalContactStatus(fields[names.Status])
}
