package crm

import (
	"testing"

	"github.com/lucidmetrics/adsync_backend/models"
)

func testFieldNames() FieldNames {
	return FieldNames{
		AdID:       "Facebook Ad",
		AdPayload:  "fb_payload",
		OrderTotal: "Order Total",
		Products:   "Ordered Products",
		Status:     "Delivery Status",
		Rating:     "Lead Rating",
	}
}

func TestExtractAdID(t *testing.T) {
	names := testFieldNames()
	cases := []struct {
		name     string
		fields   map[string]string
		expected string
		found    bool
	}{
		{
			name:     "direct field wins",
			fields:   map[string]string{"Facebook Ad": "120211234567890", "fb_payload": `{"ad_id":"999"}`},
			expected: "120211234567890",
			found:    true,
		},
		{
			name:     "direct field is trimmed",
			fields:   map[string]string{"Facebook Ad": "  120211234567890  "},
			expected: "120211234567890",
			found:    true,
		},
		{
			name:     "payload fallback with string id",
			fields:   map[string]string{"fb_payload": `{"ad_id":"120217776665554","campaign_id":"1"}`},
			expected: "120217776665554",
			found:    true,
		},
		{
			name:     "payload fallback with numeric id",
			fields:   map[string]string{"fb_payload": `{"ad_id":120217776665554}`},
			expected: "120217776665554",
			found:    true,
		},
		{
			name:   "empty direct field and malformed payload",
			fields: map[string]string{"Facebook Ad": "   ", "fb_payload": `{"ad_id":`},
			found:  false,
		},
		{
			name:   "payload without the key",
			fields: map[string]string{"fb_payload": `{"campaign_id":"1"}`},
			found:  false,
		},
		{
			name:   "payload is not a json object",
			fields: map[string]string{"fb_payload": `not json at all`},
			found:  false,
		},
		{
			name:   "no fields at all",
			fields: map[string]string{},
			found:  false,
		},
	}

	for _, tc := range cases {
		id, found := ExtractAdID(tc.fields, names)
		if found != tc.found {
			t.Fatalf("%s: expected found=%v, got %v", tc.name, tc.found, found)
		}
		if found && id != tc.expected {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.expected, id)
		}
		if !found && id != "" {
			t.Fatalf("%s: expected empty id when not found, got %q", tc.name, id)
		}
	}
}

func TestDeriveSale(t *testing.T) {
	names := testFieldNames()
	cases := []struct {
		in     string
		isSale bool
		value  string
	}{
		{"299500", true, "299500"},
		{"$ 1,299.50", true, "1299.5"},
		{"  84 900  ", true, "84900"},
		{"0", false, ""},
		{"-100", false, ""},
		{"sin venta", false, ""},
		{"", false, ""},
	}

	for _, tc := range cases {
		isSale, value := DeriveSale(map[string]string{"Order Total": tc.in}, names)
		if isSale != tc.isSale {
			t.Fatalf("DeriveSale(%q) expected isSale=%v, got %v", tc.in, tc.isSale, isSale)
		}
		if isSale {
			if !value.Valid {
				t.Fatalf("DeriveSale(%q) expected a valid value", tc.in)
			}
			if value.Decimal.String() != tc.value {
				t.Fatalf("DeriveSale(%q) expected %s, got %s", tc.in, tc.value, value.Decimal.String())
			}
		} else if value.Valid {
			t.Fatalf("DeriveSale(%q) expected null value for non-sale", tc.in)
		}
	}
}

func TestDeriveStatus(t *testing.T) {
	names := testFieldNames()
	cases := []struct {
		in       string
		expected models.ContactStatus
	}{
		{"ENTREGADO", models.ContactStatus("DELIVERED")},
		{"entregado - confirmado", models.ContactStatus("DELIVERED")},
		{"DEVOLUCION", models.ContactStatus("RETURNED")},
		{"EN RUTA", models.ContactStatus("IN_TRANSIT")},
		{"lo que sea", models.ContactStatus("UNKNOWN")},
		{"", models.ContactStatus("UNKNOWN")},
	}
	for _, tc := range cases {
		got := DeriveStatus(map[string]string{"Delivery Status": tc.in}, names)
		if got != tc.expected {
			t.Fatalf("DeriveStatus(%q) expected %s, got %s", tc.in, tc.expected, got)
		}
	}
}
