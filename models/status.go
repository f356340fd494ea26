package models

import "strings"

// statusTokens maps upstream free-text statuses to canonical tokens. The
// fulfillment providers report Spanish wall statuses; CRM panels mirror them
// with slight spelling drift, so matching is prefix-tolerant on the known set.
var statusTokens = map[string]string{
	"ENTREGADO":            "DELIVERED",
	"DELIVERED":            "DELIVERED",
	"DEVOLUCION":           "RETURNED",
	"DEVOLUCIÓN":           "RETURNED",
	"RETURNED":             "RETURNED",
	"CANCELADO":            "CANCELLED",
	"CANCELLED":            "CANCELLED",
	"RECHAZADO":            "CANCELLED",
	"PENDIENTE":            "PENDING",
	"PENDING":              "PENDING",
	"PENDIENTE CONFIRMACION": "PENDING",
	"EN RUTA":              "IN_TRANSIT",
	"EN_RUTA":              "IN_TRANSIT",
	"GUIA GENERADA":        "IN_TRANSIT",
	"GUIA_GENERADA":        "IN_TRANSIT",
	"EN BODEGA":            "IN_TRANSIT",
	"EN TRANSITO":          "IN_TRANSIT",
	"EN REPARTO":           "IN_TRANSIT",
	"IN_TRANSIT":           "IN_TRANSIT",
}

// CanonicalStatus normalizes an upstream status string to one of the
// canonical tokens (DELIVERED, RETURNED, CANCELLED, PENDING, IN_TRANSIT).
// Unrecognized inputs return "UNKNOWN"; the raw value is kept alongside.
func CanonicalStatus(raw string) string {
	key := strings.ToUpper(strings.TrimSpace(raw))
	if key == "" {
		return "UNKNOWN"
	}
	if token, ok := statusTokens[key]; ok {
		return token
	}
	// Tolerate suffixed variants like "ENTREGADO - CONFIRMADO".
	for known, token := range statusTokens {
		if strings.HasPrefix(key, known) {
			return token
		}
	}
	return "UNKNOWN"
}

func CanonicalContactStatus(raw string) ContactStatus {
	return ContactStatus(CanonicalStatus(raw))
}

func CanonicalOrderStatus(raw string) OrderStatus {
	return OrderStatus(CanonicalStatus(raw))
}
