package logger

import "strings"

// RedactGCLID masks a Google click identifier for safe logging.
// "Cj0KCQjw8e2hBhDiARIsAKsm" → "Cj0KCQ***"
// Short identifiers (≤6 chars) are fully masked.
func RedactGCLID(gclid string) string {
	if gclid == "" {
		return ""
	}
	if len(gclid) <= 6 {
		return "***"
	}
	return gclid[:6] + "***"
}

// RedactCustomerID masks a customer identifier, keeping only a short prefix
// so correlated log lines remain groupable.
func RedactCustomerID(id string) string {
	if len(id) <= 4 {
		return "***"
	}
	return id[:4] + "***"
}

func redactIDValue(key, val string) string {
	key = strings.ToLower(key)
	if strings.Contains(key, "gclid") {
		return RedactGCLID(val)
	}
	if strings.Contains(key, "customer_id") || strings.Contains(key, "customer") {
		return RedactCustomerID(val)
	}
	return val
}
