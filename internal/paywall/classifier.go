package paywall

import "strings"

// ProofHeader carries the payment proof when a caller has one. Its
// presence is what moves a request from challenge issuance into
// verification.
const ProofHeader = "X-PAYMENT"

// Programmatic classifies a request by its Accept header. Automated
// clients (the HLS player fetching segments) never ask for rendered HTML,
// so anything not accepting text/html gets structured, machine-consumable
// responses. Interactive clients are routed into the guided payment flow.
func Programmatic(accept string) bool {
	return !strings.Contains(accept, "text/html")
}
