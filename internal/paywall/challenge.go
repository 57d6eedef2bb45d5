package paywall

// Challenge is the structured 402 body handed to programmatic callers for
// an unpaid segment. It is derived on demand and never stored; issuing one
// changes no state, so it can be re-issued on every request until a proof
// shows up.
type Challenge struct {
	X402Version int    `json:"x402Version"`
	Error       string `json:"error"`
	SegmentID   string `json:"segmentId"`
	PaymentURL  string `json:"paymentUrl"`
}

// NewChallenge builds the challenge for one segment. The payment URL
// points a human (or a polite agent) at the guided flow.
func NewChallenge(segmentID string) *Challenge {
	return &Challenge{
		X402Version: 1,
		Error:       "Payment required",
		SegmentID:   segmentID,
		PaymentURL:  "/pay/" + segmentID,
	}
}
