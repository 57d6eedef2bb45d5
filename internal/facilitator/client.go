package facilitator

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// The two failure kinds are deliberately distinct: an invalid proof is the
// caller's problem (retry with a fresh proof), an unreachable facilitator
// is transient (retry the same proof later). Neither is ever silently
// collapsed into the other.
var (
	// ErrInvalidPayment means the facilitator looked at the proof and
	// rejected it.
	ErrInvalidPayment = errors.New("facilitator: payment invalid")

	// ErrUnavailable means we never got a usable verdict: timeout,
	// transport failure, or a broken facilitator response.
	ErrUnavailable = errors.New("facilitator: unavailable")
)

// Config describes the deployment's payment terms and where to have proofs
// checked.
type Config struct {
	BaseURL string
	Timeout time.Duration

	Network string // e.g. "base-sepolia"
	Price   string // e.g. "$0.001"
	PayTo   string // receiver address
}

// PaymentRequirements is the x402 description of what a payment for one
// resource must look like. It is included in 402 responses so wallets know
// what to sign, and sent alongside every verify/settle call.
type PaymentRequirements struct {
	Scheme            string `json:"scheme"`
	Network           string `json:"network"`
	MaxAmountRequired string `json:"maxAmountRequired"`
	Resource          string `json:"resource"`
	Description       string `json:"description"`
	MimeType          string `json:"mimeType"`
	PayTo             string `json:"payTo"`
	MaxTimeoutSeconds int    `json:"maxTimeoutSeconds"`
}

// Receipt is the settlement result for a successful payment.
type Receipt struct {
	Transaction string `json:"transaction"`
	Network     string `json:"network"`
	Payer       string `json:"payer,omitempty"`
}

// Client talks to an external x402 facilitator over HTTP. It holds no
// state; every proof is verified and settled within a single call.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a facilitator client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// RequirementsFor builds the payment requirements for one video segment.
func (c *Client) RequirementsFor(segmentID string) PaymentRequirements {
	return PaymentRequirements{
		Scheme:            "exact",
		Network:           c.cfg.Network,
		MaxAmountRequired: c.cfg.Price,
		Resource:          "/video/segment/" + segmentID,
		Description:       "Video segment access",
		MimeType:          "video/MP2T",
		PayTo:             c.cfg.PayTo,
		MaxTimeoutSeconds: int(c.cfg.Timeout / time.Second),
	}
}

type verifyResponse struct {
	IsValid       bool   `json:"isValid"`
	InvalidReason string `json:"invalidReason,omitempty"`
}

type settleResponse struct {
	Success     bool   `json:"success"`
	ErrorReason string `json:"errorReason,omitempty"`
	Transaction string `json:"transaction,omitempty"`
	Network     string `json:"network,omitempty"`
	Payer       string `json:"payer,omitempty"`
}

// VerifyAndSettle checks a payment proof against the requirements for the
// segment and, if valid, settles it. Duplicate submission of the same
// proof is safe: the facilitator deduplicates settlements by payload, so a
// second settle of an already-settled proof is a no-op on its side.
func (c *Client) VerifyAndSettle(ctx context.Context, proof, segmentID string) (*Receipt, error) {
	payload, err := decodeProof(proof)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPayment, err)
	}

	requirements := c.RequirementsFor(segmentID)
	body := map[string]any{
		"x402Version":         1,
		"paymentPayload":      payload,
		"paymentRequirements": requirements,
	}

	var verdict verifyResponse
	if err := c.post(ctx, "/verify", body, nil, &verdict); err != nil {
		return nil, err
	}
	if !verdict.IsValid {
		reason := verdict.InvalidReason
		if reason == "" {
			reason = "rejected by facilitator"
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidPayment, reason)
	}

	// One idempotency key per settle attempt; the facilitator additionally
	// dedupes by payment payload.
	headers := map[string]string{"X-Idempotency-Key": uuid.NewString()}

	var settled settleResponse
	if err := c.post(ctx, "/settle", body, headers, &settled); err != nil {
		return nil, err
	}
	if !settled.Success {
		reason := settled.ErrorReason
		if reason == "" {
			reason = "settlement failed"
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidPayment, reason)
	}

	return &Receipt{
		Transaction: settled.Transaction,
		Network:     settled.Network,
		Payer:       settled.Payer,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body any, headers map[string]string, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: encode request: %s", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned status %d", ErrUnavailable, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %s", ErrUnavailable, path, err)
	}
	return nil
}

// decodeProof unpacks an X-PAYMENT header value. Wallets send base64 over
// JSON; raw JSON is accepted too for direct callers.
func decodeProof(proof string) (json.RawMessage, error) {
	if proof == "" {
		return nil, errors.New("payment header required")
	}
	if decoded, err := base64.StdEncoding.DecodeString(proof); err == nil && json.Valid(decoded) {
		return json.RawMessage(decoded), nil
	}
	if json.Valid([]byte(proof)) {
		return json.RawMessage(proof), nil
	}
	return nil, errors.New("malformed payment payload")
}
