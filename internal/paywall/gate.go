package paywall

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jjavieralv/x402-video/internal/facilitator"
	"github.com/jjavieralv/x402-video/internal/session"
)

// Verifier is the external payment boundary. The facilitator client
// implements it; tests stub it.
type Verifier interface {
	VerifyAndSettle(ctx context.Context, proof, segmentID string) (*facilitator.Receipt, error)
}

// Request is everything the gate needs to authorize one segment access.
type Request struct {
	SessionID    string
	PaidSet      session.PaidSet
	SegmentID    string
	Proof        string // raw X-PAYMENT header value, "" when absent
	Programmatic bool
}

// Decision is the gate's verdict. Exactly one of Granted or Challenge is
// set on a nil-error return. Receipt is present only when this very
// request settled the payment.
type Decision struct {
	Granted   bool
	Challenge *Challenge
	Receipt   *facilitator.Receipt
}

// Gate decides whether a request may access a segment. The two
// implementations correspond to the two deployment modes: enforced and
// bypass. Which one runs is fixed at construction time, not per request.
type Gate interface {
	Authorize(ctx context.Context, req Request) (Decision, error)
}

// New returns the gate for the deployment mode. With bypass enabled every
// request is granted unconditionally and the verifier is never invoked.
func New(verifier Verifier, bypass bool, log zerolog.Logger) Gate {
	if bypass {
		return bypassGate{}
	}
	return &enforcedGate{verifier: verifier, log: log}
}

type bypassGate struct{}

func (bypassGate) Authorize(context.Context, Request) (Decision, error) {
	return Decision{Granted: true}, nil
}

type enforcedGate struct {
	verifier Verifier
	log      zerolog.Logger
}

// Authorize walks the per-(session, segment) state machine:
//
//	paid already          -> grant, nothing else consulted
//	programmatic, no proof -> challenge, no state change
//	otherwise             -> verify+settle, record on success
//
// A failed verification records nothing, so the state falls back to unpaid
// and the caller may retry with a fresh proof.
func (g *enforcedGate) Authorize(ctx context.Context, req Request) (Decision, error) {
	paid, err := req.PaidSet.Contains(ctx, req.SegmentID)
	if err != nil {
		return Decision{}, err
	}
	if paid {
		return Decision{Granted: true}, nil
	}

	if req.Programmatic && req.Proof == "" {
		g.log.Debug().
			Str("session", req.SessionID).
			Str("segment", req.SegmentID).
			Msg("challenge issued")
		return Decision{Challenge: NewChallenge(req.SegmentID)}, nil
	}

	// Once a proof is submitted the payment must not be lost because the
	// requester disconnected mid-flight: settle on a context that survives
	// request cancellation. The verifier's own timeout bounds the call.
	settleCtx := context.WithoutCancel(ctx)

	receipt, err := g.verifier.VerifyAndSettle(settleCtx, req.Proof, req.SegmentID)
	if err != nil {
		g.log.Info().Err(err).
			Str("session", req.SessionID).
			Str("segment", req.SegmentID).
			Msg("payment verification failed")
		return Decision{}, err
	}

	// Set insert: a second concurrent success for the same segment is a
	// harmless no-op, not an error.
	if err := req.PaidSet.Add(settleCtx, req.SegmentID); err != nil {
		return Decision{}, err
	}

	g.log.Info().
		Str("session", req.SessionID).
		Str("segment", req.SegmentID).
		Str("tx", receipt.Transaction).
		Msg("segment paid")

	return Decision{Granted: true, Receipt: receipt}, nil
}
