package paywall

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jjavieralv/x402-video/internal/facilitator"
	"github.com/jjavieralv/x402-video/internal/session"
)

type stubVerifier struct {
	err   error
	calls atomic.Int64
}

func (s *stubVerifier) VerifyAndSettle(_ context.Context, _, _ string) (*facilitator.Receipt, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &facilitator.Receipt{Transaction: "0xtxhash", Network: "base-sepolia"}, nil
}

func testPaidSet(t *testing.T) session.PaidSet {
	t.Helper()
	store := session.NewMemoryStore()
	set, err := store.PaidSet(context.Background(), "s1")
	require.NoError(t, err)
	return set
}

func TestGate_alreadyPaidShortCircuits(t *testing.T) {
	ctx := context.Background()
	verifier := &stubVerifier{}
	gate := New(verifier, false, zerolog.Nop())

	paidSet := testPaidSet(t)
	require.NoError(t, paidSet.Add(ctx, "7"))

	// Classification and proof are irrelevant once paid.
	for _, req := range []Request{
		{SessionID: "s1", PaidSet: paidSet, SegmentID: "7", Programmatic: true},
		{SessionID: "s1", PaidSet: paidSet, SegmentID: "7", Programmatic: false},
		{SessionID: "s1", PaidSet: paidSet, SegmentID: "7", Proof: "anything", Programmatic: true},
	} {
		decision, err := gate.Authorize(ctx, req)
		require.NoError(t, err)
		require.True(t, decision.Granted)
		require.Nil(t, decision.Challenge)
	}

	require.Equal(t, int64(0), verifier.calls.Load(), "paid segments must never reach the verifier")
}

func TestGate_programmaticUnpaidGetsChallenge(t *testing.T) {
	ctx := context.Background()
	verifier := &stubVerifier{}
	gate := New(verifier, false, zerolog.Nop())
	paidSet := testPaidSet(t)

	decision, err := gate.Authorize(ctx, Request{
		SessionID:    "s1",
		PaidSet:      paidSet,
		SegmentID:    "7",
		Programmatic: true,
	})
	require.NoError(t, err)
	require.False(t, decision.Granted)
	require.NotNil(t, decision.Challenge)
	require.Equal(t, 1, decision.Challenge.X402Version)
	require.Equal(t, "Payment required", decision.Challenge.Error)
	require.Equal(t, "7", decision.Challenge.SegmentID)
	require.Equal(t, "/pay/7", decision.Challenge.PaymentURL)

	// Challenge issuance is not a state change.
	paid, err := paidSet.Contains(ctx, "7")
	require.NoError(t, err)
	require.False(t, paid)
	require.Equal(t, int64(0), verifier.calls.Load())
}

func TestGate_proofSuccessRecordsAndGrants(t *testing.T) {
	ctx := context.Background()
	verifier := &stubVerifier{}
	gate := New(verifier, false, zerolog.Nop())
	paidSet := testPaidSet(t)

	decision, err := gate.Authorize(ctx, Request{
		SessionID:    "s1",
		PaidSet:      paidSet,
		SegmentID:    "7",
		Proof:        "proof",
		Programmatic: true,
	})
	require.NoError(t, err)
	require.True(t, decision.Granted)
	require.NotNil(t, decision.Receipt)
	require.Equal(t, "0xtxhash", decision.Receipt.Transaction)

	paid, err := paidSet.Contains(ctx, "7")
	require.NoError(t, err)
	require.True(t, paid)

	// Follow-up request short-circuits without another verifier call.
	decision, err = gate.Authorize(ctx, Request{
		SessionID: "s1", PaidSet: paidSet, SegmentID: "7", Programmatic: true,
	})
	require.NoError(t, err)
	require.True(t, decision.Granted)
	require.Nil(t, decision.Receipt)
	require.Equal(t, int64(1), verifier.calls.Load())
}

func TestGate_verificationFailureRecordsNothing(t *testing.T) {
	ctx := context.Background()
	verifier := &stubVerifier{err: facilitator.ErrInvalidPayment}
	gate := New(verifier, false, zerolog.Nop())
	paidSet := testPaidSet(t)

	req := Request{SessionID: "s1", PaidSet: paidSet, SegmentID: "7", Proof: "bad", Programmatic: true}

	_, err := gate.Authorize(ctx, req)
	require.ErrorIs(t, err, facilitator.ErrInvalidPayment)

	paid, err := paidSet.Contains(ctx, "7")
	require.NoError(t, err)
	require.False(t, paid, "failed verification must not create a paid-set entry")

	// A retry with a good proof still succeeds.
	verifier.err = nil
	decision, err := gate.Authorize(ctx, req)
	require.NoError(t, err)
	require.True(t, decision.Granted)

	paid, err = paidSet.Contains(ctx, "7")
	require.NoError(t, err)
	require.True(t, paid)
}

func TestGate_verifierUnavailablePropagates(t *testing.T) {
	ctx := context.Background()
	verifier := &stubVerifier{err: fmt.Errorf("%w: dial tcp: connection refused", facilitator.ErrUnavailable)}
	gate := New(verifier, false, zerolog.Nop())
	paidSet := testPaidSet(t)

	_, err := gate.Authorize(ctx, Request{
		SessionID: "s1", PaidSet: paidSet, SegmentID: "7", Proof: "proof", Programmatic: true,
	})
	require.ErrorIs(t, err, facilitator.ErrUnavailable)
	require.NotErrorIs(t, err, facilitator.ErrInvalidPayment)

	paid, err := paidSet.Contains(ctx, "7")
	require.NoError(t, err)
	require.False(t, paid)
}

func TestGate_concurrentProofsSingleLogicalGrant(t *testing.T) {
	ctx := context.Background()
	verifier := &stubVerifier{}
	gate := New(verifier, false, zerolog.Nop())
	paidSet := testPaidSet(t)

	const racers = 8

	var wg sync.WaitGroup
	granted := make([]bool, racers)
	errs := make([]error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decision, err := gate.Authorize(ctx, Request{
				SessionID: "s1", PaidSet: paidSet, SegmentID: "7", Proof: "proof", Programmatic: true,
			})
			granted[i] = decision.Granted
			errs[i] = err
		}(i)
	}
	wg.Wait()

	// Every racer is granted; a second concurrent success is a harmless
	// no-op, never an error.
	for i := 0; i < racers; i++ {
		require.NoError(t, errs[i])
		require.True(t, granted[i])
	}

	paid, err := paidSet.Contains(ctx, "7")
	require.NoError(t, err)
	require.True(t, paid)
}

func TestGate_interactiveWithoutProofGoesToVerification(t *testing.T) {
	ctx := context.Background()
	verifier := &stubVerifier{err: facilitator.ErrInvalidPayment}
	gate := New(verifier, false, zerolog.Nop())
	paidSet := testPaidSet(t)

	// Interactive callers never get the structured challenge; they fall
	// through to verification and from there into the guided flow.
	_, err := gate.Authorize(ctx, Request{
		SessionID: "s1", PaidSet: paidSet, SegmentID: "7", Programmatic: false,
	})
	require.ErrorIs(t, err, facilitator.ErrInvalidPayment)
	require.Equal(t, int64(1), verifier.calls.Load())
}

func TestGate_bypassGrantsEverything(t *testing.T) {
	ctx := context.Background()
	verifier := &stubVerifier{}
	gate := New(verifier, true, zerolog.Nop())

	// nil PaidSet proves bypass consults neither store nor verifier.
	decision, err := gate.Authorize(ctx, Request{SessionID: "s1", SegmentID: "7", Programmatic: true})
	require.NoError(t, err)
	require.True(t, decision.Granted)
	require.Nil(t, decision.Challenge)
	require.Equal(t, int64(0), verifier.calls.Load())
}
