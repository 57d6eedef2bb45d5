package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jjavieralv/x402-video/internal/catalog"
	"github.com/jjavieralv/x402-video/internal/facilitator"
	"github.com/jjavieralv/x402-video/internal/paywall"
	"github.com/jjavieralv/x402-video/internal/session"
)

// Handler owns the HTTP surface: the free playlist, the gated segment
// endpoint, and the guided payment flow pages. All payment decisions are
// delegated to the gate; the handlers only translate its verdicts into
// HTTP responses.
type Handler struct {
	catalog     *catalog.Catalog
	gate        paywall.Gate
	facilitator *facilitator.Client
	price       string
	log         zerolog.Logger
}

func NewHandler(
	cat *catalog.Catalog,
	gate paywall.Gate,
	fac *facilitator.Client,
	price string,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		catalog:     cat,
		gate:        gate,
		facilitator: fac,
		price:       price,
		log:         log,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/video/playlist.m3u8", h.Playlist)
	r.GET("/video/segment/:id", h.Segment)
	r.GET("/pay/:id", h.PayPage)
	r.GET("/payment-success/:id", h.SuccessPage)
	r.GET("/api/check-paid/:id", h.CheckPaid)
}

// Playlist serves the rewritten manifest. Always free.
func (h *Handler) Playlist(c *gin.Context) {
	manifest, err := h.catalog.Playlist()
	if err != nil {
		h.log.Error().Err(err).Msg("playlist unavailable")
		c.String(http.StatusInternalServerError, "playlist unavailable")
		return
	}
	c.Data(http.StatusOK, "application/vnd.apple.mpegurl", manifest)
}

// Segment is the protected delivery endpoint. The gate decides; this
// handler trusts its verdict completely and only streams bytes or maps
// denials onto status codes.
func (h *Handler) Segment(c *gin.Context) {
	segmentID := catalog.CanonicalID(c.Param("id"))

	sessionID, paidSet, ok := session.FromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session not resolved"})
		return
	}

	decision, err := h.gate.Authorize(c.Request.Context(), paywall.Request{
		SessionID:    sessionID,
		PaidSet:      paidSet,
		SegmentID:    segmentID,
		Proof:        c.GetHeader(paywall.ProofHeader),
		Programmatic: paywall.Programmatic(c.GetHeader("Accept")),
	})
	if err != nil {
		switch {
		case errors.Is(err, facilitator.ErrInvalidPayment):
			c.JSON(http.StatusPaymentRequired, gin.H{
				"x402Version": 1,
				"error":       err.Error(),
				"accepts":     []facilitator.PaymentRequirements{h.facilitator.RequirementsFor(segmentID)},
			})
		case errors.Is(err, facilitator.ErrUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{
				"error": "payment facilitator unavailable, please retry",
			})
		default:
			h.log.Error().Err(err).Msg("gate failure")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	if decision.Challenge != nil {
		c.JSON(http.StatusPaymentRequired, decision.Challenge)
		return
	}

	path, err := h.catalog.Path(segmentID)
	if err != nil {
		c.String(http.StatusNotFound, "Segment not found")
		return
	}

	if decision.Receipt != nil {
		if data, err := json.Marshal(decision.Receipt); err == nil {
			c.Header("X-PAYMENT-RESPONSE", base64.StdEncoding.EncodeToString(data))
		}
	}

	h.log.Debug().Str("segment", segmentID).Msg("serving segment")

	c.Header("Content-Type", "video/MP2T")
	c.Header("Cache-Control", "no-cache")
	c.File(path)
}

// PayPage renders the guided payment flow for one segment. Already-paid
// segments skip straight to the confirmation page.
func (h *Handler) PayPage(c *gin.Context) {
	segmentID := catalog.CanonicalID(c.Param("id"))

	_, paidSet, ok := session.FromContext(c)
	if !ok {
		c.String(http.StatusInternalServerError, "session not resolved")
		return
	}

	paid, err := paidSet.Contains(c.Request.Context(), segmentID)
	if err != nil {
		c.String(http.StatusInternalServerError, "session store unavailable")
		return
	}
	if paid {
		c.Redirect(http.StatusFound, "/payment-success/"+segmentID)
		return
	}

	c.HTML(http.StatusOK, "pay.html", gin.H{
		"SegmentID": segmentID,
		"Price":     h.price,
	})
}

// SuccessPage is the static confirmation page. When opened as a popup it
// signals the opener and closes itself (client side).
func (h *Handler) SuccessPage(c *gin.Context) {
	c.HTML(http.StatusOK, "success.html", gin.H{
		"SegmentID": catalog.CanonicalID(c.Param("id")),
	})
}

// CheckPaid is the cheap idempotent status read the pay page polls until
// the paid-set entry appears.
func (h *Handler) CheckPaid(c *gin.Context) {
	segmentID := catalog.CanonicalID(c.Param("id"))

	_, paidSet, ok := session.FromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session not resolved"})
		return
	}

	paid, err := paidSet.Contains(c.Request.Context(), segmentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session store unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"segmentId": segmentID,
		"isPaid":    paid,
	})
}
