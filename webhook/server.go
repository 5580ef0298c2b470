// Package webhook exposes the HTTP ingress that turns chart alerts
// into reconciliations. Every request is answered with a success flag
// and a human-readable reason; nothing is silently dropped.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rustyeddy/wickbot/broker"
	"github.com/rustyeddy/wickbot/reconcile"
	"github.com/rustyeddy/wickbot/signal"
)

const maxBodyBytes = 64 << 10

// Reconciler is the part of the reconciliation engine the ingress
// needs.
type Reconciler interface {
	Reconcile(ctx context.Context, sig signal.Signal) (reconcile.Result, error)
}

// Response is the envelope every webhook reply carries.
type Response struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
	Ticket  string `json:"ticket,omitempty"`
}

type Server struct {
	reconciler Reconciler
	log        zerolog.Logger
}

func NewServer(r Reconciler, log zerolog.Logger) *Server {
	return &Server{reconciler: r, log: log.With().Str("component", "webhook").Logger()}
}

// Handler returns the ingress routes wrapped with request IDs.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook/trade_signal", s.handleTradeSignal)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Response{Success: true, Reason: "ok"})
	})
	return s.requestID(mux)
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", rid)
		ctx := s.log.With().Str("request_id", rid).Logger().WithContext(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleTradeSignal(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())

	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, Response{Success: false, Reason: "POST required"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Reason: "unreadable body"})
		return
	}

	req, err := ParseTradeRequest(body)
	if err != nil {
		log.Warn().Err(err).Msg("failed to parse trade signal")
		writeJSON(w, http.StatusBadRequest, Response{Success: false, Reason: err.Error()})
		return
	}

	log.Info().Str("symbol", req.Symbol).Str("side", req.Side.String()).Msg("trade signal received")

	result, err := s.reconciler.Reconcile(r.Context(), signal.Signal{
		Symbol:         req.Symbol,
		Side:           req.Side,
		ReferencePrice: req.EntryPrice,
		Time:           time.Now(),
	})
	if err != nil {
		s.writeFailure(w, log, result, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Reason:  string(result.Outcome),
		Ticket:  result.Ticket,
	})
}

func (s *Server) writeFailure(w http.ResponseWriter, log *zerolog.Logger, result reconcile.Result, err error) {
	log.Warn().Err(err).Str("outcome", string(result.Outcome)).Msg("trade signal not applied")

	var conflict *reconcile.ConflictError
	switch {
	case errors.Is(err, reconcile.ErrShutdown):
		writeJSON(w, http.StatusServiceUnavailable, Response{Success: false, Reason: "shutting down"})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, Response{Success: false, Reason: err.Error()})
	case broker.IsTransport(err):
		writeJSON(w, http.StatusBadGateway, Response{Success: false, Reason: err.Error()})
	default:
		// Business rejections, including a failed re-entry after a
		// completed close.
		writeJSON(w, http.StatusUnprocessableEntity, Response{
			Success: false,
			Reason:  err.Error(),
			Ticket:  result.ClosedTicket,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
