package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/wickbot/broker"
	"github.com/rustyeddy/wickbot/market"
	"github.com/rustyeddy/wickbot/reconcile"
	"github.com/rustyeddy/wickbot/signal"
)

// stubReconciler replays a canned result and remembers the last signal.
type stubReconciler struct {
	result reconcile.Result
	err    error
	last   signal.Signal
}

func (s *stubReconciler) Reconcile(_ context.Context, sig signal.Signal) (reconcile.Result, error) {
	s.last = sig
	return s.result, s.err
}

func post(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhook/trade_signal", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec, resp
}

func TestTradeSignalAccepted(t *testing.T) {
	stub := &stubReconciler{result: reconcile.Result{Outcome: reconcile.Opened, Ticket: "T-1"}}
	h := NewServer(stub, zerolog.Nop()).Handler()

	rec, resp := post(t, h, `{"symbol":"EURUSD","trade_type":"buy","entry_price":1.0851}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "T-1", resp.Ticket)
	assert.Equal(t, market.Buy, stub.last.Side)
	assert.Equal(t, 1.0851, stub.last.ReferencePrice)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestTradeSignalResolvesAliases(t *testing.T) {
	stub := &stubReconciler{result: reconcile.Result{Outcome: reconcile.Opened}}
	h := NewServer(stub, zerolog.Nop()).Handler()

	rec, _ := post(t, h, `{"symbol":"US500","trade_type":"sell"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "US500Cash", stub.last.Symbol)
}

func TestTradeSignalBadBody(t *testing.T) {
	stub := &stubReconciler{}
	h := NewServer(stub, zerolog.Nop()).Handler()

	rec, resp := post(t, h, `{"trade_type":"buy"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Reason, "symbol")
	assert.Empty(t, stub.last.Symbol)
}

func TestTradeSignalMethodNotAllowed(t *testing.T) {
	h := NewServer(&stubReconciler{}, zerolog.Nop()).Handler()

	req := httptest.NewRequest(http.MethodGet, "/webhook/trade_signal", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestTradeSignalConflict(t *testing.T) {
	stub := &stubReconciler{err: &reconcile.ConflictError{Symbol: "EURUSD"}}
	h := NewServer(stub, zerolog.Nop()).Handler()

	rec, resp := post(t, h, `{"symbol":"EURUSD","trade_type":"buy"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, resp.Success)
}

func TestTradeSignalShutdown(t *testing.T) {
	stub := &stubReconciler{err: reconcile.ErrShutdown}
	h := NewServer(stub, zerolog.Nop()).Handler()

	rec, _ := post(t, h, `{"symbol":"EURUSD","trade_type":"buy"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTradeSignalTransportFailure(t *testing.T) {
	stub := &stubReconciler{err: &broker.TransportError{Op: "submit", Symbol: "EURUSD", Err: context.DeadlineExceeded}}
	h := NewServer(stub, zerolog.Nop()).Handler()

	rec, _ := post(t, h, `{"symbol":"EURUSD","trade_type":"buy"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestTradeSignalRejectionCarriesClosedTicket(t *testing.T) {
	stub := &stubReconciler{
		result: reconcile.Result{Outcome: reconcile.ClosedOnly, ClosedTicket: "T-9"},
		err:    &broker.RejectionError{Op: "submit", Symbol: "EURUSD", RetCode: broker.RetNoMoney},
	}
	h := NewServer(stub, zerolog.Nop()).Handler()

	rec, resp := post(t, h, `{"symbol":"EURUSD","trade_type":"sell"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "T-9", resp.Ticket)
}

func TestHealthz(t *testing.T) {
	h := NewServer(&stubReconciler{}, zerolog.Nop()).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDPreserved(t *testing.T) {
	h := NewServer(&stubReconciler{result: reconcile.Result{Outcome: reconcile.Opened}}, zerolog.Nop()).Handler()

	req := httptest.NewRequest(http.MethodPost, "/webhook/trade_signal",
		strings.NewReader(`{"symbol":"EURUSD","trade_type":"buy"}`))
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}
