package walletgo

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	requestIDHeader = "X-Request-ID"
)

type balanceJSONResp struct {
	Balance decimal.Decimal `json:"balance"`
}

type accountJSONResp struct {
	AcctID  snowflake.ID    `json:"acct_id"`
	Balance decimal.Decimal `json:"balance"`
}

type movementJSON struct {
	Date      string          `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	IsDeposit bool            `json:"is_deposit"`
}

type ruleErrJSONResp struct {
	Code    RuleCode `json:"code"`
	Message string   `json:"message"`
}

func NewHTTPHandler(svc Service, log *zerolog.Logger) http.Handler {
	hndlr := &httpHandler{
		Svc: svc,
		Log: log,
	}
	mux := chi.NewMux()
	mux.Use(requestLogger(log))
	mux.NotFound(HTTPNotFound)
	mux.Route("/accounts", func(r chi.Router) {
		r.Post("/", hndlr.CreateAccount)
		r.Route("/{acctID:[0-9]+}", func(rr chi.Router) {
			rr.Post("/deposit", hndlr.Deposit)
			rr.Post("/withdraw", hndlr.Withdraw)
			rr.Get("/balance", hndlr.Balance)
			rr.Get("/movements", hndlr.Movements)
			rr.Get("/statement", hndlr.Statement)
		})
	})

	return mux
}

type httpHandler struct {
	Svc Service
	Log *zerolog.Logger
}

func (h *httpHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountReq
	buf, err := io.ReadAll(r.Body)
	defer r.Body.Close()
	if err != nil {
		h.Log.Err(err).Str("method", "create_account").Msg("error reading HTTP request")
		WriteHTTPError(w, ErrInternalServer)
		return
	}
	// an empty body opens an account with zero balance
	if len(bytes.TrimSpace(buf)) > 0 {
		if err = json.Unmarshal(buf, &req); err != nil {
			h.Log.Err(err).Str("method", "create_account").Msg("error unmarshalling JSON")
			WriteHTTPError(w, ErrBadRequest{Fields: map[string]string{"request body": "malformed JSON"}})
			return
		}
	}
	snap, err := h.Svc.CreateAccount(req)
	if err != nil {
		WriteHTTPError(w, err)
		return
	}

	resp := accountJSONResp{AcctID: snap.AcctID, Balance: snap.Balance}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err = json.NewEncoder(w).Encode(resp); err != nil {
		h.Log.Err(err).Str("method", "create_account").Msg("error encoding response")
	}
}

func (h *httpHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	req, ok := h.chargeReq(w, r, "deposit")
	if !ok {
		return
	}
	bal, err := h.Svc.Deposit(req)
	if err != nil {
		WriteHTTPError(w, err)
		return
	}
	h.writeBalance(w, *bal, "deposit")
}

func (h *httpHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	req, ok := h.chargeReq(w, r, "withdraw")
	if !ok {
		return
	}
	bal, err := h.Svc.Withdraw(req)
	if err != nil {
		WriteHTTPError(w, err)
		return
	}
	h.writeBalance(w, *bal, "withdraw")
}

func (h *httpHandler) Balance(w http.ResponseWriter, r *http.Request) {
	acctID, ok := h.acctID(w, r, "balance")
	if !ok {
		return
	}
	bal, err := h.Svc.Balance(BalanceReq{AcctID: acctID})
	if err != nil {
		WriteHTTPError(w, err)
		return
	}
	h.writeBalance(w, *bal, "balance")
}

func (h *httpHandler) Movements(w http.ResponseWriter, r *http.Request) {
	acctID, ok := h.acctID(w, r, "movements")
	if !ok {
		return
	}
	mvs, err := h.Svc.Movements(MovementsReq{AcctID: acctID})
	if err != nil {
		WriteHTTPError(w, err)
		return
	}

	resp := make([]movementJSON, 0, len(mvs))
	for _, m := range mvs {
		resp = append(resp, movementJSON{
			Date:      m.Date().Format(time.DateOnly),
			Amount:    m.Amount(),
			IsDeposit: m.IsDeposit(),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(resp); err != nil {
		h.Log.Err(err).Str("method", "movements").Msg("error encoding response")
	}
}

func (h *httpHandler) Statement(w http.ResponseWriter, r *http.Request) {
	acctID, ok := h.acctID(w, r, "statement")
	if !ok {
		return
	}
	// render fully before writing so that errors can still set the status
	buf := new(bytes.Buffer)
	if err := h.Svc.Statement(buf, StatementReq{AcctID: acctID}); err != nil {
		WriteHTTPError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	if _, err := buf.WriteTo(w); err != nil {
		h.Log.Err(err).Str("method", "statement").Msg("error writing response")
	}
}

func (h *httpHandler) chargeReq(w http.ResponseWriter, r *http.Request, method string) (ChargeReq, bool) {
	var req ChargeReq
	buf, err := io.ReadAll(r.Body)
	defer r.Body.Close()
	if err != nil {
		h.Log.Err(err).Str("method", method).Msg("error reading HTTP request")
		WriteHTTPError(w, ErrInternalServer)
		return req, false
	}
	if err = json.Unmarshal(buf, &req); err != nil {
		h.Log.Err(err).Str("method", method).Msg("error unmarshalling JSON")
		WriteHTTPError(w, ErrBadRequest{Fields: map[string]string{"request body": "malformed JSON"}})
		return req, false
	}
	acctID, ok := h.acctID(w, r, method)
	if !ok {
		return req, false
	}
	req.AcctID = acctID
	return req, true
}

func (h *httpHandler) acctID(w http.ResponseWriter, r *http.Request, method string) (snowflake.ID, bool) {
	pid := chi.URLParam(r, "acctID")
	acctID, err := snowflake.ParseString(pid)
	if err != nil {
		h.Log.Err(err).Str("method", method).Msg("error parsing account ID")
		WriteHTTPError(w, ErrBadRequest{map[string]string{"acctID": "invalid format"}})
		return 0, false
	}
	return acctID, true
}

func (h *httpHandler) writeBalance(w http.ResponseWriter, bal decimal.Decimal, method string) {
	resp := balanceJSONResp{Balance: bal}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.Log.Err(err).Str("method", method).Msg("error encoding response")
	}
}

func WriteHTTPError(w http.ResponseWriter, err error) {
	var ne error
	defer func() {
		if ne != nil {
			log.Error().
				Err(ne).
				Msg("error response encoding failed")
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	var rv RuleViolation
	errnf := &ErrNotFound{}
	errbr := &ErrBadRequest{}
	if errors.As(err, &rv) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		ne = json.NewEncoder(w).Encode(ruleErrJSONResp{Code: rv.Code(), Message: rv.Error()})
	} else if errors.As(err, errnf) {
		w.WriteHeader(http.StatusNotFound)
		ne = json.NewEncoder(w).Encode(errnf)
	} else if errors.As(err, errbr) {
		w.WriteHeader(http.StatusBadRequest)
		ne = json.NewEncoder(w).Encode(errbr)
	} else if errors.Is(err, ErrServiceUnavailable) {
		w.WriteHeader(http.StatusServiceUnavailable)
		ne = json.NewEncoder(w).Encode(map[string]string{"message": err.Error()})
	} else {
		w.WriteHeader(http.StatusInternalServerError)
		resp := map[string]string{
			"message": "server error",
		}
		ne = json.NewEncoder(w).Encode(resp)
	}
}

func HTTPNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	resp := map[string]string{
		"path": r.URL.Path,
	}
	json.NewEncoder(w).Encode(resp)
}

// requestLogger tags every request with an ID, reusing the caller's
// X-Request-ID when present, and logs its outcome.
func requestLogger(logger *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, reqID)

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(sw, r)
			logger.Info().
				Str("request_id", reqID).
				Str("http_method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sw.status).
				Dur("elapsed", time.Since(start)).
				Msg("request handled")
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}
