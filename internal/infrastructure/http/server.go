package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"rampcore/internal/application"
	"rampcore/internal/domain"
	"rampcore/internal/validate"
)

const (
	sessionHeader     = "X-Session-ID"
	idempotencyHeader = "X-Idempotency-Key"
)

type Server struct {
	engine *application.Engine
	ping   func(ctx context.Context) error
}

type ServerOption func(*Server)

// WithPing wires the readiness probe to a backing-store health check.
func WithPing(ping func(ctx context.Context) error) ServerOption {
	return func(s *Server) { s.ping = ping }
}

func NewServer(engine *application.Engine, opts ...ServerOption) *Server {
	s := &Server{engine: engine}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type quoteRequestBody struct {
	Direction           string          `json:"direction"`
	SourceCurrency      string          `json:"sourceCurrency"`
	DestinationCurrency string          `json:"destinationCurrency"`
	Amount              decimal.Decimal `json:"amount"`
	Country             string          `json:"country,omitempty"`
}

func (b quoteRequestBody) toDomain() domain.QuoteRequest {
	return domain.QuoteRequest{
		Direction:           domain.Direction(b.Direction),
		SourceCurrency:      domain.AssetCode(b.SourceCurrency),
		DestinationCurrency: domain.AssetCode(b.DestinationCurrency),
		Amount:              b.Amount,
		Country:             b.Country,
	}
}

type quoteDTO struct {
	Provider            string           `json:"provider"`
	SourceAmount        decimal.Decimal  `json:"sourceAmount"`
	DestinationAmount   decimal.Decimal  `json:"destinationAmount"`
	SourceCurrency      string           `json:"sourceCurrency"`
	DestinationCurrency string           `json:"destinationCurrency"`
	Rate                decimal.Decimal  `json:"rate"`
	TotalFee            decimal.Decimal  `json:"totalFee"`
	MinAmount           *decimal.Decimal `json:"minAmount,omitempty"`
	MaxAmount           *decimal.Decimal `json:"maxAmount,omitempty"`
}

func toQuoteDTO(q domain.Quote) quoteDTO {
	return quoteDTO{
		Provider:            string(q.Provider),
		SourceAmount:        q.SourceAmount,
		DestinationAmount:   q.DestinationAmount,
		SourceCurrency:      string(q.SourceCurrency),
		DestinationCurrency: string(q.DestinationCurrency),
		Rate:                q.Rate,
		TotalFee:            q.Fees.Total,
		MinAmount:           q.MinAmount,
		MaxAmount:           q.MaxAmount,
	}
}

type providerErrorDTO struct {
	Provider string `json:"provider"`
	Message  string `json:"message"`
}

type quotesResponse struct {
	Quotes   []quoteDTO         `json:"quotes"`
	Selected *quoteDTO          `json:"selected,omitempty"`
	Errors   []providerErrorDTO `json:"errors,omitempty"`
}

func (s *Server) RequestQuotes(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := session(w, r)
	if !ok {
		return
	}
	var body quoteRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	res, selected, err := s.engine.RequestQuotes(r.Context(), sessionID, body.toDomain())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	resp := quotesResponse{Quotes: make([]quoteDTO, 0, len(res.Quotes))}
	for _, q := range res.Quotes {
		resp.Quotes = append(resp.Quotes, toQuoteDTO(q))
	}
	if selected.Provider != "" {
		dto := toQuoteDTO(selected)
		resp.Selected = &dto
	}
	for _, pe := range res.Errors {
		resp.Errors = append(resp.Errors, providerErrorDTO{Provider: string(pe.Provider), Message: pe.Cause.Error()})
	}
	writeJSON(w, http.StatusOK, resp)
}

type providerLimitsDTO struct {
	Provider  string           `json:"provider"`
	MinAmount *decimal.Decimal `json:"minAmount,omitempty"`
	MaxAmount *decimal.Decimal `json:"maxAmount,omitempty"`
	Inferred  bool             `json:"inferred,omitempty"`
}

type limitsResponse struct {
	GlobalMin   *decimal.Decimal    `json:"globalMin,omitempty"`
	GlobalMax   *decimal.Decimal    `json:"globalMax,omitempty"`
	PerProvider []providerLimitsDTO `json:"perProvider"`
}

func (s *Server) QuoteLimits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := domain.QuoteRequest{
		Direction:           domain.Direction(q.Get("direction")),
		SourceCurrency:      domain.AssetCode(q.Get("sourceCurrency")),
		DestinationCurrency: domain.AssetCode(q.Get("destinationCurrency")),
		Amount:              decimal.NewFromInt(1),
		Country:             q.Get("country"),
	}
	report, err := s.engine.Limits(r.Context(), req)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	resp := limitsResponse{
		GlobalMin:   report.GlobalMin(),
		GlobalMax:   report.GlobalMax(),
		PerProvider: make([]providerLimitsDTO, 0, len(report.PerProvider)),
	}
	for _, p := range report.PerProvider {
		resp.PerProvider = append(resp.PerProvider, providerLimitsDTO{
			Provider:  string(p.Provider),
			MinAmount: p.MinAmount,
			MaxAmount: p.MaxAmount,
			Inferred:  p.Inferred,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) SelectProvider(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := session(w, r)
	if !ok {
		return
	}
	var body struct {
		Provider string `json:"provider"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Provider == "" {
		badRequest(w, "provider is required")
		return
	}
	q, err := s.engine.SelectProvider(sessionID, domain.ProviderID(body.Provider))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	dto := toQuoteDTO(q)
	writeJSON(w, http.StatusOK, quotesResponse{Selected: &dto})
}

type paymentMethodDTO struct {
	ID            string           `json:"id"`
	Type          string           `json:"type,omitempty"`
	Name          string           `json:"name,omitempty"`
	FeePercentage *decimal.Decimal `json:"feePercentage,omitempty"`
}

func (s *Server) PaymentMethods(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := session(w, r)
	if !ok {
		return
	}
	methods, err := s.engine.PaymentMethods(r.Context(), sessionID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	out := make([]paymentMethodDTO, 0, len(methods))
	for _, m := range methods {
		out = append(out, paymentMethodDTO{ID: m.ID, Type: m.Type, Name: m.Name, FeePercentage: m.FeePercentage})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) ChoosePaymentMethod(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := session(w, r)
	if !ok {
		return
	}
	var body paymentMethodDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
		badRequest(w, "payment method id is required")
		return
	}
	s.engine.ChoosePaymentMethod(sessionID, domain.PaymentMethod{
		ID: body.ID, Type: body.Type, Name: body.Name, FeePercentage: body.FeePercentage,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ValidateAddress(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Address string `json:"address"`
		Asset   string `json:"asset"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Address == "" || body.Asset == "" {
		badRequest(w, "address and asset are required")
		return
	}
	valid := validate.Address(body.Address, domain.AssetCode(body.Asset))
	writeJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

func (s *Server) ValidateBank(w http.ResponseWriter, r *http.Request) {
	var body validate.BankDetails
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	check := validate.Bank(body)
	resp := map[string]any{"valid": check.IsValid}
	if check.Err != "" {
		resp["error"] = check.Err
	}
	writeJSON(w, http.StatusOK, resp)
}

type checkoutBody struct {
	Destination string                `json:"destination,omitempty"`
	BankDetails *validate.BankDetails `json:"bankDetails,omitempty"`
	Country     string                `json:"country,omitempty"`
}

type checkoutResponse struct {
	Provider       string           `json:"provider"`
	TransactionID  string           `json:"transactionId"`
	SessionURL     string           `json:"sessionUrl,omitempty"`
	DepositAddress string           `json:"depositAddress,omitempty"`
	DepositAmount  *decimal.Decimal `json:"depositAmount,omitempty"`
	DepositExtraID string           `json:"depositExtraId,omitempty"`
}

func (s *Server) Checkout(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := session(w, r)
	if !ok {
		return
	}
	var body checkoutBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	sess, err := s.engine.Checkout(r.Context(), sessionID, application.CheckoutParams{
		Destination:    body.Destination,
		BankDetails:    body.BankDetails,
		Country:        body.Country,
		IdempotencyKey: r.Header.Get(idempotencyHeader),
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	resp := checkoutResponse{
		Provider:       string(sess.Provider),
		TransactionID:  sess.TransactionID,
		SessionURL:     sess.SessionURL,
		DepositAddress: sess.DepositAddress,
		DepositExtraID: sess.DepositExtraID,
	}
	if !sess.DepositAmount.IsZero() {
		amt := sess.DepositAmount
		resp.DepositAmount = &amt
	}
	writeJSON(w, http.StatusCreated, resp)
}

type pendingDTO struct {
	TransactionID       string          `json:"transactionId"`
	Provider            string          `json:"provider"`
	Direction           string          `json:"direction"`
	Amount              decimal.Decimal `json:"amount"`
	SourceCurrency      string          `json:"sourceCurrency"`
	DestinationCurrency string          `json:"destinationCurrency"`
	Status              string          `json:"status"`
	Phase               string          `json:"phase,omitempty"`
	StartedAt           string          `json:"startedAt"`
}

func (s *Server) TransactionStatus(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := session(w, r)
	if !ok {
		return
	}
	dir, ok := direction(w, r)
	if !ok {
		return
	}
	tx, err := s.engine.TransactionStatus(r.Context(), sessionID, dir)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pendingDTO{
		TransactionID:       tx.ID,
		Provider:            string(tx.Provider),
		Direction:           string(tx.Direction),
		Amount:              tx.Amount,
		SourceCurrency:      string(tx.SourceCurrency),
		DestinationCurrency: string(tx.DestinationCurrency),
		Status:              string(tx.Status),
		Phase:               string(tx.Phase),
		StartedAt:           tx.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

func (s *Server) CancelTransaction(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := session(w, r)
	if !ok {
		return
	}
	dir, ok := direction(w, r)
	if !ok {
		return
	}
	if err := s.engine.CancelTransaction(r.Context(), sessionID, dir); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type historyRecordDTO struct {
	TransactionID       string          `json:"transactionId"`
	Provider            string          `json:"provider"`
	Direction           string          `json:"direction"`
	Amount              decimal.Decimal `json:"amount"`
	SourceCurrency      string          `json:"sourceCurrency"`
	DestinationCurrency string          `json:"destinationCurrency"`
	FinalStatus         string          `json:"finalStatus"`
	FinishedAt          string          `json:"finishedAt"`
}

func (s *Server) History(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := session(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	recs, err := s.engine.History(r.Context(), sessionID, limit)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	out := make([]historyRecordDTO, 0, len(recs))
	for _, rec := range recs {
		out = append(out, historyRecordDTO{
			TransactionID:       rec.TransactionID,
			Provider:            string(rec.Provider),
			Direction:           string(rec.Direction),
			Amount:              rec.Amount,
			SourceCurrency:      string(rec.SourceCurrency),
			DestinationCurrency: string(rec.DestinationCurrency),
			FinalStatus:         string(rec.FinalStatus),
			FinishedAt:          rec.FinishedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) SupportedAssets(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	assets, err := s.engine.SupportedAssets(r.Context(), domain.ProviderID(provider))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

func session(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(sessionHeader)
	if id == "" {
		badRequest(w, sessionHeader+" header is required")
		return "", false
	}
	return id, true
}

func direction(w http.ResponseWriter, r *http.Request) (domain.Direction, bool) {
	dir := domain.Direction(chi.URLParam(r, "direction"))
	if !domain.ValidDirection(dir) {
		badRequest(w, "unknown direction")
		return "", false
	}
	return dir, true
}

type errorBody struct {
	Error      string              `json:"error"`
	Reason     string              `json:"reason,omitempty"`
	Suggestion string              `json:"suggestion,omitempty"`
	MinAmount  *decimal.Decimal    `json:"minAmount,omitempty"`
	MaxAmount  *decimal.Decimal    `json:"maxAmount,omitempty"`
	Limits     []providerLimitsDTO `json:"limits,omitempty"`
}

// writeEngineError maps the application error taxonomy onto HTTP statuses.
// A zero-quote diagnosis is a structured 422, not a blank failure.
func writeEngineError(w http.ResponseWriter, err error) {
	var noQuote *application.AggregateNoQuoteError
	if errors.As(err, &noQuote) {
		body := errorBody{
			Error:      "no quotes available",
			Reason:     string(noQuote.Reason),
			Suggestion: noQuote.Suggestion,
			MinAmount:  noQuote.MinAmount,
			MaxAmount:  noQuote.MaxAmount,
		}
		for _, p := range noQuote.Report.PerProvider {
			body.Limits = append(body.Limits, providerLimitsDTO{
				Provider:  string(p.Provider),
				MinAmount: p.MinAmount,
				MaxAmount: p.MaxAmount,
				Inferred:  p.Inferred,
			})
		}
		writeJSON(w, http.StatusUnprocessableEntity, body)
		return
	}

	var ve *application.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, ve.Error())
		return
	}
	var sce *application.SessionCreationError
	if errors.As(err, &sce) {
		writeError(w, http.StatusBadGateway, sce.Error())
		return
	}
	switch {
	case errors.Is(err, application.ErrSessionExists), errors.Is(err, application.ErrDuplicateRequest):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, application.ErrNoSelection):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, application.ErrNotFound), errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidDirection), errors.Is(err, domain.ErrUnsupportedPair):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, msg)
}
