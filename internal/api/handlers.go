package api

import (
	"encoding/json"
	"net/http"

	"smart-budget-planner/internal/auth"
	"smart-budget-planner/internal/forecasterror"
	"smart-budget-planner/internal/logging"
	"smart-budget-planner/internal/models"

	"github.com/shopspring/decimal"
)

const (
	opDecodeForecast    = "decode forecast request"
	opDecodeTransaction = "decode transaction"
)

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, op string, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return forecasterror.Wrap(forecasterror.MalformedInput, op, "invalid JSON body", err)
	}
	return nil
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	// Credential is checked before the body is read.
	userID, err := auth.UserFromRequest(r, s.resolver)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	var payload models.ForecastPayload
	if err := decodeJSON(w, r, opDecodeForecast, &payload); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	req, err := payload.ToRequest()
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	res, err := s.forecaster.Run(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type transactionsResponse struct {
	Transactions []models.Transaction `json:"transactions"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserFromRequest(r, s.resolver)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	q := r.URL.Query()
	txs, err := s.transactions.List(r.Context(), userID, q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionsResponse{Transactions: txs})
}

type createTransactionBody struct {
	Amount      *decimal.Decimal `json:"amount"`
	Description string           `json:"description"`
	Type        string           `json:"type"`
}

type createTransactionResponse struct {
	Message     string             `json:"message"`
	Transaction models.Transaction `json:"transaction"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserFromRequest(r, s.resolver)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	var body createTransactionBody
	if err := decodeJSON(w, r, opDecodeTransaction, &body); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if body.Amount == nil {
		writeError(w, r, s.logger, forecasterror.Malformed(opDecodeTransaction, "amount is required"))
		return
	}

	tx, err := s.transactions.Create(r.Context(), userID, models.NewTransactionInput{
		Amount:      *body.Amount,
		Description: body.Description,
		Type:        body.Type,
	})
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	s.logger.Debug("Created transaction via API",
		logging.Field{Key: logging.FieldTransactionID, Value: tx.ID})
	writeJSON(w, http.StatusCreated, createTransactionResponse{
		Message:     "Transaction created successfully",
		Transaction: tx,
	})
}
