package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"tracko.app/finance-tracker/internal/assistant"
	"tracko.app/finance-tracker/internal/auth"
	"tracko.app/finance-tracker/internal/core"
	"tracko.app/finance-tracker/internal/logger"
	"tracko.app/finance-tracker/internal/store"
)

const maxBodyBytes = 1 << 20

type UserStore interface {
	CreateUser(ctx context.Context, fullName, email, passwordHash string, profileImageURL *string) (*store.User, error)
	GetUserByEmail(ctx context.Context, email string) (*store.User, error)
	GetUserByID(ctx context.Context, id string) (*store.User, error)
	Ping(ctx context.Context) error
}

// Interpreter turns one sentence into an assistant response.
type Interpreter interface {
	Interpret(ctx context.Context, req assistant.Request) (assistant.Response, error)
}

type Deps struct {
	Users        UserStore
	Tokens       *auth.TokenIssuer
	Transactions *core.TransactionService
	Budgets      *core.BudgetService
	Assistant    Interpreter
}

type APIHandler struct {
	users        UserStore
	tokens       *auth.TokenIssuer
	transactions *core.TransactionService
	budgets      *core.BudgetService
	assistant    Interpreter
}

func NewAPIHandler(d Deps) *APIHandler {
	return &APIHandler{
		users:        d.Users,
		tokens:       d.Tokens,
		transactions: d.Transactions,
		budgets:      d.Budgets,
		assistant:    d.Assistant,
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Raw   string `json:"raw,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeFailure maps service and assistant errors to status codes. Anything
// unrecognised is logged and reported as a 500 carrying the message.
func writeFailure(w http.ResponseWriter, r *http.Request, action string, err error) {
	var (
		validation     *core.ValidationError
		classification *assistant.ClassificationError
		extraction     *assistant.ExtractionError
	)
	log := logger.FromContext(r.Context())
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, assistant.ErrEmptySentence):
		writeError(w, http.StatusBadRequest, "Sentence is required")
	case errors.As(err, &classification):
		log.Warn().Str("raw", classification.Raw).Err(err).Msg("classification failed")
		writeError(w, http.StatusBadRequest, "Could not classify input")
	case errors.As(err, &extraction):
		log.Warn().Str("raw", extraction.Raw).Str("reason", extraction.Reason).Msg("extraction failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: extraction.Error(), Raw: extraction.Raw})
	default:
		log.Error().Err(err).Msg(action)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("%s: %v", action, err))
	}
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.users.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type RegisterRequest struct {
	FullName        string  `json:"fullName"`
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	ProfileImageURL *string `json:"profileImageUrl"`
}

type AuthResponse struct {
	ID    string      `json:"id"`
	User  *store.User `json:"user"`
	Token string      `json:"token"`
}

func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.FullName == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "All fields are required")
		return
	}

	existing, err := h.users.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		writeFailure(w, r, "Failed to register user", err)
		return
	}
	if existing != nil {
		writeError(w, http.StatusBadRequest, "Email already in use")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeFailure(w, r, "Failed to process password", err)
		return
	}
	user, err := h.users.CreateUser(r.Context(), req.FullName, req.Email, hash, req.ProfileImageURL)
	if err != nil {
		writeFailure(w, r, "Failed to register user", err)
		return
	}
	h.respondWithToken(w, r, http.StatusCreated, user)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "All fields are required")
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		writeFailure(w, r, "Failed to log in", err)
		return
	}
	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	h.respondWithToken(w, r, http.StatusOK, user)
}

func (h *APIHandler) respondWithToken(w http.ResponseWriter, r *http.Request, status int, user *store.User) {
	token, err := h.tokens.GenerateJWT(user.ID)
	if err != nil {
		writeFailure(w, r, "Failed to generate token", err)
		return
	}
	writeJSON(w, status, AuthResponse{ID: user.ID, User: user, Token: token})
}

func (h *APIHandler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUserByID(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeFailure(w, r, "Failed to load user", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *APIHandler) AddExpenseHandler(w http.ResponseWriter, r *http.Request) {
	var req core.ExpenseInput
	if !decodeJSON(w, r, &req) {
		return
	}
	expense, err := h.transactions.AddExpense(r.Context(), userIDFrom(r.Context()), req)
	if err != nil {
		writeFailure(w, r, "Failed to add expense", err)
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

func (h *APIHandler) GetExpensesHandler(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.transactions.ListExpenses(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeFailure(w, r, "Failed to list expenses", err)
		return
	}
	if expenses == nil {
		expenses = []store.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (h *APIHandler) DeleteExpenseHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.transactions.DeleteExpense(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeFailure(w, r, "Failed to delete expense", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Expense deleted successfully"})
}

func (h *APIHandler) AddIncomeHandler(w http.ResponseWriter, r *http.Request) {
	var req core.IncomeInput
	if !decodeJSON(w, r, &req) {
		return
	}
	income, err := h.transactions.AddIncome(r.Context(), userIDFrom(r.Context()), req)
	if err != nil {
		writeFailure(w, r, "Failed to add income", err)
		return
	}
	writeJSON(w, http.StatusCreated, income)
}

func (h *APIHandler) GetIncomeHandler(w http.ResponseWriter, r *http.Request) {
	income, err := h.transactions.ListIncome(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeFailure(w, r, "Failed to list income", err)
		return
	}
	if income == nil {
		income = []store.Income{}
	}
	writeJSON(w, http.StatusOK, income)
}

func (h *APIHandler) DeleteIncomeHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.transactions.DeleteIncome(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeFailure(w, r, "Failed to delete income", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Income deleted successfully"})
}

type SaveBudgetsRequest struct {
	Budgets []core.BudgetInput `json:"budgets"`
}

func (h *APIHandler) SaveBudgetsHandler(w http.ResponseWriter, r *http.Request) {
	var req SaveBudgetsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	budgets, err := h.budgets.SaveBudgets(r.Context(), userIDFrom(r.Context()), req.Budgets)
	if err != nil {
		writeFailure(w, r, "Failed to save budgets", err)
		return
	}
	writeJSON(w, http.StatusOK, budgets)
}

func (h *APIHandler) GetBudgetsHandler(w http.ResponseWriter, r *http.Request) {
	budgets, err := h.budgets.GetBudgets(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeFailure(w, r, "Failed to load budgets", err)
		return
	}
	if budgets == nil {
		budgets = []store.Budget{}
	}
	writeJSON(w, http.StatusOK, budgets)
}

func (h *APIHandler) CategoriesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.budgets.Categories())
}

type ParseRequest struct {
	Sentence string `json:"sentence"`
}

func (h *APIHandler) ParseAIHandler(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.assistant.Interpret(r.Context(), assistant.Request{
		Sentence: req.Sentence,
		UserID:   userIDFrom(r.Context()),
	})
	if err != nil {
		writeFailure(w, r, "AI processing failed", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
