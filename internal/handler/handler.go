// Package handler содержит HTTP-обработчики API кассового сервиса.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/posline-system/internal/middleware"
	"github.com/mmeshcher/posline-system/internal/model"
	"github.com/mmeshcher/posline-system/internal/repository"
	"github.com/mmeshcher/posline-system/internal/service"
	"github.com/mmeshcher/posline-system/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Authenticate(ctx context.Context, code int64, password string) (*model.Employee, error)
	GetEmployee(ctx context.Context, code int64) (*model.Employee, error)
	ChangePassword(ctx context.Context, code int64, password string) error
	ListProducts(ctx context.Context) ([]model.Product, error)
	UpdateProduct(ctx context.Context, p *model.Product) error
	OpenSettlement(ctx context.Context, employeeCode int64) error
	AddLine(ctx context.Context, employeeCode, productCode int64, qty int) (model.LineItem, error)
	SettlementLines(ctx context.Context, employeeCode int64) ([]model.LineItem, error)
	CommitSettlement(ctx context.Context, employeeCode int64) (*model.Order, error)
	DiscardSettlement(ctx context.Context, employeeCode int64) error
	GetOrdersByEmployee(ctx context.Context, employeeCode int64) ([]model.Order, error)
	GetInvoice(ctx context.Context, employeeCode, number int64) (string, error)
}

// Handler реализует HTTP-обработчики API кассового сервиса.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

type loginRequest struct {
	Code     int64  `json:"code"`
	Password string `json:"password"`
}

// Login выполняет аутентификацию сотрудника и установку cookie.
// Ответ не раскрывает, что именно неверно — номер или пароль.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidCode(req.Code) || !validation.IsValidPassword(req.Password) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	employee, err := h.service.Authenticate(r.Context(), req.Code, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEmployeeNotFound):
			h.logger.Info("login failed: unknown employee", zap.Int64("code", req.Code))
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		case errors.Is(err, service.ErrInvalidPassword):
			h.logger.Info("login failed: wrong password", zap.Int64("code", req.Code))
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		default:
			h.logger.Error("login error", zap.Error(err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.authMiddleware.SetAuthCookie(w, employee.Code)
	w.WriteHeader(http.StatusOK)
}

// Logout сбрасывает cookie авторизации текущего сотрудника.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authMiddleware.ClearAuthCookie(w)
	w.WriteHeader(http.StatusOK)
}

type employeeResponse struct {
	Code         int64   `json:"code"`
	Name         string  `json:"name"`
	Shift        string  `json:"shift"`
	Level        int     `json:"level"`
	Productivity float64 `json:"productivity"`
}

// GetMe возвращает профиль текущего сотрудника с накопленной выработкой.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	code, ok := middleware.GetEmployeeCodeFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	employee, err := h.service.GetEmployee(r.Context(), code)
	if err != nil {
		h.logger.Error("get employee error", zap.Error(err), zap.Int64("code", code))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, employeeResponse{
		Code:         employee.Code,
		Name:         employee.Name,
		Shift:        string(employee.Shift),
		Level:        employee.Level,
		Productivity: employee.Productivity,
	})
}

type passwordRequest struct {
	Password string `json:"password"`
}

// ChangePassword устанавливает текущему сотруднику новый пароль.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	code, ok := middleware.GetEmployeeCodeFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidPassword(req.Password) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if err := h.service.ChangePassword(r.Context(), code, req.Password); err != nil {
		h.logger.Error("change password error", zap.Error(err), zap.Int64("code", code))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

type offerPayload struct {
	Code     int64   `json:"code"`
	Kind     string  `json:"kind"`
	Percent  float64 `json:"percent,omitempty"`
	MaxUnits int     `json:"max_units,omitempty"`
}

type productResponse struct {
	Code         int64         `json:"code"`
	Name         string        `json:"name"`
	Price        float64       `json:"price"`
	Stock        int           `json:"stock"`
	Kind         string        `json:"kind"`
	DaysToExpiry int           `json:"days_to_expiry,omitempty"`
	Offer        *offerPayload `json:"offer,omitempty"`
}

func toProductResponse(p model.Product) productResponse {
	resp := productResponse{
		Code:         p.Code,
		Name:         p.Name,
		Price:        p.Price,
		Stock:        p.Stock,
		Kind:         string(p.Kind),
		DaysToExpiry: p.DaysToExpiry,
	}
	if p.Offer != nil {
		resp.Offer = &offerPayload{
			Code:     p.Offer.Code,
			Kind:     string(p.Offer.Kind),
			Percent:  p.Offer.Percent,
			MaxUnits: p.Offer.MaxUnits,
		}
	}
	return resp
}

// GetProducts возвращает каталог товаров.
func (h *Handler) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		h.logger.Error("list products error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(products) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toProductResponse(p))
	}

	writeJSON(w, h.logger, resp)
}

type productUpdateRequest struct {
	Name         string        `json:"name"`
	Price        float64       `json:"price"`
	Stock        int           `json:"stock"`
	Kind         string        `json:"kind"`
	DaysToExpiry int           `json:"days_to_expiry"`
	Offer        *offerPayload `json:"offer"`
}

// UpdateProduct сохраняет правку товара из бэк-офиса.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.ParseInt(chi.URLParam(r, "code"), 10, 64)
	if err != nil || !validation.IsValidCode(code) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req productUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidName(req.Name) || req.Price <= 0 || req.Stock < 0 || req.DaysToExpiry < 0 {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	kind := model.ProductKind(req.Kind)
	if kind != model.ProductPerishable && kind != model.ProductNonPerishable {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	p := &model.Product{
		Code:         code,
		Name:         req.Name,
		Price:        req.Price,
		Stock:        req.Stock,
		Kind:         kind,
		DaysToExpiry: req.DaysToExpiry,
	}
	if req.Offer != nil && kind == model.ProductNonPerishable {
		p.Offer = &model.Offer{
			Code:     req.Offer.Code,
			Kind:     model.OfferKind(req.Offer.Kind),
			Percent:  req.Offer.Percent,
			MaxUnits: req.Offer.MaxUnits,
		}
	}

	err = h.service.UpdateProduct(r.Context(), p)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, repository.ErrDuplicateProductName):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		case errors.Is(err, model.ErrInvalidPrice):
			http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		default:
			h.logger.Error("update product error", zap.Error(err), zap.Int64("code", code))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

// OpenOrder открывает текущему сотруднику сессию оформления заказа.
func (h *Handler) OpenOrder(w http.ResponseWriter, r *http.Request) {
	code, ok := middleware.GetEmployeeCodeFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	err := h.service.OpenSettlement(r.Context(), code)
	if err != nil {
		if errors.Is(err, service.ErrSettlementExists) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("open settlement error", zap.Error(err), zap.Int64("employee", code))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

type addLineRequest struct {
	Code     int64 `json:"code"`
	Quantity int   `json:"quantity"`
}

type lineResponse struct {
	Code      int64   `json:"code"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"line_total"`
}

// AddLine добавляет позицию в открытую сессию заказа.
func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	employeeCode, ok := middleware.GetEmployeeCodeFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req addLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidCode(req.Code) || !validation.IsValidQuantity(req.Quantity) {
		http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		return
	}

	line, err := h.service.AddLine(r.Context(), employeeCode, req.Code, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoSettlement):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		case errors.Is(err, model.ErrUnknownProduct):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		case errors.Is(err, model.ErrDuplicateLine),
			errors.Is(err, model.ErrInsufficientStock),
			errors.Is(err, model.ErrSettlementClosed):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, model.ErrInvalidQuantity):
			http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
		default:
			h.logger.Error("add line error", zap.Error(err), zap.Int64("employee", employeeCode))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, h.logger, lineResponse{
		Code:      line.ProductCode,
		Name:      line.ProductName,
		UnitPrice: line.UnitPrice,
		Quantity:  line.Quantity,
		LineTotal: line.LineTotal,
	})
}

// GetLines возвращает позиции открытой сессии заказа.
func (h *Handler) GetLines(w http.ResponseWriter, r *http.Request) {
	employeeCode, ok := middleware.GetEmployeeCodeFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	lines, err := h.service.SettlementLines(r.Context(), employeeCode)
	if err != nil {
		if errors.Is(err, service.ErrNoSettlement) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("get lines error", zap.Error(err), zap.Int64("employee", employeeCode))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]lineResponse, 0, len(lines))
	for _, l := range lines {
		resp = append(resp, lineResponse{
			Code:      l.ProductCode,
			Name:      l.ProductName,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			LineTotal: l.LineTotal,
		})
	}

	writeJSON(w, h.logger, resp)
}

type commitResponse struct {
	Number int64   `json:"number"`
	Total  float64 `json:"total"`
	Bonus  float64 `json:"bonus"`
}

// CommitOrder подтверждает открытую сессию заказа. Пустая сессия закрывается
// без сохранения, ошибка сохранения оставляет сессию открытой.
func (h *Handler) CommitOrder(w http.ResponseWriter, r *http.Request) {
	employeeCode, ok := middleware.GetEmployeeCodeFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	order, err := h.service.CommitSettlement(r.Context(), employeeCode)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoSettlement):
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
		case errors.Is(err, model.ErrOrderEmpty):
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		case errors.Is(err, model.ErrInsufficientStock):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			h.logger.Error("commit order error", zap.Error(err), zap.Int64("employee", employeeCode))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, h.logger, commitResponse{
		Number: order.Number,
		Total:  order.Total,
		Bonus:  order.Bonus,
	})
}

// DiscardOrder отменяет открытую сессию заказа.
func (h *Handler) DiscardOrder(w http.ResponseWriter, r *http.Request) {
	employeeCode, ok := middleware.GetEmployeeCodeFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	err := h.service.DiscardSettlement(r.Context(), employeeCode)
	if err != nil {
		if errors.Is(err, service.ErrNoSettlement) {
			http.Error(w, http.StatusText(http.StatusConflict), http.StatusConflict)
			return
		}
		h.logger.Error("discard order error", zap.Error(err), zap.Int64("employee", employeeCode))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type orderResponse struct {
	Number    int64   `json:"number"`
	Total     float64 `json:"total"`
	Bonus     float64 `json:"bonus"`
	CreatedAt string  `json:"created_at"`
}

// GetOrders возвращает подтверждённые заказы текущего сотрудника.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	employeeCode, ok := middleware.GetEmployeeCodeFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	orders, err := h.service.GetOrdersByEmployee(r.Context(), employeeCode)
	if err != nil {
		h.logger.Error("get orders error", zap.Error(err), zap.Int64("employee", employeeCode))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, orderResponse{
			Number:    o.Number,
			Total:     o.Total,
			Bonus:     o.Bonus,
			CreatedAt: o.CreatedAt.Format(time.RFC3339),
		})
	}

	writeJSON(w, h.logger, resp)
}

// GetInvoice возвращает текст накладной заказа.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	employeeCode, ok := middleware.GetEmployeeCodeFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	number, err := strconv.ParseInt(chi.URLParam(r, "number"), 10, 64)
	if err != nil || number <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	invoice, err := h.service.GetInvoice(r.Context(), employeeCode, number)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get invoice error", zap.Error(err), zap.Int64("number", number))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte(invoice)); err != nil {
		h.logger.Error("write invoice error", zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response error", zap.Error(err))
	}
}
