package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	redisadapter "github.com/boa-platform/registration-ledger/internal/adapters/redis"
	"github.com/boa-platform/registration-ledger/internal/config"
	"github.com/boa-platform/registration-ledger/internal/domain"
	"github.com/boa-platform/registration-ledger/internal/idempotency"
	"github.com/boa-platform/registration-ledger/internal/ledger"
)

type Handlers struct {
	cfg   *config.Config
	svc   *ledger.Service
	redis *redisadapter.Cache
	idemp *idempotency.Idempotency
}

func NewHandlers(cfg *config.Config, svc *ledger.Service, redis *redisadapter.Cache, idemp *idempotency.Idempotency) *Handlers {
	return &Handlers{
		cfg:   cfg,
		svc:   svc,
		redis: redis,
		idemp: idemp,
	}
}

type additionalPersonReq struct {
	Name       string    `json:"name"`
	CategoryID uuid.UUID `json:"category_id"`
	SlabID     uuid.UUID `json:"slab_id"`
	Amount     string    `json:"amount"`
}

func (h *Handlers) CreateRegistration(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	userID, ok := UserID(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req struct {
		SeminarID         uuid.UUID             `json:"seminar_id"`
		CategoryID        uuid.UUID             `json:"category_id"`
		SlabID            uuid.UUID             `json:"slab_id"`
		DelegateType      string                `json:"delegate_type"`
		Amount            string                `json:"amount"`
		AdditionalPersons []additionalPersonReq `json:"additional_persons"`
		GatewayOrderID    string                `json:"gateway_order_id"`
		GatewayPaymentID  string                `json:"gateway_payment_id"`
		PaymentMethod     string                `json:"payment_method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	locked, err := h.redis.AcquireRegistrationLock(r.Context(), userID.String(), req.SeminarID.String(), 30*time.Second)
	if err == nil && !locked {
		http.Error(w, "registration in progress", http.StatusConflict)
		return
	}
	defer h.redis.ReleaseRegistrationLock(r.Context(), userID.String(), req.SeminarID.String())

	in := ledger.CreateRegistrationInput{
		UserID:           userID,
		SeminarID:        req.SeminarID,
		CategoryID:       req.CategoryID,
		SlabID:           req.SlabID,
		DelegateType:     req.DelegateType,
		BaseAmount:       req.Amount,
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		PaymentMethod:    req.PaymentMethod,
	}
	for _, p := range req.AdditionalPersons {
		in.Persons = append(in.Persons, ledger.PersonInput{
			Name:       p.Name,
			CategoryID: p.CategoryID,
			SlabID:     p.SlabID,
			Amount:     p.Amount,
		})
	}

	result, err := h.svc.CreateRegistration(r.Context(), in)
	if errors.Is(err, domain.ErrInvalidInput) {
		http.Error(w, "invalid registration request", http.StatusBadRequest)
		return
	}
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "unknown user or seminar", http.StatusNotFound)
		return
	}
	if err != nil {
		// The driver message goes back for operator diagnosis; there is no
		// stable error taxonomy below this point.
		http.Error(w, "registration failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	status := http.StatusCreated
	if result.AlreadyRegistered {
		status = http.StatusOK
	}
	resp := map[string]interface{}{
		"id":                 result.ID,
		"registration_no":    result.RegistrationNo,
		"membership_no":      result.MembershipNo,
		"amount":             result.Amount.StringFixed(2),
		"status":             result.Status,
		"already_registered": result.AlreadyRegistered,
	}
	data, _ := json.Marshal(resp)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)

	h.idemp.Set(r.Context(), key, idempotency.Response{Status: status, Result: data})
}

func (h *Handlers) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	views, err := h.svc.ListRegistrations(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	type personResp struct {
		Name   string `json:"name"`
		Amount string `json:"amount"`
	}
	type regResp struct {
		ID                uuid.UUID    `json:"id"`
		RegistrationNo    string       `json:"registration_no"`
		SeminarName       string       `json:"seminar_name"`
		CategoryName      string       `json:"category_name"`
		SlabName          string       `json:"slab_name"`
		DelegateType      string       `json:"delegate_type"`
		Amount            string       `json:"amount"`
		Status            string       `json:"status"`
		AdditionalPersons []personResp `json:"additional_persons"`
	}

	out := make([]regResp, 0, len(views))
	for _, v := range views {
		reg := regResp{
			ID:             v.ID,
			RegistrationNo: v.RegistrationNo,
			SeminarName:    v.SeminarName,
			CategoryName:   v.CategoryName,
			SlabName:       v.SlabName,
			DelegateType:   string(v.DelegateType),
			Amount:         v.Amount.StringFixed(2),
			Status:         string(v.Status),
		}
		for _, p := range v.Persons {
			reg.AdditionalPersons = append(reg.AdditionalPersons, personResp{
				Name:   p.Name,
				Amount: p.Amount.StringFixed(2),
			})
		}
		out = append(out, reg)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (h *Handlers) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req struct {
		Status         string `json:"status"`
		TransactionRef string `json:"transaction_ref"`
		Method         string `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = h.svc.UpdatePaymentStatus(r.Context(), id, domain.PaymentStatus(req.Status), req.TransactionRef, req.Method)
	if errors.Is(err, domain.ErrInvalidInput) {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "registration not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

func (h *Handlers) CreatePayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	var req struct {
		TransactionID  string `json:"transaction_id"`
		Amount         string `json:"amount"`
		MembershipType string `json:"membership_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err := h.svc.CreatePendingPayment(r.Context(), req.TransactionID, req.Amount, domain.MembershipApplication{
		UserID:         userID.String(),
		MembershipType: req.MembershipType,
	})
	if errors.Is(err, domain.ErrInvalidInput) {
		http.Error(w, "invalid payment request", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"transaction_id": req.TransactionID})
}

func (h *Handlers) CheckPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TransactionID string `json:"transaction_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.svc.CheckPendingPayment(r.Context(), req.TransactionID)
	if errors.Is(err, domain.ErrNotFound) {
		// Nothing to resolve; the payment was either never created here or
		// already consumed.
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"verified": false, "status": "not_found"})
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := map[string]interface{}{"verified": result.Verified}
	if result.Verified {
		resp["status"] = "verified"
		resp["registration_id"] = result.RegistrationID
		resp["membership_no"] = result.MembershipNo
	} else {
		resp["status"] = "pending"
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *Handlers) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TransactionID string `json:"transaction_id"`
		GatewayRef    string `json:"gateway_ref"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Unknown ids are acknowledged too: the gateway retries until it sees
	// success, and there is nothing to do for a payment we never saw.
	if err := h.svc.ConfirmPendingPayment(r.Context(), req.TransactionID, req.GatewayRef); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

func (h *Handlers) VerifyManual(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TransactionID string `json:"transaction_id"`
		Reference     string `json:"reference"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.ConfirmPendingPayment(r.Context(), req.TransactionID, req.Reference); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
