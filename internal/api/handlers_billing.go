package api

import (
	"net/http"

	"github.com/hackgods/vet-clinic/internal/validation"
)

// Invoices

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	v := validation.Violations{}
	petID := queryUUID(r, "pet_id", v)
	if err := v.Err(); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	list, err := h.invoices.List(r.Context(), principal(r).ClinicID, petID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(list, toInvoiceResponse))
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	inv, err := h.invoices.Get(r.Context(), principal(r).ClinicID, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req InvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	inv, err := h.invoices.Create(r.Context(), principal(r).ClinicID, req.toInput())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvoiceResponse(inv))
}

// updateInvoice applies a status change through the transition validator.
func (h *Handler) updateInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	var req InvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	inv, err := h.invoices.Update(r.Context(), principal(r).ClinicID, id, req.toInput())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceResponse(inv))
}

func (h *Handler) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.invoices.Delete(r.Context(), principal(r).ClinicID, id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Payments

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	v := validation.Violations{}
	invoiceID := queryUUID(r, "invoice_id", v)
	if err := v.Err(); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	list, err := h.invoices.ListPayments(r.Context(), principal(r).ClinicID, invoiceID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(list, toPaymentResponse))
}

func (h *Handler) getPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	p, err := h.invoices.GetPayment(r.Context(), principal(r).ClinicID, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(p))
}

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.invoices.CreatePayment(r.Context(), principal(r).ClinicID, req.toInput())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentResponse(p))
}

func (h *Handler) updatePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	var req PaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.invoices.UpdatePayment(r.Context(), principal(r).ClinicID, id, req.toInput())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(p))
}

func (h *Handler) deletePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.invoices.DeletePayment(r.Context(), principal(r).ClinicID, id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
