package api

import (
	"net/http"

	"github.com/hackgods/vet-clinic/internal/validation"
)

// Medical records

func (h *Handler) listMedicalRecords(w http.ResponseWriter, r *http.Request) {
	v := validation.Violations{}
	petID := queryUUID(r, "pet_id", v)
	if err := v.Err(); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	list, err := h.medical.List(r.Context(), principal(r).ClinicID, petID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(list, toMedicalRecordResponse))
}

func (h *Handler) getMedicalRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	m, err := h.medical.Get(r.Context(), principal(r).ClinicID, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toMedicalRecordResponse(m))
}

func (h *Handler) createMedicalRecord(w http.ResponseWriter, r *http.Request) {
	var req MedicalRecordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	m, err := h.medical.Create(r.Context(), principal(r).ClinicID, in)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMedicalRecordResponse(m))
}

func (h *Handler) updateMedicalRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	var req MedicalRecordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	m, err := h.medical.Update(r.Context(), principal(r).ClinicID, id, in)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toMedicalRecordResponse(m))
}

func (h *Handler) deleteMedicalRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.medical.Delete(r.Context(), principal(r).ClinicID, id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Inventory

func (h *Handler) listInventoryItems(w http.ResponseWriter, r *http.Request) {
	list, err := h.inventory.List(r.Context(), principal(r).ClinicID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(list, toInventoryItemResponse))
}

func (h *Handler) listLowStock(w http.ResponseWriter, r *http.Request) {
	list, err := h.inventory.ListLowStock(r.Context(), principal(r).ClinicID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(list, toInventoryItemResponse))
}

func (h *Handler) getInventoryItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	item, err := h.inventory.Get(r.Context(), principal(r).ClinicID, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryItemResponse(item))
}

func (h *Handler) createInventoryItem(w http.ResponseWriter, r *http.Request) {
	var req InventoryItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	item, err := h.inventory.Create(r.Context(), principal(r).ClinicID, in)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInventoryItemResponse(item))
}

func (h *Handler) updateInventoryItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	var req InventoryItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	item, err := h.inventory.Update(r.Context(), principal(r).ClinicID, id, in)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryItemResponse(item))
}

func (h *Handler) deleteInventoryItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.inventory.Delete(r.Context(), principal(r).ClinicID, id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reminder and message logs are append-only.

func (h *Handler) listReminderLogs(w http.ResponseWriter, r *http.Request) {
	list, err := h.messaging.ListReminders(r.Context(), principal(r).ClinicID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(list, toReminderLogResponse))
}

func (h *Handler) createReminderLog(w http.ResponseWriter, r *http.Request) {
	var req ReminderLogRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	l, err := h.messaging.LogReminder(r.Context(), principal(r).ClinicID, req.toInput())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReminderLogResponse(l))
}

func (h *Handler) listMessageLogs(w http.ResponseWriter, r *http.Request) {
	list, err := h.messaging.ListMessages(r.Context(), principal(r).ClinicID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(list, toMessageLogResponse))
}

func (h *Handler) createMessageLog(w http.ResponseWriter, r *http.Request) {
	var req MessageLogRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	l, err := h.messaging.LogMessage(r.Context(), principal(r).ClinicID, req.toInput())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMessageLogResponse(l))
}
