package api

import "net/http"

// Clinics are global records managed by admins.

func (h *Handler) listClinics(w http.ResponseWriter, r *http.Request) {
	list, err := h.clinics.ListClinics(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(list, toClinicResponse))
}

func (h *Handler) getClinic(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	c, err := h.clinics.GetClinic(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toClinicResponse(c))
}

func (h *Handler) createClinic(w http.ResponseWriter, r *http.Request) {
	var req ClinicRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.clinics.CreateClinic(r.Context(), req.toInput())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toClinicResponse(c))
}

func (h *Handler) updateClinic(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	var req ClinicRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.clinics.UpdateClinic(r.Context(), id, req.toInput())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toClinicResponse(c))
}

func (h *Handler) deleteClinic(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.clinics.DeleteClinic(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Users

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.clinics.ListUsers(r.Context(), principal(r).ClinicID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(list, toUserResponse))
}

// listVets feeds the vet picker on the booking form.
func (h *Handler) listVets(w http.ResponseWriter, r *http.Request) {
	list, err := h.clinics.ListVets(r.Context(), principal(r).ClinicID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(list, toUserResponse))
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	u, err := h.clinics.GetUser(r.Context(), principal(r).ClinicID, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.clinics.CreateUser(r.Context(), principal(r).ClinicID, req.toInput())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	var req UserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.clinics.UpdateUser(r.Context(), principal(r).ClinicID, id, req.toInput())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.clinics.DeleteUser(r.Context(), principal(r).ClinicID, id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
