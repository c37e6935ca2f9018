package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/vet-clinic/internal/appointment"
	"github.com/hackgods/vet-clinic/internal/patient"
	"github.com/hackgods/vet-clinic/internal/validation"
)

// Path and query helpers. They write the error response themselves and
// report whether the handler may continue.

func (h *Handler) idParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, validation.New("id", "invalid_uuid"))
		return uuid.Nil, false
	}
	return id, true
}

func queryUUID(r *http.Request, name string, v validation.Violations) *uuid.UUID {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		v.Add(name, "invalid_uuid")
		return nil
	}
	return &id
}

func queryDate(r *http.Request, name string, v validation.Violations) *time.Time {
	raw := r.URL.Query().Get(name)
	return parseOptionalDate(name, &raw, v)
}

// Setup, auth and dashboard

func (h *Handler) setup(w http.ResponseWriter, r *http.Request) {
	var req SetupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, admin, err := h.clinics.Setup(r.Context(), req.toInput())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, SetupResponse{
		Clinic: toClinicResponse(c),
		Admin:  toUserResponse(admin),
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.clinics.Login(r.Context(), req.Phone, req.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	token, expiresAt, err := h.tokens.Issue(u.Principal())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      toUserResponse(u),
	})
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.clinics.Dashboard(r.Context(), principal(r).ClinicID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, DashboardResponse{
		PetsCount:         d.PetsCount,
		AppointmentsToday: d.AppointmentsToday,
		PendingInvoices:   d.PendingInvoices,
		LowStockItems:     d.LowStockItems,
	})
}

// Appointments

func (h *Handler) listAppointments(w http.ResponseWriter, r *http.Request) {
	v := validation.Violations{}
	f := appointment.Filter{
		PetID: queryUUID(r, "pet_id", v),
		VetID: queryUUID(r, "vet_id", v),
		Date:  queryDate(r, "date", v),
	}
	if err := v.Err(); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	list, err := h.appointments.List(r.Context(), principal(r).ClinicID, f)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(list, toAppointmentResponse))
}

// findOverlaps is the pre-check the booking form runs before submitting.
func (h *Handler) findOverlaps(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v := validation.Violations{}

	vetID := queryUUID(r, "vet_id", v)
	if vetID == nil && q.Get("vet_id") == "" {
		v.Add("vet_id", "required")
	}
	date := parseDate("date", q.Get("date"), v)
	start := parseTime("start_time", q.Get("start_time"), v)
	end := parseTime("end_time", q.Get("end_time"), v)
	exclude := queryUUID(r, "exclude_id", v)
	if v.Empty() && end <= start {
		v.Add("end_time", "must_be_after_start_time")
	}
	if err := v.Err(); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	list, err := h.appointments.FindOverlaps(r.Context(), principal(r).ClinicID, *vetID, date, start, end, exclude)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(list, toAppointmentResponse))
}

func (h *Handler) getAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}

	a, err := h.appointments.Get(r.Context(), principal(r).ClinicID, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(a))
}

func (h *Handler) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req AppointmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := req.toBooking()
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	a, err := h.appointments.Book(r.Context(), principal(r).ClinicID, b)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(a))
}

func (h *Handler) updateAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	var req AppointmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	b, err := req.toBooking()
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	a, err := h.appointments.Update(r.Context(), principal(r).ClinicID, id, b)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(a))
}

func (h *Handler) deleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.appointments.Delete(r.Context(), principal(r).ClinicID, id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Pets

func (h *Handler) listPets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lq := patient.ListQuery{
		Q:          q.Get("q"),
		Species:    q.Get("species"),
		Gender:     patient.Gender(strings.TrimSpace(q.Get("gender"))),
		SortByName: q.Get("sort") == "name",
	}
	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			writeServiceError(w, r, h.logger, validation.New("page", "invalid"))
			return
		}
		lq.Page = page
	}

	items, err := h.patients.List(r.Context(), principal(r).ClinicID, lq)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	resp := make([]PetResponse, 0, len(items))
	for i := range items {
		p := toPetResponse(&items[i].Pet)
		p.ParentName = items[i].ParentName
		resp = append(resp, p)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) searchPets(w http.ResponseWriter, r *http.Request) {
	results, err := h.patients.Search(r.Context(), principal(r).ClinicID, r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	resp := make([]PetSearchResponse, 0, len(results))
	for _, s := range results {
		resp = append(resp, PetSearchResponse{ID: s.ID, Name: s.Name, Breed: s.Breed, Owner: s.Owner})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getPet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	p, err := h.patients.GetPet(r.Context(), principal(r).ClinicID, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toPetResponse(p))
}

func (h *Handler) petProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	p, err := h.patients.Profile(r.Context(), principal(r).ClinicID, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

func (h *Handler) createPet(w http.ResponseWriter, r *http.Request) {
	var req PetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	p, err := h.patients.CreatePet(r.Context(), principal(r).ClinicID, in)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPetResponse(p))
}

func (h *Handler) updatePet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	var req PetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	p, err := h.patients.UpdatePet(r.Context(), principal(r).ClinicID, id, in)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toPetResponse(p))
}

func (h *Handler) deletePet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.patients.DeletePet(r.Context(), principal(r).ClinicID, id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Pet parents

func (h *Handler) listParents(w http.ResponseWriter, r *http.Request) {
	list, err := h.patients.ListParents(r.Context(), principal(r).ClinicID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(list, toParentResponse))
}

func (h *Handler) getParent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	p, err := h.patients.GetParent(r.Context(), principal(r).ClinicID, id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toParentResponse(p))
}

func (h *Handler) createParent(w http.ResponseWriter, r *http.Request) {
	var req ParentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.patients.CreateParent(r.Context(), principal(r).ClinicID, req.toInput())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toParentResponse(p))
}

func (h *Handler) updateParent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	var req ParentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.patients.UpdateParent(r.Context(), principal(r).ClinicID, id, req.toInput())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toParentResponse(p))
}

func (h *Handler) deleteParent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.patients.DeleteParent(r.Context(), principal(r).ClinicID, id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
