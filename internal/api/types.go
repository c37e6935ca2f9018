package api

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hackgods/vet-clinic/internal/appointment"
	"github.com/hackgods/vet-clinic/internal/clinic"
	"github.com/hackgods/vet-clinic/internal/clock"
	"github.com/hackgods/vet-clinic/internal/inventory"
	"github.com/hackgods/vet-clinic/internal/invoice"
	"github.com/hackgods/vet-clinic/internal/medical"
	"github.com/hackgods/vet-clinic/internal/messaging"
	"github.com/hackgods/vet-clinic/internal/patient"
	"github.com/hackgods/vet-clinic/internal/validation"
)

type ErrorResponse struct {
	ErrorCode string                `json:"error_code"`
	Message   string                `json:"message"`
	Fields    validation.Violations `json:"fields,omitempty"`
	Conflicts []ConflictResponse    `json:"conflicts,omitempty"`
}

type ConflictResponse struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	VetName       string    `json:"vet_name"`
	PetName       string    `json:"pet_name"`
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time"`
}

func toConflictResponses(cs []appointment.Conflict) []ConflictResponse {
	out := make([]ConflictResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, ConflictResponse{
			AppointmentID: c.AppointmentID,
			VetName:       c.VetName,
			PetName:       c.PetName,
			StartTime:     c.StartTime.Short(),
			EndTime:       c.EndTime.Short(),
		})
	}
	return out
}

// Field parsing. Each helper records a violation instead of failing so a
// request reports every bad field at once.

func parseDate(field, s string, v validation.Violations) time.Time {
	if strings.TrimSpace(s) == "" {
		v.Add(field, "required")
		return time.Time{}
	}
	d, err := clock.ParseDate(s)
	if err != nil {
		v.Add(field, "invalid_date")
	}
	return d
}

func parseOptionalDate(field string, s *string, v validation.Violations) *time.Time {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	d, err := clock.ParseDate(*s)
	if err != nil {
		v.Add(field, "invalid_date")
		return nil
	}
	return &d
}

func parseTime(field, s string, v validation.Violations) clock.TimeOfDay {
	if strings.TrimSpace(s) == "" {
		v.Add(field, "required")
		return 0
	}
	t, err := clock.ParseTimeOfDay(s)
	if err != nil {
		v.Add(field, "invalid_time")
	}
	return t
}

// Auth and setup

type SetupRequest struct {
	Clinic        ClinicRequest `json:"clinic"`
	AdminName     string        `json:"admin_name"`
	AdminPhone    string        `json:"admin_phone"`
	AdminEmail    string        `json:"admin_email"`
	AdminPassword string        `json:"admin_password"`
}

func (r SetupRequest) toInput() clinic.SetupInput {
	return clinic.SetupInput{
		Clinic:        r.Clinic.toInput(),
		AdminName:     r.AdminName,
		AdminPhone:    r.AdminPhone,
		AdminEmail:    r.AdminEmail,
		AdminPassword: r.AdminPassword,
	}
}

type SetupResponse struct {
	Clinic ClinicResponse `json:"clinic"`
	Admin  UserResponse   `json:"admin"`
}

type LoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

type DashboardResponse struct {
	PetsCount         int `json:"pets_count"`
	AppointmentsToday int `json:"appointments_today"`
	PendingInvoices   int `json:"pending_invoices"`
	LowStockItems     int `json:"low_stock_items"`
}

// Clinics and users

type ClinicRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

func (r ClinicRequest) toInput() clinic.ClinicInput {
	return clinic.ClinicInput{
		Name:    r.Name,
		Phone:   r.Phone,
		Address: r.Address,
		City:    r.City,
		State:   r.State,
		Pincode: r.Pincode,
	}
}

type ClinicResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Pincode   string    `json:"pincode"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toClinicResponse(c *clinic.Clinic) ClinicResponse {
	return ClinicResponse{
		ID:        c.ID,
		Name:      c.Name,
		Phone:     c.Phone,
		Address:   c.Address,
		City:      c.City,
		State:     c.State,
		Pincode:   c.Pincode,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type UserRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive *bool  `json:"is_active"`
	Password string `json:"password"`
}

func (r UserRequest) toInput() clinic.UserInput {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return clinic.UserInput{
		Name:     r.Name,
		Phone:    r.Phone,
		Email:    r.Email,
		Role:     clinic.Role(r.Role),
		IsActive: active,
		Password: r.Password,
	}
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	ClinicID  uuid.UUID `json:"clinic_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     *string   `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUserResponse(u *clinic.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		ClinicID:  u.ClinicID,
		Name:      u.Name,
		Phone:     u.Phone,
		Email:     u.Email,
		Role:      string(u.Role),
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Pet parents and pets

type ParentRequest struct {
	Name                  string `json:"name"`
	Phone                 string `json:"phone"`
	Email                 string `json:"email"`
	Address               string `json:"address"`
	WhatsAppNumber        string `json:"whatsapp_number"`
	WhatsAppSameAsPhone   bool   `json:"whatsapp_same_as_phone"`
	EmergencyContactName  string `json:"emergency_contact_name"`
	EmergencyContactPhone string `json:"emergency_contact_phone"`
}

func (r ParentRequest) toInput() patient.ParentInput {
	return patient.ParentInput{
		Name:                  r.Name,
		Phone:                 r.Phone,
		Email:                 r.Email,
		Address:               r.Address,
		WhatsAppNumber:        r.WhatsAppNumber,
		WhatsAppSame:          r.WhatsAppSameAsPhone,
		EmergencyContactName:  r.EmergencyContactName,
		EmergencyContactPhone: r.EmergencyContactPhone,
	}
}

type ParentResponse struct {
	ID                    uuid.UUID `json:"id"`
	Name                  string    `json:"name"`
	Phone                 string    `json:"phone"`
	Email                 *string   `json:"email"`
	Address               *string   `json:"address"`
	WhatsAppNumber        string    `json:"whatsapp_number"`
	EmergencyContactName  string    `json:"emergency_contact_name"`
	EmergencyContactPhone string    `json:"emergency_contact_phone"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func toParentResponse(p *patient.PetParent) ParentResponse {
	return ParentResponse{
		ID:                    p.ID,
		Name:                  p.Name,
		Phone:                 p.Phone,
		Email:                 p.Email,
		Address:               p.Address,
		WhatsAppNumber:        p.WhatsAppNumber,
		EmergencyContactName:  p.EmergencyContactName,
		EmergencyContactPhone: p.EmergencyContactPhone,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}

type PetRequest struct {
	PetParentID         uuid.UUID `json:"pet_parent_id"`
	Name                string    `json:"name"`
	Species             string    `json:"species"`
	Breed               string    `json:"breed"`
	Gender              string    `json:"gender"`
	DateOfBirth         *string   `json:"date_of_birth"`
	RegistrationNumber  string    `json:"registration_number"`
	SterilizationStatus string    `json:"sterilization_status"`
	Alerts              string    `json:"alerts"`
}

func (r PetRequest) toInput() (patient.PetInput, error) {
	v := validation.Violations{}
	in := patient.PetInput{
		PetParentID:         r.PetParentID,
		Name:                r.Name,
		Species:             r.Species,
		Breed:               r.Breed,
		Gender:              patient.Gender(r.Gender),
		DateOfBirth:         parseOptionalDate("date_of_birth", r.DateOfBirth, v),
		RegistrationNumber:  r.RegistrationNumber,
		SterilizationStatus: r.SterilizationStatus,
		Alerts:              r.Alerts,
	}
	return in, v.Err()
}

type PetResponse struct {
	ID                  uuid.UUID `json:"id"`
	PetParentID         uuid.UUID `json:"pet_parent_id"`
	Name                string    `json:"name"`
	Species             string    `json:"species"`
	Breed               *string   `json:"breed"`
	Gender              string    `json:"gender"`
	DateOfBirth         *string   `json:"date_of_birth"`
	RegistrationNumber  *string   `json:"registration_number"`
	SterilizationStatus *string   `json:"sterilization_status"`
	Alerts              *string   `json:"alerts"`
	ParentName          string    `json:"parent_name,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func toPetResponse(p *patient.Pet) PetResponse {
	return PetResponse{
		ID:                  p.ID,
		PetParentID:         p.PetParentID,
		Name:                p.Name,
		Species:             p.Species,
		Breed:               p.Breed,
		Gender:              string(p.Gender),
		DateOfBirth:         clock.FormatDatePtr(p.DateOfBirth),
		RegistrationNumber:  p.RegistrationNumber,
		SterilizationStatus: p.SterilizationStatus,
		Alerts:              p.Alerts,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

type PetSearchResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Breed *string   `json:"breed"`
	Owner string    `json:"owner"`
}

type PetProfileResponse struct {
	Pet             PetResponse          `json:"pet"`
	Parent          *ParentResponse      `json:"parent"`
	LastVisit       *AppointmentResponse `json:"last_visit"`
	NextAppointment *AppointmentResponse `json:"next_appointment"`
}

func toProfileResponse(p *patient.Profile) PetProfileResponse {
	resp := PetProfileResponse{Pet: toPetResponse(p.Pet)}
	if p.Parent != nil {
		parent := toParentResponse(p.Parent)
		resp.Parent = &parent
	}
	if p.LastVisit != nil {
		last := toAppointmentResponse(p.LastVisit)
		resp.LastVisit = &last
	}
	if p.NextAppointment != nil {
		next := toAppointmentResponse(p.NextAppointment)
		resp.NextAppointment = &next
	}
	return resp
}

// Appointments

type AppointmentRequest struct {
	PetID           uuid.UUID `json:"pet_id"`
	VetID           uuid.UUID `json:"vet_id"`
	AppointmentDate string    `json:"appointment_date"`
	StartTime       string    `json:"start_time"`
	EndTime         string    `json:"end_time"`
	Status          string    `json:"status"`
	Notes           string    `json:"notes"`
	ProcedureType   *string   `json:"procedure_type"`
	AllowOverlap    bool      `json:"allow_overlap"`
	ConfirmOverride string    `json:"confirm_override"`
}

func (r AppointmentRequest) toBooking() (appointment.Booking, error) {
	v := validation.Violations{}
	b := appointment.Booking{
		PetID:           r.PetID,
		VetID:           r.VetID,
		Date:            parseDate("appointment_date", r.AppointmentDate, v),
		StartTime:       parseTime("start_time", r.StartTime, v),
		EndTime:         parseTime("end_time", r.EndTime, v),
		Status:          appointment.Status(r.Status),
		Notes:           r.Notes,
		ProcedureType:   r.ProcedureType,
		AllowOverlap:    r.AllowOverlap,
		ConfirmOverride: r.ConfirmOverride,
	}
	return b, v.Err()
}

type AppointmentResponse struct {
	ID              uuid.UUID `json:"id"`
	PetID           uuid.UUID `json:"pet_id"`
	VetID           uuid.UUID `json:"vet_id"`
	AppointmentDate string    `json:"appointment_date"`
	StartTime       string    `json:"start_time"`
	EndTime         string    `json:"end_time"`
	Status          string    `json:"status"`
	Notes           string    `json:"notes"`
	ProcedureType   *string   `json:"procedure_type"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		PetID:           a.PetID,
		VetID:           a.VetID,
		AppointmentDate: clock.FormatDate(a.Date),
		StartTime:       a.StartTime.String(),
		EndTime:         a.EndTime.String(),
		Status:          string(a.Status),
		Notes:           a.Notes,
		ProcedureType:   a.ProcedureType,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

// Medical records

type MedicalRecordRequest struct {
	PetID        uuid.UUID `json:"pet_id"`
	VetID        uuid.UUID `json:"vet_id"`
	VisitDate    string    `json:"visit_date"`
	Symptoms     string    `json:"symptoms"`
	Diagnosis    string    `json:"diagnosis"`
	Prescription string    `json:"prescription"`
	FollowUpDate *string   `json:"follow_up_date"`
}

func (r MedicalRecordRequest) toInput() (medical.Input, error) {
	v := validation.Violations{}
	in := medical.Input{
		PetID:        r.PetID,
		VetID:        r.VetID,
		VisitDate:    parseDate("visit_date", r.VisitDate, v),
		Symptoms:     r.Symptoms,
		Diagnosis:    r.Diagnosis,
		Prescription: r.Prescription,
		FollowUpDate: parseOptionalDate("follow_up_date", r.FollowUpDate, v),
	}
	return in, v.Err()
}

type MedicalRecordResponse struct {
	ID           uuid.UUID `json:"id"`
	PetID        uuid.UUID `json:"pet_id"`
	VetID        uuid.UUID `json:"vet_id"`
	VisitDate    string    `json:"visit_date"`
	Symptoms     *string   `json:"symptoms"`
	Diagnosis    *string   `json:"diagnosis"`
	Prescription *string   `json:"prescription"`
	FollowUpDate *string   `json:"follow_up_date"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toMedicalRecordResponse(m *medical.Record) MedicalRecordResponse {
	return MedicalRecordResponse{
		ID:           m.ID,
		PetID:        m.PetID,
		VetID:        m.VetID,
		VisitDate:    clock.FormatDate(m.VisitDate),
		Symptoms:     m.Symptoms,
		Diagnosis:    m.Diagnosis,
		Prescription: m.Prescription,
		FollowUpDate: clock.FormatDatePtr(m.FollowUpDate),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// Billing

type InvoiceRequest struct {
	PetID         uuid.UUID       `json:"pet_id"`
	InvoiceNumber string          `json:"invoice_number"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	GSTAmount     decimal.Decimal `json:"gst_amount"`
	Status        string          `json:"status"`
}

func (r InvoiceRequest) toInput() invoice.Input {
	return invoice.Input{
		PetID:         r.PetID,
		InvoiceNumber: r.InvoiceNumber,
		TotalAmount:   r.TotalAmount,
		GSTAmount:     r.GSTAmount,
		Status:        invoice.Status(r.Status),
	}
}

type InvoiceResponse struct {
	ID            uuid.UUID `json:"id"`
	PetID         uuid.UUID `json:"pet_id"`
	InvoiceNumber string    `json:"invoice_number"`
	TotalAmount   string    `json:"total_amount"`
	GSTAmount     string    `json:"gst_amount"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toInvoiceResponse(inv *invoice.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:            inv.ID,
		PetID:         inv.PetID,
		InvoiceNumber: inv.InvoiceNumber,
		TotalAmount:   inv.TotalAmount.StringFixed(2),
		GSTAmount:     inv.GSTAmount.StringFixed(2),
		Status:        string(inv.Status),
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
	}
}

type PaymentRequest struct {
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	PaymentMethod string          `json:"payment_method"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	ReferenceID   string          `json:"reference_id"`
}

func (r PaymentRequest) toInput() invoice.PaymentInput {
	return invoice.PaymentInput{
		InvoiceID:   r.InvoiceID,
		Method:      invoice.PaymentMethod(r.PaymentMethod),
		Amount:      r.Amount,
		Status:      invoice.PaymentStatus(r.Status),
		ReferenceID: r.ReferenceID,
	}
}

type PaymentResponse struct {
	ID            uuid.UUID `json:"id"`
	InvoiceID     uuid.UUID `json:"invoice_id"`
	PaymentMethod string    `json:"payment_method"`
	Amount        string    `json:"amount"`
	Status        string    `json:"status"`
	ReferenceID   string    `json:"reference_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toPaymentResponse(p *invoice.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID,
		InvoiceID:     p.InvoiceID,
		PaymentMethod: string(p.Method),
		Amount:        p.Amount.StringFixed(2),
		Status:        string(p.Status),
		ReferenceID:   p.ReferenceID,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// Inventory

type InventoryItemRequest struct {
	Name              string  `json:"name"`
	Quantity          int     `json:"quantity"`
	ExpiryDate        *string `json:"expiry_date"`
	LowStockThreshold int     `json:"low_stock_threshold"`
}

func (r InventoryItemRequest) toInput() (inventory.Input, error) {
	v := validation.Violations{}
	in := inventory.Input{
		Name:              r.Name,
		Quantity:          r.Quantity,
		ExpiryDate:        parseOptionalDate("expiry_date", r.ExpiryDate, v),
		LowStockThreshold: r.LowStockThreshold,
	}
	return in, v.Err()
}

type InventoryItemResponse struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Quantity          int       `json:"quantity"`
	ExpiryDate        *string   `json:"expiry_date"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	LowStock          bool      `json:"low_stock"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func toInventoryItemResponse(i *inventory.Item) InventoryItemResponse {
	return InventoryItemResponse{
		ID:                i.ID,
		Name:              i.Name,
		Quantity:          i.Quantity,
		ExpiryDate:        clock.FormatDatePtr(i.ExpiryDate),
		LowStockThreshold: i.LowStockThreshold,
		LowStock:          i.LowStock(),
		CreatedAt:         i.CreatedAt,
		UpdatedAt:         i.UpdatedAt,
	}
}

// Logs

type ReminderLogRequest struct {
	EntityType    string `json:"entity_type"`
	EntityID      string `json:"entity_id"`
	Channel       string `json:"channel"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason"`
	SentAt        string `json:"sent_at"`
}

func (r ReminderLogRequest) toInput() messaging.ReminderInput {
	return messaging.ReminderInput{
		EntityType:    messaging.EntityType(r.EntityType),
		EntityID:      r.EntityID,
		Channel:       messaging.Channel(r.Channel),
		Status:        messaging.ReminderStatus(r.Status),
		FailureReason: r.FailureReason,
		SentAt:        r.SentAt,
	}
}

type ReminderLogResponse struct {
	ID            uuid.UUID  `json:"id"`
	EntityType    string     `json:"entity_type"`
	EntityID      string     `json:"entity_id"`
	Channel       string     `json:"channel"`
	Status        string     `json:"status"`
	FailureReason string     `json:"failure_reason"`
	SentAt        *time.Time `json:"sent_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toReminderLogResponse(l *messaging.ReminderLog) ReminderLogResponse {
	return ReminderLogResponse{
		ID:            l.ID,
		EntityType:    string(l.EntityType),
		EntityID:      l.EntityID,
		Channel:       string(l.Channel),
		Status:        string(l.Status),
		FailureReason: l.FailureReason,
		SentAt:        l.SentAt,
		CreatedAt:     l.CreatedAt,
	}
}

type MessageLogRequest struct {
	RecipientPhone    string          `json:"recipient_phone"`
	TemplateName      string          `json:"template_name"`
	Payload           json.RawMessage `json:"payload"`
	Status            string          `json:"status"`
	ProviderMessageID string          `json:"provider_message_id"`
}

func (r MessageLogRequest) toInput() messaging.MessageInput {
	return messaging.MessageInput{
		RecipientPhone:    r.RecipientPhone,
		TemplateName:      r.TemplateName,
		Payload:           r.Payload,
		Status:            messaging.MessageStatus(r.Status),
		ProviderMessageID: r.ProviderMessageID,
	}
}

type MessageLogResponse struct {
	ID                uuid.UUID       `json:"id"`
	RecipientPhone    string          `json:"recipient_phone"`
	TemplateName      string          `json:"template_name"`
	Payload           json.RawMessage `json:"payload"`
	Status            string          `json:"status"`
	ProviderMessageID string          `json:"provider_message_id"`
	CreatedAt         time.Time       `json:"created_at"`
}

func toMessageLogResponse(l *messaging.MessageLog) MessageLogResponse {
	return MessageLogResponse{
		ID:                l.ID,
		RecipientPhone:    l.RecipientPhone,
		TemplateName:      l.TemplateName,
		Payload:           l.Payload,
		Status:            string(l.Status),
		ProviderMessageID: l.ProviderMessageID,
		CreatedAt:         l.CreatedAt,
	}
}

// mapSlice converts a list with one of the to*Response functions above.
func mapSlice[T, R any](in []T, fn func(*T) R) []R {
	out := make([]R, 0, len(in))
	for i := range in {
		out = append(out, fn(&in[i]))
	}
	return out
}
