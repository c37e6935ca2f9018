package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/hackgods/vet-clinic/internal/appointment"
	"github.com/hackgods/vet-clinic/internal/auth"
	"github.com/hackgods/vet-clinic/internal/clinic"
	"github.com/hackgods/vet-clinic/internal/clock"
	"github.com/hackgods/vet-clinic/internal/inventory"
	"github.com/hackgods/vet-clinic/internal/invoice"
	"github.com/hackgods/vet-clinic/internal/medical"
	"github.com/hackgods/vet-clinic/internal/messaging"
	"github.com/hackgods/vet-clinic/internal/patient"
)

type ClinicService interface {
	Authenticator
	Setup(ctx context.Context, in clinic.SetupInput) (*clinic.Clinic, *clinic.User, error)
	Login(ctx context.Context, phone, password string) (*clinic.User, error)
	Dashboard(ctx context.Context, clinicID uuid.UUID) (clinic.Dashboard, error)

	GetClinic(ctx context.Context, id uuid.UUID) (*clinic.Clinic, error)
	ListClinics(ctx context.Context) ([]clinic.Clinic, error)
	CreateClinic(ctx context.Context, in clinic.ClinicInput) (*clinic.Clinic, error)
	UpdateClinic(ctx context.Context, id uuid.UUID, in clinic.ClinicInput) (*clinic.Clinic, error)
	DeleteClinic(ctx context.Context, id uuid.UUID) error

	GetUser(ctx context.Context, clinicID, id uuid.UUID) (*clinic.User, error)
	ListUsers(ctx context.Context, clinicID uuid.UUID) ([]clinic.User, error)
	ListVets(ctx context.Context, clinicID uuid.UUID) ([]clinic.User, error)
	CreateUser(ctx context.Context, clinicID uuid.UUID, in clinic.UserInput) (*clinic.User, error)
	UpdateUser(ctx context.Context, clinicID, id uuid.UUID, in clinic.UserInput) (*clinic.User, error)
	DeleteUser(ctx context.Context, clinicID, id uuid.UUID) error
}

type AppointmentService interface {
	FindOverlaps(ctx context.Context, clinicID, vetID uuid.UUID, date time.Time, start, end clock.TimeOfDay, exclude *uuid.UUID) ([]appointment.Appointment, error)
	Book(ctx context.Context, clinicID uuid.UUID, b appointment.Booking) (*appointment.Appointment, error)
	Update(ctx context.Context, clinicID, id uuid.UUID, b appointment.Booking) (*appointment.Appointment, error)
	Get(ctx context.Context, clinicID, id uuid.UUID) (*appointment.Appointment, error)
	List(ctx context.Context, clinicID uuid.UUID, f appointment.Filter) ([]appointment.Appointment, error)
	Delete(ctx context.Context, clinicID, id uuid.UUID) error
}

type PatientService interface {
	GetParent(ctx context.Context, clinicID, id uuid.UUID) (*patient.PetParent, error)
	ListParents(ctx context.Context, clinicID uuid.UUID) ([]patient.PetParent, error)
	CreateParent(ctx context.Context, clinicID uuid.UUID, in patient.ParentInput) (*patient.PetParent, error)
	UpdateParent(ctx context.Context, clinicID, id uuid.UUID, in patient.ParentInput) (*patient.PetParent, error)
	DeleteParent(ctx context.Context, clinicID, id uuid.UUID) error

	GetPet(ctx context.Context, clinicID, id uuid.UUID) (*patient.Pet, error)
	List(ctx context.Context, clinicID uuid.UUID, q patient.ListQuery) ([]patient.ListItem, error)
	Search(ctx context.Context, clinicID uuid.UUID, q string) ([]patient.SearchResult, error)
	CreatePet(ctx context.Context, clinicID uuid.UUID, in patient.PetInput) (*patient.Pet, error)
	UpdatePet(ctx context.Context, clinicID, id uuid.UUID, in patient.PetInput) (*patient.Pet, error)
	DeletePet(ctx context.Context, clinicID, id uuid.UUID) error
	Profile(ctx context.Context, clinicID, petID uuid.UUID) (*patient.Profile, error)
}

type MedicalService interface {
	Get(ctx context.Context, clinicID, id uuid.UUID) (*medical.Record, error)
	List(ctx context.Context, clinicID uuid.UUID, petID *uuid.UUID) ([]medical.Record, error)
	Create(ctx context.Context, clinicID uuid.UUID, in medical.Input) (*medical.Record, error)
	Update(ctx context.Context, clinicID, id uuid.UUID, in medical.Input) (*medical.Record, error)
	Delete(ctx context.Context, clinicID, id uuid.UUID) error
}

type InvoiceService interface {
	Get(ctx context.Context, clinicID, id uuid.UUID) (*invoice.Invoice, error)
	List(ctx context.Context, clinicID uuid.UUID, petID *uuid.UUID) ([]invoice.Invoice, error)
	Create(ctx context.Context, clinicID uuid.UUID, in invoice.Input) (*invoice.Invoice, error)
	Update(ctx context.Context, clinicID, id uuid.UUID, in invoice.Input) (*invoice.Invoice, error)
	Delete(ctx context.Context, clinicID, id uuid.UUID) error

	GetPayment(ctx context.Context, clinicID, id uuid.UUID) (*invoice.Payment, error)
	ListPayments(ctx context.Context, clinicID uuid.UUID, invoiceID *uuid.UUID) ([]invoice.Payment, error)
	CreatePayment(ctx context.Context, clinicID uuid.UUID, in invoice.PaymentInput) (*invoice.Payment, error)
	UpdatePayment(ctx context.Context, clinicID, id uuid.UUID, in invoice.PaymentInput) (*invoice.Payment, error)
	DeletePayment(ctx context.Context, clinicID, id uuid.UUID) error
}

type InventoryService interface {
	Get(ctx context.Context, clinicID, id uuid.UUID) (*inventory.Item, error)
	List(ctx context.Context, clinicID uuid.UUID) ([]inventory.Item, error)
	ListLowStock(ctx context.Context, clinicID uuid.UUID) ([]inventory.Item, error)
	Create(ctx context.Context, clinicID uuid.UUID, in inventory.Input) (*inventory.Item, error)
	Update(ctx context.Context, clinicID, id uuid.UUID, in inventory.Input) (*inventory.Item, error)
	Delete(ctx context.Context, clinicID, id uuid.UUID) error
}

type MessagingService interface {
	LogReminder(ctx context.Context, clinicID uuid.UUID, in messaging.ReminderInput) (*messaging.ReminderLog, error)
	ListReminders(ctx context.Context, clinicID uuid.UUID) ([]messaging.ReminderLog, error)
	LogMessage(ctx context.Context, clinicID uuid.UUID, in messaging.MessageInput) (*messaging.MessageLog, error)
	ListMessages(ctx context.Context, clinicID uuid.UUID) ([]messaging.MessageLog, error)
}

type RouterConfig struct {
	Clinics      ClinicService
	Appointments AppointmentService
	Patients     PatientService
	Medical      MedicalService
	Invoices     InvoiceService
	Inventory    InventoryService
	Messaging    MessagingService

	Tokens       *auth.Tokens
	LoginLimiter RateLimiter
	Health       *HealthHandler
	Logger       *zap.Logger

	// TrustedProxies may set X-Forwarded-For for login throttling.
	TrustedProxies TrustedProxies

	// Tracing wraps the router with otelhttp.
	Tracing bool
}

// Handler holds the services behind the HTTP routes.
type Handler struct {
	clinics      ClinicService
	appointments AppointmentService
	patients     PatientService
	medical      MedicalService
	invoices     InvoiceService
	inventory    InventoryService
	messaging    MessagingService
	tokens       *auth.Tokens
	logger       *zap.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	h := &Handler{
		clinics:      cfg.Clinics,
		appointments: cfg.Appointments,
		patients:     cfg.Patients,
		medical:      cfg.Medical,
		invoices:     cfg.Invoices,
		inventory:    cfg.Inventory,
		messaging:    cfg.Messaging,
		tokens:       cfg.Tokens,
		logger:       cfg.Logger,
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health/live", cfg.Health.Liveness)
	r.Get("/health/ready", cfg.Health.Readiness)

	r.Post("/setup", h.setup)
	r.With(RateLimitMiddleware(cfg.LoginLimiter, cfg.TrustedProxies, cfg.Logger)).Post("/auth/login", h.login)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Tokens, cfg.Clinics, cfg.Logger))

		r.Get("/dashboard", h.dashboard)

		r.Route("/clinics", func(r chi.Router) {
			r.Use(RequireRole(string(clinic.RoleAdmin)))
			r.Get("/", h.listClinics)
			r.Post("/", h.createClinic)
			r.Get("/{id}", h.getClinic)
			r.Put("/{id}", h.updateClinic)
			r.Delete("/{id}", h.deleteClinic)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.listUsers)
			r.Get("/vets", h.listVets)
			r.Get("/{id}", h.getUser)
			r.With(RequireRole(string(clinic.RoleAdmin))).Post("/", h.createUser)
			r.With(RequireRole(string(clinic.RoleAdmin))).Put("/{id}", h.updateUser)
			r.With(RequireRole(string(clinic.RoleAdmin))).Delete("/{id}", h.deleteUser)
		})

		r.Route("/pet-parents", func(r chi.Router) {
			r.Get("/", h.listParents)
			r.Post("/", h.createParent)
			r.Get("/{id}", h.getParent)
			r.Put("/{id}", h.updateParent)
			r.Delete("/{id}", h.deleteParent)
		})

		r.Route("/pets", func(r chi.Router) {
			r.Get("/", h.listPets)
			r.Post("/", h.createPet)
			r.Get("/search", h.searchPets)
			r.Get("/{id}", h.getPet)
			r.Get("/{id}/profile", h.petProfile)
			r.Put("/{id}", h.updatePet)
			r.Delete("/{id}", h.deletePet)
		})

		r.Route("/appointments", func(r chi.Router) {
			r.Get("/", h.listAppointments)
			r.Post("/", h.createAppointment)
			r.Get("/overlaps", h.findOverlaps)
			r.Get("/{id}", h.getAppointment)
			r.Put("/{id}", h.updateAppointment)
			r.Delete("/{id}", h.deleteAppointment)
		})

		r.Route("/medical-records", func(r chi.Router) {
			r.Get("/", h.listMedicalRecords)
			r.Post("/", h.createMedicalRecord)
			r.Get("/{id}", h.getMedicalRecord)
			r.Put("/{id}", h.updateMedicalRecord)
			r.Delete("/{id}", h.deleteMedicalRecord)
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", h.listInvoices)
			r.Post("/", h.createInvoice)
			r.Get("/{id}", h.getInvoice)
			r.Put("/{id}", h.updateInvoice)
			r.Delete("/{id}", h.deleteInvoice)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", h.listPayments)
			r.Post("/", h.createPayment)
			r.Get("/{id}", h.getPayment)
			r.Put("/{id}", h.updatePayment)
			r.Delete("/{id}", h.deletePayment)
		})

		r.Route("/inventory-items", func(r chi.Router) {
			r.Get("/", h.listInventoryItems)
			r.Post("/", h.createInventoryItem)
			r.Get("/low-stock", h.listLowStock)
			r.Get("/{id}", h.getInventoryItem)
			r.Put("/{id}", h.updateInventoryItem)
			r.Delete("/{id}", h.deleteInventoryItem)
		})

		r.Get("/reminder-logs", h.listReminderLogs)
		r.Post("/reminder-logs", h.createReminderLog)
		r.Get("/message-logs", h.listMessageLogs)
		r.Post("/message-logs", h.createMessageLog)
	})

	if cfg.Tracing {
		return otelhttp.NewHandler(r, "vet-clinic-api")
	}
	return r
}
