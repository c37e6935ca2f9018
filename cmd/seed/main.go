package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hackgods/vet-clinic/internal/appointment"
	"github.com/hackgods/vet-clinic/internal/clinic"
	"github.com/hackgods/vet-clinic/internal/clock"
	"github.com/hackgods/vet-clinic/internal/config"
	"github.com/hackgods/vet-clinic/internal/db"
	"github.com/hackgods/vet-clinic/internal/events"
	"github.com/hackgods/vet-clinic/internal/inventory"
	"github.com/hackgods/vet-clinic/internal/invoice"
	"github.com/hackgods/vet-clinic/internal/lock"
	"github.com/hackgods/vet-clinic/internal/logging"
	"github.com/hackgods/vet-clinic/internal/patient"
)

const seedPassword = "clinic-demo-1"

type seedConfig struct {
	Clinics int
	Vets    int
	Parents int
	Days    int
}

// seeder writes through the services so seeded rows pass the same
// validation as API traffic.
type seeder struct {
	clinics      *clinic.Service
	patients     *patient.Service
	appointments *appointment.Service
	invoices     *invoice.Service
	inventory    *inventory.Service
	logger       *zap.Logger

	phoneSeq int
}

func main() {
	var sc seedConfig
	flag.IntVar(&sc.Clinics, "clinics", 2, "clinics to create")
	flag.IntVar(&sc.Vets, "vets", 3, "vets per clinic")
	flag.IntVar(&sc.Parents, "parents", 40, "pet parents per clinic")
	flag.IntVar(&sc.Days, "days", 7, "days of appointments on either side of today")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(logging.ConfigFor(cfg.Env, cfg.LogLevel))
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, cfg.PostgresMaxConn)
	cancel()
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	// Seeding is quiet; the service loggers would log every row.
	quiet := zap.NewNop()
	appointments := appointment.NewService(appointment.NewPgRepository(pool), lock.NewLocalLocker(), events.Discard{}, quiet)
	s := &seeder{
		clinics:      clinic.NewService(clinic.NewPgRepository(pool), quiet),
		patients:     patient.NewService(patient.NewPgRepository(pool), appointments, quiet),
		appointments: appointments,
		invoices:     invoice.NewService(invoice.NewPgRepository(pool), events.Discard{}, quiet),
		inventory:    inventory.NewService(inventory.NewPgRepository(pool), quiet),
		logger:       logger,
		phoneSeq:     int(time.Now().Unix() % 1_000_000 * 1000),
	}

	for i := 0; i < sc.Clinics; i++ {
		if err := s.seedClinic(context.Background(), sc); err != nil {
			logger.Fatal("seed clinic", zap.Error(err))
		}
	}

	logger.Info("seed complete", zap.String("password", seedPassword))
}

// phone returns a number unique within this run.
func (s *seeder) phone() string {
	s.phoneSeq++
	return fmt.Sprintf("9%09d", s.phoneSeq%1_000_000_000)
}

func (s *seeder) seedClinic(ctx context.Context, sc seedConfig) error {
	c, err := s.clinics.CreateClinic(ctx, clinic.ClinicInput{
		Name:    gofakeit.Company() + " Veterinary Clinic",
		Phone:   s.phone(),
		Address: gofakeit.Street(),
		City:    gofakeit.City(),
		State:   gofakeit.State(),
		Pincode: gofakeit.Zip(),
	})
	if err != nil {
		return fmt.Errorf("create clinic: %w", err)
	}

	admin, err := s.user(ctx, c.ID, clinic.RoleAdmin)
	if err != nil {
		return err
	}
	if _, err := s.user(ctx, c.ID, clinic.RoleStaff); err != nil {
		return err
	}

	vets := make([]uuid.UUID, 0, sc.Vets)
	for i := 0; i < sc.Vets; i++ {
		v, err := s.user(ctx, c.ID, clinic.RoleVet)
		if err != nil {
			return err
		}
		vets = append(vets, v.ID)
	}

	pets, err := s.seedPets(ctx, c.ID, sc.Parents)
	if err != nil {
		return err
	}
	booked, err := s.seedAppointments(ctx, c.ID, vets, pets, sc.Days)
	if err != nil {
		return err
	}
	if err := s.seedInvoices(ctx, c.ID, pets); err != nil {
		return err
	}
	if err := s.seedInventory(ctx, c.ID); err != nil {
		return err
	}

	s.logger.Info("clinic seeded",
		zap.Stringer("clinic_id", c.ID),
		zap.String("admin_phone", admin.Phone),
		zap.Int("vets", len(vets)),
		zap.Int("pets", len(pets)),
		zap.Int("appointments", booked),
	)
	return nil
}

func (s *seeder) user(ctx context.Context, clinicID uuid.UUID, role clinic.Role) (*clinic.User, error) {
	name := gofakeit.Name()
	if role == clinic.RoleVet {
		name = "Dr. " + name
	}
	u, err := s.clinics.CreateUser(ctx, clinicID, clinic.UserInput{
		Name:     name,
		Phone:    s.phone(),
		Email:    gofakeit.Email(),
		Role:     role,
		IsActive: true,
		Password: seedPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", role, err)
	}
	return u, nil
}

func (s *seeder) seedPets(ctx context.Context, clinicID uuid.UUID, parents int) ([]uuid.UUID, error) {
	genders := []string{string(patient.GenderMale), string(patient.GenderFemale), string(patient.GenderUnknown)}
	var pets []uuid.UUID

	for i := 0; i < parents; i++ {
		parent, err := s.patients.CreateParent(ctx, clinicID, patient.ParentInput{
			Name:         gofakeit.Name(),
			Phone:        s.phone(),
			Email:        gofakeit.Email(),
			Address:      gofakeit.Street() + ", " + gofakeit.City(),
			WhatsAppSame: gofakeit.Bool(),
		})
		if err != nil {
			return nil, fmt.Errorf("create pet parent: %w", err)
		}

		for n := gofakeit.Number(1, 3); n > 0; n-- {
			species, breed := "dog", gofakeit.Dog()
			if gofakeit.Bool() {
				species, breed = "cat", gofakeit.Cat()
			}
			dob := clock.DateOf(time.Now()).AddDate(-gofakeit.Number(0, 14), -gofakeit.Number(0, 11), 0)

			pet, err := s.patients.CreatePet(ctx, clinicID, patient.PetInput{
				PetParentID: parent.ID,
				Name:        gofakeit.PetName(),
				Species:     species,
				Breed:       breed,
				Gender:      patient.Gender(gofakeit.RandomString(genders)),
				DateOfBirth: &dob,
			})
			if err != nil {
				return nil, fmt.Errorf("create pet: %w", err)
			}
			pets = append(pets, pet.ID)
		}
	}
	return pets, nil
}

// seedAppointments fills each vet's day with back-to-back 30 minute visits,
// leaving random gaps. Past days are marked completed.
func (s *seeder) seedAppointments(ctx context.Context, clinicID uuid.UUID, vets, pets []uuid.UUID, days int) (int, error) {
	today := clock.DateOf(time.Now())
	procedures := []string{"consultation", "vaccination", "grooming", "dental", "surgery follow-up"}
	booked := 0

	for d := -days; d <= days; d++ {
		date := today.AddDate(0, 0, d)
		status := appointment.StatusScheduled
		if d < 0 {
			status = appointment.StatusCompleted
		}

		for _, vet := range vets {
			for start := clock.At(9, 0, 0); start < clock.At(17, 0, 0); start += 30 * 60 {
				if gofakeit.Number(0, 2) == 0 {
					continue
				}
				procedure := gofakeit.RandomString(procedures)
				_, err := s.appointments.Book(ctx, clinicID, appointment.Booking{
					PetID:         pets[gofakeit.Number(0, len(pets)-1)],
					VetID:         vet,
					Date:          date,
					StartTime:     start,
					EndTime:       start + 30*60,
					Status:        status,
					ProcedureType: &procedure,
				})
				if err != nil {
					return booked, fmt.Errorf("book appointment: %w", err)
				}
				booked++
			}
		}
	}
	return booked, nil
}

func (s *seeder) seedInvoices(ctx context.Context, clinicID uuid.UUID, pets []uuid.UUID) error {
	gst := decimal.NewFromFloat(0.18)
	for i, petID := range pets {
		if i%3 != 0 {
			continue
		}
		total := decimal.NewFromInt(int64(gofakeit.Number(300, 5000)))
		inv, err := s.invoices.Create(ctx, clinicID, invoice.Input{
			PetID:         petID,
			InvoiceNumber: fmt.Sprintf("INV-%05d", i+1),
			TotalAmount:   total,
			GSTAmount:     total.Mul(gst).Round(2),
			Status:        invoice.StatusIssued,
		})
		if err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		if gofakeit.Bool() {
			if _, err := s.invoices.Update(ctx, clinicID, inv.ID, invoice.Input{
				PetID:         petID,
				InvoiceNumber: inv.InvoiceNumber,
				TotalAmount:   inv.TotalAmount,
				GSTAmount:     inv.GSTAmount,
				Status:        invoice.StatusPaid,
			}); err != nil {
				return fmt.Errorf("pay invoice: %w", err)
			}
		}
	}
	return nil
}

func (s *seeder) seedInventory(ctx context.Context, clinicID uuid.UUID) error {
	items := []string{"Rabies vaccine", "DHPPi vaccine", "Amoxicillin 250mg", "Meloxicam drops", "Surgical gloves", "IV cannula 22G", "Deworming tablets"}
	for _, name := range items {
		expiry := clock.DateOf(time.Now()).AddDate(0, gofakeit.Number(1, 18), 0)
		if _, err := s.inventory.Create(ctx, clinicID, inventory.Input{
			Name:              name,
			Quantity:          gofakeit.Number(0, 120),
			ExpiryDate:        &expiry,
			LowStockThreshold: 10,
		}); err != nil {
			return fmt.Errorf("create inventory item: %w", err)
		}
	}
	return nil
}
