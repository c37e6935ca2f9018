package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/vet-clinic/internal/appointment"
	"github.com/hackgods/vet-clinic/internal/auth"
	"github.com/hackgods/vet-clinic/internal/clinic"
	"github.com/hackgods/vet-clinic/internal/clock"
	"github.com/hackgods/vet-clinic/internal/invoice"
)

// Stubs embed the service interface; calling a method a test did not
// override panics on the nil embedded value.

type stubClinics struct {
	ClinicService
	user    *clinic.User
	authErr error
}

func (s *stubClinics) Authenticate(_ context.Context, p auth.Principal) (auth.Principal, error) {
	if s.authErr != nil {
		return auth.Principal{}, s.authErr
	}
	return p, nil
}

func (s *stubClinics) Login(_ context.Context, phone, password string) (*clinic.User, error) {
	if s.user == nil || phone != s.user.Phone || password != "correct-horse" {
		return nil, clinic.ErrInvalidCredentials
	}
	return s.user, nil
}

func (s *stubClinics) ListClinics(context.Context) ([]clinic.Clinic, error) {
	return []clinic.Clinic{{ID: uuid.New(), Name: "Paws"}}, nil
}

type stubAppointments struct {
	AppointmentService
	bookErr    error
	getErr     error
	booked     *appointment.Booking
	bookedFor  uuid.UUID
	overlapHit int
}

func (s *stubAppointments) Book(_ context.Context, clinicID uuid.UUID, b appointment.Booking) (*appointment.Appointment, error) {
	s.booked, s.bookedFor = &b, clinicID
	if s.bookErr != nil {
		return nil, s.bookErr
	}
	return &appointment.Appointment{
		ID: uuid.New(), ClinicID: clinicID, PetID: b.PetID, VetID: b.VetID,
		Date: b.Date, StartTime: b.StartTime, EndTime: b.EndTime, Status: appointment.StatusScheduled,
	}, nil
}

func (s *stubAppointments) Get(context.Context, uuid.UUID, uuid.UUID) (*appointment.Appointment, error) {
	return nil, s.getErr
}

func (s *stubAppointments) FindOverlaps(context.Context, uuid.UUID, uuid.UUID, time.Time, clock.TimeOfDay, clock.TimeOfDay, *uuid.UUID) ([]appointment.Appointment, error) {
	s.overlapHit++
	return nil, nil
}

type stubInvoices struct {
	InvoiceService
	updateErr error
}

func (s *stubInvoices) Update(context.Context, uuid.UUID, uuid.UUID, invoice.Input) (*invoice.Invoice, error) {
	return nil, s.updateErr
}

type testEnv struct {
	handler      http.Handler
	tokens       *auth.Tokens
	clinics      *stubClinics
	appointments *stubAppointments
	invoices     *stubInvoices
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		tokens:       auth.NewTokens("test-secret", time.Hour),
		clinics:      &stubClinics{},
		appointments: &stubAppointments{},
		invoices:     &stubInvoices{},
	}
	env.handler = NewRouter(RouterConfig{
		Clinics:      env.clinics,
		Appointments: env.appointments,
		Invoices:     env.invoices,
		Tokens:       env.tokens,
		LoginLimiter: NewLocalRateLimiter(3, time.Minute),
		Health:       NewHealthHandler(func(context.Context) error { return nil }, nil, "test", "dev"),
		Logger:       zap.NewNop(),
	})
	return env
}

func (e *testEnv) token(t *testing.T, p auth.Principal) string {
	t.Helper()
	tok, _, err := e.tokens.Issue(p)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func staff() auth.Principal {
	return auth.Principal{UserID: uuid.New(), ClinicID: uuid.New(), Role: string(clinic.RoleStaff)}
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health/live", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/health/ready", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ready ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ready))
	assert.Equal(t, "ok", ready.Status)
	assert.Equal(t, "disabled", ready.Dependencies["redis"])
}

func TestReadinessStatus(t *testing.T) {
	down := func(context.Context) error { return errors.New("down") }
	up := func(context.Context) error { return nil }

	rec := httptest.NewRecorder()
	NewHealthHandler(down, up, "test", "").Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	NewHealthHandler(up, down, "test", "").Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"degraded"`)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/appointments/"+uuid.NewString(), "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, CodeUnauthorized, decodeError(t, rec).ErrorCode)

	rec = env.do(t, http.MethodGet, "/appointments/"+uuid.NewString(), "not-a-token", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other := auth.NewTokens("other-secret", time.Hour)
	forged, _, err := other.Issue(staff())
	require.NoError(t, err)
	rec = env.do(t, http.MethodGet, "/appointments/"+uuid.NewString(), forged, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeactivatedUserIsRejected(t *testing.T) {
	env := newTestEnv(t)
	env.clinics.authErr = clinic.ErrInvalidCredentials

	rec := env.do(t, http.MethodGet, "/appointments/"+uuid.NewString(), env.token(t, staff()), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClinicRoutesAreAdminOnly(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/clinics", env.token(t, staff()), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, CodeForbidden, decodeError(t, rec).ErrorCode)

	admin := staff()
	admin.Role = string(clinic.RoleAdmin)
	rec = env.do(t, http.MethodGet, "/clinics", env.token(t, admin), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var list []ClinicResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestLoginIssuesToken(t *testing.T) {
	env := newTestEnv(t)
	env.clinics.user = &clinic.User{
		ID: uuid.New(), ClinicID: uuid.New(), Name: "Asha", Phone: "9000000001",
		Role: clinic.RoleVet, IsActive: true,
	}

	rec := env.do(t, http.MethodPost, "/auth/login", "", `{"phone":"9000000001","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	p, err := env.tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, env.clinics.user.ID, p.UserID)
	assert.Equal(t, env.clinics.user.ClinicID, p.ClinicID)
	assert.Equal(t, "vet", p.Role)

	rec = env.do(t, http.MethodPost, "/auth/login", "", `{"phone":"9000000001","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginIsRateLimited(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 3; i++ {
		rec := env.do(t, http.MethodPost, "/auth/login", "", `{"phone":"1","password":"x"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := env.do(t, http.MethodPost, "/auth/login", "", `{"phone":"1","password":"x"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, CodeRateLimited, decodeError(t, rec).ErrorCode)
}

func TestLoginRejectsMalformedBody(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/login", "", `{"phone":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeInvalidBody, decodeError(t, rec).ErrorCode)
}

const bookingBody = `{
	"pet_id": "6f1c1d52-56a7-4b52-9b7e-1f1d0c8c3a01",
	"vet_id": "0b9a4cde-6f0e-4f5e-8b6a-3c2d1e0f9a02",
	"appointment_date": "2026-03-10",
	"start_time": "10:00",
	"end_time": "10:30"
}`

func TestCreateAppointmentUsesCallerClinic(t *testing.T) {
	env := newTestEnv(t)
	p := staff()

	rec := env.do(t, http.MethodPost, "/appointments", env.token(t, p), bookingBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, p.ClinicID, env.appointments.bookedFor)
	assert.Equal(t, clock.At(10, 0, 0), env.appointments.booked.StartTime)

	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2026-03-10", resp.AppointmentDate)
	assert.Equal(t, "10:00", resp.StartTime)
}

func TestCreateAppointmentOverlapConflict(t *testing.T) {
	env := newTestEnv(t)
	conflictID := uuid.New()
	env.appointments.bookErr = &appointment.OverlapError{Conflicts: []appointment.Conflict{{
		AppointmentID: conflictID,
		VetName:       "Dr. Rao",
		PetName:       "Bruno",
		StartTime:     clock.At(9, 45, 0),
		EndTime:       clock.At(10, 15, 0),
	}}}

	rec := env.do(t, http.MethodPost, "/appointments", env.token(t, staff()), bookingBody)
	require.Equal(t, http.StatusConflict, rec.Code)

	resp := decodeError(t, rec)
	assert.Equal(t, CodeOverlapDetected, resp.ErrorCode)
	require.Len(t, resp.Conflicts, 1)
	assert.Equal(t, conflictID, resp.Conflicts[0].AppointmentID)
	assert.Equal(t, "09:45", resp.Conflicts[0].StartTime)
	assert.Equal(t, "10:15", resp.Conflicts[0].EndTime)
	assert.Equal(t, "Dr. Rao", resp.Conflicts[0].VetName)
}

func TestCreateAppointmentOverrideErrors(t *testing.T) {
	env := newTestEnv(t)

	env.appointments.bookErr = appointment.ErrOverrideConfirmationRequired
	rec := env.do(t, http.MethodPost, "/appointments", env.token(t, staff()), bookingBody)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodeOverrideConfirmation, decodeError(t, rec).ErrorCode)

	env.appointments.bookErr = appointment.ErrScheduleBusy
	rec = env.do(t, http.MethodPost, "/appointments", env.token(t, staff()), bookingBody)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodeScheduleBusy, decodeError(t, rec).ErrorCode)
}

func TestCreateAppointmentInvalidFields(t *testing.T) {
	env := newTestEnv(t)

	body := `{"appointment_date":"10/03/2026","start_time":"25:00"}`
	rec := env.do(t, http.MethodPost, "/appointments", env.token(t, staff()), body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeError(t, rec)
	assert.Equal(t, CodeValidation, resp.ErrorCode)
	assert.Equal(t, "invalid_date", resp.Fields["appointment_date"])
	assert.Equal(t, "invalid_time", resp.Fields["start_time"])
	assert.Equal(t, "required", resp.Fields["end_time"])
	assert.Nil(t, env.appointments.booked)
}

func TestGetAppointmentErrors(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, staff())

	rec := env.do(t, http.MethodGet, "/appointments/not-a-uuid", tok, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.appointments.getErr = appointment.ErrAppointmentNotFound
	rec = env.do(t, http.MethodGet, "/appointments/"+uuid.NewString(), tok, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, decodeError(t, rec).ErrorCode)

	env.appointments.getErr = errors.New("connection reset")
	rec = env.do(t, http.MethodGet, "/appointments/"+uuid.NewString(), tok, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, CodeInternal, resp.ErrorCode)
	assert.NotContains(t, resp.Message, "connection reset")
}

func TestFindOverlapsValidatesRange(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, staff())
	vet := uuid.NewString()

	rec := env.do(t, http.MethodGet, "/appointments/overlaps?vet_id="+vet+"&date=2026-03-10&start_time=11:00&end_time=10:00", tok, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "must_be_after_start_time", decodeError(t, rec).Fields["end_time"])

	rec = env.do(t, http.MethodGet, "/appointments/overlaps?date=2026-03-10&start_time=10:00&end_time=11:00", tok, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "required", decodeError(t, rec).Fields["vet_id"])
	assert.Zero(t, env.appointments.overlapHit)

	rec = env.do(t, http.MethodGet, "/appointments/overlaps?vet_id="+vet+"&date=2026-03-10&start_time=10:00&end_time=11:00", tok, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.appointments.overlapHit)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestInvoiceTransitionErrors(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, staff())
	path := "/invoices/" + uuid.NewString()
	body := `{"pet_id":"` + uuid.NewString() + `","total_amount":"100.00","status":"paid"}`

	env.invoices.updateErr = invoice.ErrInvalidStatusTransition
	rec := env.do(t, http.MethodPut, path, tok, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeInvalidTransition, decodeError(t, rec).ErrorCode)

	env.invoices.updateErr = invoice.ErrInvoiceChanged
	rec = env.do(t, http.MethodPut, path, tok, body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodeInvoiceChanged, decodeError(t, rec).ErrorCode)
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestLocalRateLimiterWindow(t *testing.T) {
	rl := NewLocalRateLimiter(2, time.Minute)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	for _, want := range []bool{true, true, false} {
		ok, err := rl.Hit(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, want, ok)
	}
	ok, _ := rl.Hit(ctx, "b")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	ok, _ = rl.Hit(ctx, "a")
	assert.True(t, ok)
}

func TestLocalRateLimiterSweepsExpiredWindows(t *testing.T) {
	rl := NewLocalRateLimiter(2, time.Minute)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		_, err := rl.Hit(ctx, fmt.Sprintf("10.0.0.%d", i))
		require.NoError(t, err)
	}
	assert.Len(t, rl.windows, 100)

	now = now.Add(time.Minute)
	_, err := rl.Hit(ctx, "10.0.1.1")
	require.NoError(t, err)
	assert.Len(t, rl.windows, 1)
}

func TestClientKey(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 192.0.2.1 ", ""})
	require.NoError(t, err)

	tests := []struct {
		name    string
		proxies TrustedProxies
		remote  string
		xff     string
		want    string
	}{
		{"no proxies ignores header", nil, "203.0.113.7:5000", "198.51.100.1", "203.0.113.7"},
		{"untrusted sender ignores header", proxies, "203.0.113.7:5000", "198.51.100.1", "203.0.113.7"},
		{"trusted sender", proxies, "192.0.2.1:5000", "198.51.100.1", "198.51.100.1"},
		{"spoofed leftmost hop", proxies, "10.1.1.1:5000", "6.6.6.6, 198.51.100.1, 10.2.2.2", "198.51.100.1"},
		{"all hops trusted", proxies, "10.1.1.1:5000", "10.3.3.3", "10.1.1.1"},
		{"malformed hop", proxies, "10.1.1.1:5000", "not-an-ip", "10.1.1.1"},
		{"no header", proxies, "10.1.1.1:5000", "", "10.1.1.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, tt.proxies.ClientKey(req))
		})
	}
}

func TestParseTrustedProxiesRejectsGarbage(t *testing.T) {
	_, err := ParseTrustedProxies([]string{"10.0.0.0/99"})
	assert.Error(t, err)
	_, err = ParseTrustedProxies([]string{"proxy.local"})
	assert.Error(t, err)
}

func TestLoginLimitIgnoresForwardedForFromClients(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"phone":"1","password":"x"}`))
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"phone":"1","password":"x"}`))
	req.Header.Set("X-Forwarded-For", "198.51.100.99")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRedisRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	rl := NewRedisRateLimiter(rdb, 2, time.Minute, "login")
	ctx := context.Background()

	for _, want := range []bool{true, true, false} {
		ok, err := rl.Hit(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, want, ok)
	}
	assert.True(t, mr.Exists("login:10.0.0.1"))

	mr.FastForward(time.Minute)
	ok, err := rl.Hit(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
}
