package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hackgods/vet-clinic/internal/api"
	"github.com/hackgods/vet-clinic/internal/appointment"
	"github.com/hackgods/vet-clinic/internal/clock"
	"github.com/hackgods/vet-clinic/internal/config"
	"github.com/hackgods/vet-clinic/internal/db"
	"github.com/hackgods/vet-clinic/internal/logging"
)

// SimConfig drives a contention run: many workers booking overlapping
// visits for the same few vets on one day.
type SimConfig struct {
	APIBaseURL    string
	Phone         string
	Password      string
	Duration      time.Duration
	Workers       int
	BookingRatio  float64
	OverrideRatio float64
	ReadRatio     float64
	VetLimit      int
	PetLimit      int
	DayOffset     int
	PostgresDSN   string
}

type DataPool struct {
	ClinicID uuid.UUID
	Vets     []uuid.UUID
	Pets     []uuid.UUID
	Date     time.Time
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Busy      int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

type outcome int

const (
	outcomeError outcome = iota
	outcomeSuccess
	outcomeConflict
	outcomeBusy
)

func (om *OperationMetrics) Record(latency time.Duration, o outcome) {
	atomic.AddInt64(&om.Total, 1)
	switch o {
	case outcomeSuccess:
		atomic.AddInt64(&om.Success, 1)
	case outcomeConflict:
		atomic.AddInt64(&om.Conflict, 1)
	case outcomeBusy:
		atomic.AddInt64(&om.Busy, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95, max time.Duration) {
	om.mu.Lock()
	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	om.mu.Unlock()

	if len(latencies) == 0 {
		return 0, 0, 0, 0
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	pick := func(pct int) time.Duration {
		idx := len(latencies) * pct / 100
		if idx >= len(latencies) {
			idx = len(latencies) - 1
		}
		return latencies[idx]
	}
	return sum / time.Duration(len(latencies)), pick(50), pick(95), latencies[len(latencies)-1]
}

type Metrics struct {
	Booking   OperationMetrics
	Override  OperationMetrics
	Precheck  OperationMetrics
	ListByDay OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	token   string
	logger  *zap.Logger
	metrics Metrics
}

func main() {
	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := logging.New(logging.ConfigFor("development", "info"))
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("simulator starting",
		zap.Duration("duration", cfg.Duration),
		zap.Int("workers", cfg.Workers),
		zap.Float64("booking", cfg.BookingRatio),
		zap.Float64("override", cfg.OverrideRatio),
		zap.Float64("read", cfg.ReadRatio),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}

	clinicID, err := sim.login(ctx)
	if err != nil {
		logger.Fatal("login", zap.Error(err))
	}

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, 0)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pgPool.Close()

	sim.pool, err = loadDataPool(ctx, pgPool, clinicID, cfg)
	if err != nil {
		logger.Fatal("load data pool", zap.Error(err))
	}
	logger.Info("loaded data pool",
		zap.Int("vets", len(sim.pool.Vets)),
		zap.Int("pets", len(sim.pool.Pets)),
		zap.String("date", clock.FormatDate(sim.pool.Date)),
	)

	sim.Run()
	sim.PrintReport()

	if cfg.OverrideRatio == 0 {
		if err := sim.verify(context.Background(), appointment.NewPgRepository(pgPool)); err != nil {
			logger.Fatal("schedule check failed", zap.Error(err))
		}
		logger.Info("schedule check passed: no vet has overlapping appointments")
	}
}

func loadConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	cfg := SimConfig{
		APIBaseURL:    getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Phone:         os.Getenv("SIM_PHONE"),
		Password:      os.Getenv("SIM_PASSWORD"),
		Duration:      getDuration("SIM_DURATION", 30*time.Second),
		Workers:       getInt("SIM_WORKERS", 10),
		BookingRatio:  getFloat("SIM_BOOKING_RATIO", 0.6),
		OverrideRatio: getFloat("SIM_OVERRIDE_RATIO", 0),
		ReadRatio:     getFloat("SIM_READ_RATIO", 0.4),
		VetLimit:      getInt("SIM_VET_LIMIT", 2),
		PetLimit:      getInt("SIM_PET_LIMIT", 200),
		DayOffset:     getInt("SIM_DAY_OFFSET", 30),
		PostgresDSN:   baseCfg.PostgresDSN,
	}

	// Normalize ratios
	total := cfg.BookingRatio + cfg.OverrideRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.OverrideRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Phone == "" || cfg.Password == "" {
		return fmt.Errorf("SIM_PHONE and SIM_PASSWORD are required")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	return nil
}

// login fetches a token and returns the caller's clinic.
func (s *Simulator) login(ctx context.Context) (uuid.UUID, error) {
	body, _ := json.Marshal(map[string]string{"phone": s.config.Phone, "password": s.config.Password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return uuid.Nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return uuid.Nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return uuid.Nil, fmt.Errorf("login returned %d", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
		User  struct {
			ClinicID uuid.UUID `json:"clinic_id"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return uuid.Nil, fmt.Errorf("decode login response: %w", err)
	}
	s.token = out.Token
	return out.User.ClinicID, nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, clinicID uuid.UUID, cfg SimConfig) (*DataPool, error) {
	dp := &DataPool{
		ClinicID: clinicID,
		Date:     clock.DateOf(time.Now()).AddDate(0, 0, cfg.DayOffset),
	}

	var err error
	dp.Vets, err = loadIDs(ctx, pool, `
		SELECT id FROM users
		WHERE clinic_id = $1 AND role = 'vet' AND is_active AND deleted_at IS NULL
		LIMIT $2
	`, clinicID, cfg.VetLimit)
	if err != nil {
		return nil, fmt.Errorf("load vets: %w", err)
	}
	dp.Pets, err = loadIDs(ctx, pool, `
		SELECT id FROM pets
		WHERE clinic_id = $1 AND deleted_at IS NULL
		LIMIT $2
	`, clinicID, cfg.PetLimit)
	if err != nil {
		return nil, fmt.Errorf("load pets: %w", err)
	}

	if len(dp.Vets) == 0 {
		return nil, fmt.Errorf("no vets loaded")
	}
	if len(dp.Pets) == 0 {
		return nil, fmt.Errorf("no pets loaded")
	}
	return dp, nil
}

func loadIDs(ctx context.Context, pool *pgxpool.Pool, query string, args ...any) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.logger.Info("starting simulation")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.logger.Info("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < s.config.BookingRatio:
				s.doBooking(ctx, rng, false)
			case r < s.config.BookingRatio+s.config.OverrideRatio:
				s.doBooking(ctx, rng, true)
			case rng.Intn(2) == 0:
				s.doPrecheck(ctx, rng)
			default:
				s.doListByDay(ctx, rng)
			}
		}
	}
}

// randomVisit picks a vet and a 15 to 60 minute window on a quarter hour
// between 09:00 and 18:00.
func (s *Simulator) randomVisit(rng *rand.Rand) (uuid.UUID, clock.TimeOfDay, clock.TimeOfDay) {
	vet := s.pool.Vets[rng.Intn(len(s.pool.Vets))]
	start := clock.At(9, 0, 0) + clock.TimeOfDay(rng.Intn(32)*15*60)
	end := start + clock.TimeOfDay((rng.Intn(4)+1)*15*60)
	return vet, start, end
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand, override bool) {
	vet, start, end := s.randomVisit(rng)

	reqBody := map[string]any{
		"pet_id":           s.pool.Pets[rng.Intn(len(s.pool.Pets))].String(),
		"vet_id":           vet.String(),
		"appointment_date": clock.FormatDate(s.pool.Date),
		"start_time":       start.Short(),
		"end_time":         end.Short(),
	}
	if override {
		reqBody["allow_overlap"] = true
		reqBody["confirm_override"] = "yes"
	}
	body, _ := json.Marshal(reqBody)

	res, latency, err := s.send(ctx, http.MethodPost, "/appointments", body)
	m := &s.metrics.Booking
	if override {
		m = &s.metrics.Override
	}
	m.Record(latency, classifyBooking(res, err))
}

// classifyBooking separates overlap rejections from lock timeouts so busy
// schedules are not reported as conflicts.
func classifyBooking(res response, err error) outcome {
	switch {
	case err != nil:
		return outcomeError
	case res.status == http.StatusCreated:
		return outcomeSuccess
	case res.status == http.StatusConflict && res.code == api.CodeScheduleBusy:
		return outcomeBusy
	case res.status == http.StatusConflict:
		return outcomeConflict
	default:
		return outcomeError
	}
}

func okOutcome(res response, err error) outcome {
	if err == nil && res.status == http.StatusOK {
		return outcomeSuccess
	}
	return outcomeError
}

func (s *Simulator) doPrecheck(ctx context.Context, rng *rand.Rand) {
	vet, start, end := s.randomVisit(rng)
	path := fmt.Sprintf("/appointments/overlaps?vet_id=%s&date=%s&start_time=%s&end_time=%s",
		vet, clock.FormatDate(s.pool.Date), start.Short(), end.Short())

	res, latency, err := s.send(ctx, http.MethodGet, path, nil)
	s.metrics.Precheck.Record(latency, okOutcome(res, err))
}

func (s *Simulator) doListByDay(ctx context.Context, rng *rand.Rand) {
	vet := s.pool.Vets[rng.Intn(len(s.pool.Vets))]
	path := fmt.Sprintf("/appointments?vet_id=%s&date=%s", vet, clock.FormatDate(s.pool.Date))

	res, latency, err := s.send(ctx, http.MethodGet, path, nil)
	s.metrics.ListByDay.Record(latency, okOutcome(res, err))
}

type response struct {
	status int
	code   string
}

func (s *Simulator) send(ctx context.Context, method, path string, body []byte) (response, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return response{}, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return response{}, latency, err
	}
	defer resp.Body.Close()

	res := response{status: resp.StatusCode}
	if resp.StatusCode >= http.StatusBadRequest {
		var e api.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&e) == nil {
			res.code = e.ErrorCode
		}
	}
	// drain so the keep-alive connection is reused
	_, _ = io.Copy(io.Discard, resp.Body)
	return res, latency, nil
}

// verify reloads each vet's day and fails if any two live appointments
// overlap. Only meaningful when no overrides were sent.
func (s *Simulator) verify(ctx context.Context, repo *appointment.PgRepository) error {
	for _, vet := range s.pool.Vets {
		appts, err := repo.ListVetDayCandidates(ctx, s.pool.ClinicID, vet, s.pool.Date, nil)
		if err != nil {
			return err
		}
		for _, a := range appts {
			id := a.ID
			if clash := appointment.FilterOverlaps(appts, a.StartTime, a.EndTime, &id); len(clash) > 0 {
				return fmt.Errorf("vet %s: appointment %s overlaps %s", vet, a.ID, clash[0].ID)
			}
		}
		s.logger.Info("vet schedule", zap.Stringer("vet_id", vet), zap.Int("appointments", len(appts)))
	}
	return nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Day: %s, vets: %d\n", clock.FormatDate(s.pool.Date), len(s.pool.Vets))
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Override booking", &s.metrics.Override)
	printOperationReport("Overlap pre-check", &s.metrics.Precheck)
	printOperationReport("List by vet and day", &s.metrics.ListByDay)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	busy := atomic.LoadInt64(&om.Busy)
	failed := atomic.LoadInt64(&om.Error)

	avg, p50, p95, max := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if busy > 0 {
		fmt.Printf("  Busy: %d (%.1f%%)\n", busy, float64(busy)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s p50=%s p95=%s max=%s\n",
		avg.Round(time.Millisecond), p50.Round(time.Millisecond),
		p95.Round(time.Millisecond), max.Round(time.Millisecond))
	fmt.Println()
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
