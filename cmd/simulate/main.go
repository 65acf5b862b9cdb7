package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/rs/zerolog"

	"github.com/hackgods/hospital-channeling/internal/appointment"
	"github.com/hackgods/hospital-channeling/internal/client"
	"github.com/hackgods/hospital-channeling/internal/config"
	"github.com/hackgods/hospital-channeling/internal/logging"
)

type SimConfig struct {
	Client       config.ClientConfig
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	ConfirmRatio float64
	ReadRatio    float64
	DoctorID     string
	Date         string
	UserID       string
}

// DataPool holds the appointments created during the run.
type DataPool struct {
	mu           sync.RWMutex
	appointments []*client.Appointment
}

func (dp *DataPool) AddAppointment(a *client.Appointment) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, a)
}

func (dp *DataPool) GetRandomAppointment(rng *rand.Rand) (*client.Appointment, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return nil, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[percentileIndex(len(latencies), 50)]
	p95 = latencies[percentileIndex(len(latencies), 95)]

	return avg, min, max, p50, p95
}

func percentileIndex(n, p int) int {
	idx := n * p / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Metrics struct {
	Booking  OperationMetrics
	Channel  OperationMetrics
	Confirm  OperationMetrics
	ReadByID OperationMetrics
	List     OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	api     *client.Client
	booker  *client.Booker
	logger  zerolog.Logger
	metrics Metrics
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		boot := logging.New(os.Getenv("APP_ENV"), "info")
		boot.Fatal().Err(err).Msg("invalid config")
	}

	logger := logging.New(os.Getenv("APP_ENV"), cfg.Client.LogLevel).With().Str("service", "simulate").Logger()
	logger.Info().
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Str("doctor_id", cfg.DoctorID).
		Str("date", cfg.Date).
		Float64("booking", cfg.BookingRatio).
		Float64("confirm", cfg.ConfirmRatio).
		Float64("read", cfg.ReadRatio).
		Msg("simulator starting")

	api := client.New(cfg.Client.BaseURL,
		client.WithTimeout(cfg.Client.Timeout),
		client.WithLogger(logger),
		client.WithIdentity(cfg.UserID, appointment.RoleAdmin),
	)

	sim := &Simulator{
		config: cfg,
		pool:   &DataPool{},
		api:    api,
		booker: client.NewBooker(api, api, cfg.Client.ChannelRetries, logger),
		logger: logger,
	}

	sim.Run()

	auditCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	duplicates, active, err := sim.Audit(auditCtx)
	if err != nil {
		logger.Error().Err(err).Msg("channel audit failed")
	}

	sim.PrintReport(active, duplicates)
	if duplicates > 0 {
		os.Exit(1)
	}
}

func loadConfig() (SimConfig, error) {
	clientCfg, err := config.LoadClient()
	if err != nil {
		return SimConfig{}, err
	}

	cfg := SimConfig{
		Client:       clientCfg,
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.5),
		ConfirmRatio: getFloat("SIM_CONFIRM_RATIO", 0.2),
		ReadRatio:    getFloat("SIM_READ_RATIO", 0.3),
		DoctorID:     getEnv("SIM_DOCTOR_ID", "DOC-001"),
		Date:         getEnv("SIM_DATE", appointment.DateKey(time.Now().UTC().AddDate(0, 0, 1))),
		UserID:       getEnv("SIM_USER_ID", "simulator"),
	}

	total := cfg.BookingRatio + cfg.ConfirmRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.ConfirmRatio /= total
		cfg.ReadRatio /= total
	}

	if cfg.Workers <= 0 {
		return SimConfig{}, fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return SimConfig{}, fmt.Errorf("SIM_DURATION must be > 0")
	}
	date, err := appointment.NormalizeDate(cfg.Date)
	if err != nil {
		return SimConfig{}, fmt.Errorf("SIM_DATE: %w", err)
	}
	cfg.Date = date

	return cfg, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.logger.Info().Msg("simulation running")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.logger.Info().Msg("simulation complete")
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
				s.doBooking(ctx)
			case r < s.config.BookingRatio+s.config.ConfirmRatio:
				s.doConfirm(ctx, rng)
			default:
				switch rng.Intn(3) {
				case 0:
					s.doReadByID(ctx, rng)
				case 1:
					s.doList(ctx)
				case 2:
					s.doChannel(ctx)
				}
			}
		}
	}
}

func (s *Simulator) doBooking(ctx context.Context) {
	age := gofakeit.Number(1, 90)
	in := appointment.CreateInput{
		DoctorID:        s.config.DoctorID,
		AppointmentDate: s.config.Date,
		PatientName:     gofakeit.Name(),
		PatientNIC:      gofakeit.Numerify("############"),
		PatientPhone:    "07" + gofakeit.Numerify("########"),
		PatientAge:      &age,
	}

	start := time.Now()
	created, err := s.booker.Book(ctx, in)
	latency := time.Since(start)

	if ctx.Err() != nil {
		return
	}
	if err == nil {
		s.pool.AddAppointment(created)
	}
	s.metrics.Booking.Record(latency, err == nil, client.IsKind(err, client.KindConflict))
}

func (s *Simulator) doChannel(ctx context.Context) {
	start := time.Now()
	_, err := s.api.GenerateChannelNo(ctx, s.config.DoctorID, s.config.Date)
	if ctx.Err() != nil {
		return
	}
	s.metrics.Channel.Record(time.Since(start), err == nil, false)
}

func (s *Simulator) doConfirm(ctx context.Context, rng *rand.Rand) {
	appt, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}

	start := time.Now()
	_, err := s.api.UpdateStatus(ctx, appt, appointment.StatusConfirmed)
	if ctx.Err() != nil {
		return
	}
	// The pooled copy stays SCHEDULED, so a repeat pick reaches the store
	// and is rejected there as an invalid transition.
	conflict := client.IsKind(err, client.KindInvalidTransition) || client.IsKind(err, client.KindConflict)
	s.metrics.Confirm.Record(time.Since(start), err == nil, conflict)
}

func (s *Simulator) doReadByID(ctx context.Context, rng *rand.Rand) {
	appt, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}

	start := time.Now()
	_, err := s.api.GetAppointment(ctx, appt.ID)
	if ctx.Err() != nil {
		return
	}
	s.metrics.ReadByID.Record(time.Since(start), err == nil, false)
}

func (s *Simulator) doList(ctx context.Context) {
	start := time.Now()
	_, err := s.api.ListDoctorAppointments(ctx, s.config.DoctorID, client.ListOptions{Date: s.config.Date, Limit: 20})
	if ctx.Err() != nil {
		return
	}
	s.metrics.List.Record(time.Since(start), err == nil, false)
}

// Audit pages through the doctor's active appointments for the simulated day
// and counts channel numbers held by more than one of them.
func (s *Simulator) Audit(ctx context.Context) (duplicates, active int, err error) {
	seen := make(map[int]int)
	opts := client.ListOptions{Date: s.config.Date, Limit: 100, Sort: "channel_no", Order: "asc"}

	for {
		page, err := s.api.ListDoctorAppointments(ctx, s.config.DoctorID, opts)
		if err != nil {
			return 0, 0, err
		}
		for _, a := range page.Items {
			if !a.ActiveStatus {
				continue
			}
			seen[a.ChannelNo]++
			active++
		}
		opts.Offset += len(page.Items)
		if len(page.Items) == 0 || opts.Offset >= page.Total {
			break
		}
	}

	for no, n := range seen {
		if n > 1 {
			s.logger.Error().Int("channel_no", no).Int("holders", n).Msg("duplicate channel number")
			duplicates += n - 1
		}
	}
	return duplicates, active, nil
}

func (s *Simulator) PrintReport(active, duplicates int) {
	fmt.Println("\n" + repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Doctor: %s on %s\n", s.config.DoctorID, s.config.Date)
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Generate channel", &s.metrics.Channel)
	printOperationReport("Confirm", &s.metrics.Confirm)
	printOperationReport("Read by ID", &s.metrics.ReadByID)
	printOperationReport("List by doctor", &s.metrics.List)

	fmt.Printf("Active appointments: %d\n", active)
	fmt.Printf("Duplicate channel numbers: %d\n", duplicates)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	errs := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if errs > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", errs, float64(errs)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

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

func repeat(s string, n int) string {
	return strings.Repeat(s, n)
}
