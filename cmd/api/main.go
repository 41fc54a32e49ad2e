package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/medlane/clinic-scheduler/config"
	appointmenthandler "github.com/medlane/clinic-scheduler/internal/handler/appointment"
	clinichandler "github.com/medlane/clinic-scheduler/internal/handler/clinic"
	doctorhandler "github.com/medlane/clinic-scheduler/internal/handler/doctor"
	patienthandler "github.com/medlane/clinic-scheduler/internal/handler/patient"
	"github.com/medlane/clinic-scheduler/internal/repository/postgres"
	"github.com/medlane/clinic-scheduler/internal/router"
	"github.com/medlane/clinic-scheduler/internal/service/access"
	clinicservice "github.com/medlane/clinic-scheduler/internal/service/clinic"
	doctorservice "github.com/medlane/clinic-scheduler/internal/service/doctor"
	patientservice "github.com/medlane/clinic-scheduler/internal/service/patient"
	"github.com/medlane/clinic-scheduler/internal/service/scheduling"
	"github.com/medlane/clinic-scheduler/pkg/auth"
	"github.com/medlane/clinic-scheduler/pkg/locker"
	"github.com/medlane/clinic-scheduler/pkg/logger"
	"github.com/medlane/clinic-scheduler/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logLevel := logger.InfoLevel
	if parsed, err := parseLevel(cfg.Log.Level); err == nil {
		logLevel = parsed
	}
	log := logger.NewLogger(&logger.Config{
		Level:      logLevel,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Pretty:     cfg.Log.Pretty,
	})

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	loc, err := cfg.Scheduling.Location()
	if err != nil {
		log.Fatal(err, "invalid scheduling timezone")
	}

	m := metrics.NewMetrics("clinic_scheduler")
	go samplePoolStats(db, m)

	// Repositories
	clinicRepo := postgres.NewClinicRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	userRepo := postgres.NewUserRepository(db)

	// The redis lock makes check-then-write safe across instances; a
	// single instance runs fine on the in-process locker.
	var locks locker.Locker
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal(err, "invalid redis url")
		}
		locks = locker.NewRedisLocker(redis.NewClient(opts), "doctor-lock")
		log.Info("using redis doctor locks")
	} else {
		locks = locker.NewMemoryLocker()
	}

	// Services
	gate := access.NewService(userRepo)
	clinicSvc := clinicservice.NewService(clinicRepo, log)
	doctorSvc := doctorservice.NewService(doctorRepo, clinicRepo, log)
	patientSvc := patientservice.NewService(patientRepo, clinicRepo, log)
	schedulingSvc := scheduling.NewService(
		appointmentRepo,
		doctorRepo,
		patientRepo,
		gate,
		locks,
		scheduling.Config{
			DefaultDuration: cfg.Scheduling.DefaultDuration,
			Timezone:        loc,
			StoreTimeout:    cfg.Scheduling.StoreTimeout,
			IdempotencyTTL:  cfg.Scheduling.IdempotencyTTL,
		},
		log,
		m,
	)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, router.JWTExpiry(cfg))

	engine := router.Setup(cfg, db, jwtService, m, router.Handlers{
		Clinic:      clinichandler.NewHandler(clinicSvc),
		Doctor:      doctorhandler.NewHandler(doctorSvc),
		Patient:     patienthandler.NewHandler(patientSvc),
		Appointment: appointmenthandler.NewHandler(schedulingSvc),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "forced shutdown")
	}
	log.Info("server stopped")
}

// samplePoolStats keeps the connection gauge in step with the pool.
func samplePoolStats(db *sqlx.DB, m *metrics.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		m.DatabaseConnections.Set(float64(db.Stats().OpenConnections))
	}
}

func parseLevel(s string) (logger.Level, error) {
	switch s {
	case "debug":
		return logger.DebugLevel, nil
	case "info", "":
		return logger.InfoLevel, nil
	case "warn":
		return logger.WarnLevel, nil
	case "error":
		return logger.ErrorLevel, nil
	default:
		return logger.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}
