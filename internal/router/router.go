package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medlane/clinic-scheduler/config"
	"github.com/medlane/clinic-scheduler/internal/handler"
	appointmenthandler "github.com/medlane/clinic-scheduler/internal/handler/appointment"
	clinichandler "github.com/medlane/clinic-scheduler/internal/handler/clinic"
	doctorhandler "github.com/medlane/clinic-scheduler/internal/handler/doctor"
	patienthandler "github.com/medlane/clinic-scheduler/internal/handler/patient"
	"github.com/medlane/clinic-scheduler/internal/middleware"
	"github.com/medlane/clinic-scheduler/pkg/auth"
	"github.com/medlane/clinic-scheduler/pkg/metrics"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Clinic      *clinichandler.Handler
	Doctor      *doctorhandler.Handler
	Patient     *patienthandler.Handler
	Appointment *appointmenthandler.Handler
}

// Setup builds the gin engine with the full middleware chain and all routes.
func Setup(cfg *config.Config, db *sqlx.DB, jwtService *auth.JWTService, m *metrics.Metrics, h Handlers) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Metrics(m))
	r.Use(middleware.Timeout(cfg.Server.WriteTimeout))
	if cfg.RateLimit.Enabled {
		rl := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		r.Use(rl.RateLimit())
	}

	handler.NewHealthHandler(db).RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	v1 := r.Group("/api/v1")
	v1.Use(authMiddleware.Authenticate())
	{
		h.Clinic.RegisterRoutes(v1)
		h.Doctor.RegisterRoutes(v1)
		h.Patient.RegisterRoutes(v1)
		h.Appointment.RegisterRoutes(v1)
	}

	return r
}

// JWTExpiry converts the configured expiry hours to a duration, with a
// sane floor so a zero config never mints already-expired tokens.
func JWTExpiry(cfg *config.Config) time.Duration {
	if cfg.JWT.ExpiryHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(cfg.JWT.ExpiryHours) * time.Hour
}
