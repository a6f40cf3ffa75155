package container

import (
	"log/slog"

	"github.com/joshua-takyi/bookings/internal/calendar"
	"github.com/joshua-takyi/bookings/internal/config"
	"github.com/joshua-takyi/bookings/internal/events"
	"github.com/joshua-takyi/bookings/internal/helpers"
	"github.com/joshua-takyi/bookings/internal/metrics"
	"github.com/joshua-takyi/bookings/internal/middleware"
	"github.com/joshua-takyi/bookings/internal/models"
	"github.com/joshua-takyi/bookings/internal/services"
	"github.com/prometheus/client_golang/prometheus"
)

// Container holds all application dependencies
type Container struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Collector

	Tokens      *helpers.TokenValidator
	RateLimiter *middleware.RateLimiter

	ScheduleService     *services.ScheduleService
	PaymentService      *services.PaymentService
	SessionService      *services.SessionService
	NotificationService *services.NotificationService
	BookingService      *services.BookingService
}

// Deps are the connected backends the services are built on.
type Deps struct {
	Store     *models.MongodbRepo
	Users     models.UserDirectory
	Calendar  calendar.Calendar
	Publisher events.Publisher
	Tokens    *helpers.TokenValidator
	Registry  *prometheus.Registry
	Metrics   *metrics.Collector
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config, logger *slog.Logger, deps Deps) *Container {
	notificationService := services.NewNotificationService(deps.Store, deps.Publisher, deps.Metrics, logger)
	scheduleService := services.NewScheduleService(deps.Store, deps.Calendar, notificationService, cfg.Location, logger)
	paymentService := services.NewPaymentService(deps.Store, notificationService, logger)
	sessionService := services.NewSessionService(deps.Store)

	bookingService := services.NewBookingService(
		scheduleService,
		paymentService,
		sessionService,
		deps.Users,
		deps.Calendar,
		deps.Metrics,
		logger,
		services.BookingConfig{
			CompensateOnFailure: cfg.CompensateOnFailure,
			EventLocation:       cfg.CalendarEventLocation,
			Location:            cfg.Location,
		},
	)

	return &Container{
		Config:              cfg,
		Logger:              logger,
		Registry:            deps.Registry,
		Metrics:             deps.Metrics,
		Tokens:              deps.Tokens,
		RateLimiter:         middleware.NewRateLimiter(middleware.PerMinute(cfg.RateLimitPerMinute), logger),
		ScheduleService:     scheduleService,
		PaymentService:      paymentService,
		SessionService:      sessionService,
		NotificationService: notificationService,
		BookingService:      bookingService,
	}
}

func (c *Container) Close() {
	c.RateLimiter.Stop()
	if c.Tokens != nil {
		c.Tokens.Close()
	}
}
