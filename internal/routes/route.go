package routes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/bookings/internal/container"
	"github.com/joshua-takyi/bookings/internal/handlers"
	"github.com/joshua-takyi/bookings/internal/metrics"
	"github.com/joshua-takyi/bookings/internal/middleware"
)

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(container *container.Container) *gin.Engine {
	if container.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     container.Config.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "Retry-After"},
		AllowCredentials: true,
	}))

	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(container.Logger))
	r.Use(middleware.Metrics(container.Metrics))
	r.Use(middleware.ErrorHandler(container.Logger))
	r.Use(gin.Recovery())

	r.GET("/metrics", gin.WrapH(metrics.Handler(container.Registry)))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "OK",
				"service": "bookings-api",
			})
		})
	}

	auth := middleware.AuthMiddleware(container.Tokens, container.Logger)
	loc := container.Config.Location
	limited := container.RateLimiter.Middleware()

	// availability is public
	public := v1.Group("/schedules")
	{
		public.POST("/calendar", handlers.SchedulesByDate(container.ScheduleService, loc))
		public.POST("/filter-slots", handlers.FilterSlots(container.ScheduleService, loc))
	}

	scheduleRoutes := v1.Group("/schedules", auth)
	{
		scheduleRoutes.POST("", limited, handlers.CreateSchedule(container.ScheduleService))
		scheduleRoutes.GET("", handlers.ListSchedules(container.ScheduleService))
		scheduleRoutes.POST("/date", handlers.SchedulesByDate(container.ScheduleService, loc))
		scheduleRoutes.GET("/:id", handlers.GetSchedule(container.ScheduleService))
		scheduleRoutes.PUT("/:id", handlers.UpdateSchedule(container.ScheduleService))
		scheduleRoutes.DELETE("/:id", handlers.DeleteSchedule(container.ScheduleService))
	}

	bookingRoutes := v1.Group("/booking", auth)
	{
		bookingRoutes.POST("", limited, handlers.CreateBooking(container.BookingService))
		bookingRoutes.GET("", handlers.ListMyBookings(container.BookingService))
		bookingRoutes.GET("/all", middleware.RequireAdmin(), handlers.ListAllBookings(container.BookingService))
		bookingRoutes.POST("/Delete", handlers.DeleteBooking(container.BookingService))
		bookingRoutes.GET("/:scheduleId", handlers.GetBooking(container.BookingService))
		bookingRoutes.PUT("/:scheduleId", handlers.UpdateBooking(container.BookingService))
	}

	notificationRoutes := v1.Group("/notifications", auth)
	{
		notificationRoutes.GET("", handlers.ListNotifications(container.NotificationService))
		notificationRoutes.PATCH("/:id/read", handlers.MarkNotificationRead(container.NotificationService))
	}

	return r
}
