package connect

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joshua-takyi/bookings/internal/calendar"
	"github.com/joshua-takyi/bookings/internal/config"
	"github.com/joshua-takyi/bookings/internal/events"
	"github.com/supabase-community/supabase-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// supabase init
func InitSupabase(cfg *config.Config) (*supabase.Client, error) {
	client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}
	return client, nil
}

// mongo init

func MongoDBConnect(ctx context.Context, cfg *config.Config) (*mongo.Client, error) {
	fullURI := strings.Replace(cfg.MongoDBURI, "<password>", cfg.MongoDBPassword, 1)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(fullURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

func MongoDBDisconnect(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect MongoDB: %w", err)
	}
	return nil
}

// NatsConnect returns a no-op publisher when NATS_URL is not set.
func NatsConnect(cfg *config.Config, logger *slog.Logger) (events.Publisher, func(), error) {
	if cfg.NatsURL == "" {
		logger.Info("NATS_URL not set, notification events are not published")
		return events.Noop{}, func() {}, nil
	}
	pub, err := events.NewNatsPublisher(cfg.NatsURL, logger)
	if err != nil {
		return nil, nil, err
	}
	return pub, pub.Close, nil
}

// GoogleCalendarConnect uses service-account credentials for CALENDAR_ID. Without a
// calendar id the calendar is disabled.
func GoogleCalendarConnect(ctx context.Context, cfg *config.Config, recorder calendar.DegradationRecorder, logger *slog.Logger) (calendar.Calendar, error) {
	if cfg.CalendarID == "" {
		logger.Info("CALENDAR_ID not set, external calendar disabled")
		return calendar.Disabled{}, nil
	}
	cal, err := calendar.NewGoogleCalendar(ctx, calendar.GoogleConfig{
		CalendarID: cfg.CalendarID,
		Location:   cfg.Location,
		Logger:     logger,
		Recorder:   recorder,
	},
		option.WithCredentialsFile(cfg.GoogleCredentialsFile),
		option.WithScopes(gcal.CalendarScope),
	)
	if err != nil {
		return nil, err
	}
	return cal, nil
}
