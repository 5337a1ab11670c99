package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
	"gorm.io/gorm"

	"rental-backend/config"
	"rental-backend/controllers"
	"rental-backend/events"
	"rental-backend/routes"
	"rental-backend/services"
	"rental-backend/utils"
)

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// app holds the wired router and everything that needs closing on exit.
type app struct {
	Router    *gin.Engine
	publisher events.Publisher
	mongo     *mongo.Client
	log       *zap.Logger
}

func (a *app) Close() {
	if err := a.publisher.Close(); err != nil {
		a.log.Warn("close publisher", zap.Error(err))
	}
	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.mongo.Disconnect(ctx); err != nil {
			a.log.Warn("disconnect mongo", zap.Error(err))
		}
	}
}

func buildPublisher(s config.Settings, log *zap.Logger) events.Publisher {
	if s.AMQPURL == "" {
		return events.NopPublisher{}
	}
	amqpPub, err := events.NewAMQPPublisher(s.AMQPURL, s.AMQPExchange)
	if err != nil {
		log.Warn("⚠️ broker unavailable, events disabled", zap.Error(err))
		return events.NopPublisher{}
	}
	log.Info("✅ Connected to RabbitMQ", zap.String("exchange", s.AMQPExchange))
	return events.NewAsync(amqpPub, 256, log.Named("events"))
}

func buildGateway(s config.Settings) (services.PaymentGateway, error) {
	switch strings.ToLower(s.PaymentGateway) {
	case "", "simulated":
		return services.SimulatedGateway{}, nil
	case "omise":
		return services.NewOmiseGateway(s.OmisePublicKey, s.OmiseSecretKey, s.PaymentCurrency)
	}
	return nil, fmt.Errorf("unsupported PAYMENT_GATEWAY %q", s.PaymentGateway)
}

func buildVerifier(s config.Settings, db *gorm.DB, log *zap.Logger) (services.VerificationProvider, error) {
	switch strings.ToLower(s.OTPProvider) {
	case "", "code":
		return services.NewCodeVerifier(db, services.LogNotifier{Log: log.Named("sms")}), nil
	case "static":
		return &services.StaticCodeVerifier{DB: db, Code: services.DefaultStaticCode}, nil
	}
	return nil, fmt.Errorf("unsupported OTP_PROVIDER %q", s.OTPProvider)
}

func oauthProviders(s config.Settings) map[string]services.OAuthProvider {
	providers := map[string]services.OAuthProvider{}
	if s.GoogleClientID == "" || s.GoogleClientSecret == "" {
		return providers
	}
	redirect := s.GoogleRedirectURL
	if redirect == "" {
		redirect = strings.TrimRight(s.PublicBaseURL, "/") + "/api/auth/oauth/google/callback"
	}
	providers["google"] = services.OAuthProvider{
		Config: &oauth2.Config{
			ClientID:     s.GoogleClientID,
			ClientSecret: s.GoogleClientSecret,
			RedirectURL:  redirect,
			Endpoint:     endpoints.Google,
			Scopes:       []string{"openid", "email", "profile"},
		},
		UserInfoURL: googleUserInfoURL,
	}
	return providers
}

func buildApp(ctx context.Context, s config.Settings, db *gorm.DB, log *zap.Logger) (*app, error) {
	a := &app{publisher: buildPublisher(s, log), log: log}

	var (
		storage services.ImageStorage
		images  *controllers.ImageController
	)
	switch strings.ToLower(s.StorageDriver) {
	case "", "local":
		storage = services.NewLocalStorage(s.UploadDir, s.PublicBaseURL)
	case "gridfs":
		if s.MongoURI == "" {
			return nil, fmt.Errorf("gridfs storage selected but MONGO_URI is empty")
		}
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(s.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		if err := client.Ping(connectCtx, nil); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("mongo ping: %w", err)
		}
		a.mongo = client
		grid, err := services.NewGridFSStorage(client.Database(s.MongoDB), s.PublicBaseURL)
		if err != nil {
			return nil, err
		}
		storage = grid
		images = controllers.NewImageController(grid)
		log.Info("✅ Connected to MongoDB GridFS", zap.String("db", s.MongoDB))
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", s.StorageDriver)
	}

	gateway, err := buildGateway(s)
	if err != nil {
		return nil, err
	}
	verifier, err := buildVerifier(s, db, log)
	if err != nil {
		return nil, err
	}

	mailer := &utils.Mailer{
		Host:     s.SMTPHost,
		Port:     s.SMTPPort,
		Username: s.SMTPUsername,
		Password: s.SMTPPassword,
		FromName: s.SMTPFromName,
		Log:      log.Named("mail"),
	}

	sessions := services.NewSessionService(db, services.SessionConfig{
		JWTSecret:   s.JWTSecret,
		TTL:         s.JWTTTL(),
		FrontendURL: s.FrontendURL,
		Providers:   oauthProviders(s),
	}, mailer, a.publisher, log.Named("auth"))

	listingSvc := services.NewListingService(db, storage, a.publisher, log.Named("listings"))
	bookingSvc := services.NewBookingService(db, gateway, a.publisher, log.Named("bookings"))
	bookingSvc.Currency = s.PaymentCurrency
	favoriteSvc := services.NewFavoriteService(db)

	h := routes.Handlers{
		Auth:      controllers.NewAuthController(sessions, verifier, s.FrontendURL, s.Env == "production"),
		Listings:  controllers.NewListingController(listingSvc, services.NewSearchService(db)),
		Bookings:  controllers.NewBookingController(bookingSvc),
		Favorites: controllers.NewFavoriteController(favoriteSvc),
		Dashboard: controllers.NewDashboardController(services.NewDashboardService(listingSvc, bookingSvc, favoriteSvc)),
		Contact:   controllers.NewContactController(services.NewContactService(db)),
		Images:    images,
	}

	opts := routes.Options{
		CORSOrigins:    s.CORSOrigins,
		RequestTimeout: s.RequestTimeout,
		Log:            log,
	}
	if images == nil {
		opts.UploadDir = s.UploadDir
	}
	a.Router = routes.SetupRouter(h, sessions, opts)
	return a, nil
}
