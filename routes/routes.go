package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rental-backend/controllers"
	"rental-backend/middleware"
	"rental-backend/models"
)

// Options controls the parts of the router that depend on configuration.
type Options struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
	// UploadDir is served at /uploads when set (local image storage).
	UploadDir string
	Log       *zap.Logger
}

// Handlers groups the controllers the router needs. Images is nil unless
// images are kept in GridFS.
type Handlers struct {
	Auth      *controllers.AuthController
	Listings  *controllers.ListingController
	Bookings  *controllers.BookingController
	Favorites *controllers.FavoriteController
	Dashboard *controllers.DashboardController
	Contact   *controllers.ContactController
	Images    *controllers.ImageController
}

func normalizeOrigins(raw []string) []string {
	origins := make([]string, 0, len(raw))
	for _, part := range raw {
		origin := strings.TrimSpace(part)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func SetupRouter(h Handlers, auth middleware.Authenticator, opts Options) *gin.Engine {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(middleware.Logger(log), gin.Recovery())
	if opts.UploadDir != "" {
		r.Static("/uploads", opts.UploadDir)
	}

	origins := normalizeOrigins(opts.CORSOrigins)
	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	requireAuth := middleware.RequireAuth(auth)
	manager := middleware.RequireRole(models.RoleOwner, models.RoleAdmin)

	api := r.Group("/api", middleware.Timeout(opts.RequestTimeout))
	{
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/signup", h.Auth.SignUp)
			authRoutes.POST("/login", h.Auth.Login)
			authRoutes.POST("/logout", requireAuth, h.Auth.Logout)
			authRoutes.GET("/me", requireAuth, h.Auth.Me)
			authRoutes.POST("/resend-verification", h.Auth.ResendVerification)
			authRoutes.GET("/verify-email", h.Auth.VerifyEmail)
			authRoutes.POST("/forgot-password", h.Auth.ForgotPassword)
			authRoutes.POST("/reset-password", h.Auth.ResetPassword)
			authRoutes.GET("/oauth/:provider", h.Auth.OAuthStart)
			authRoutes.GET("/oauth/:provider/callback", h.Auth.OAuthCallback)
			authRoutes.POST("/phone/send-otp", requireAuth, h.Auth.SendPhoneOTP)
			authRoutes.POST("/phone/verify", requireAuth, h.Auth.VerifyPhoneOTP)
		}

		api.GET("/areas", h.Listings.GetAreas)

		listings := api.Group("/listings")
		{
			listings.GET("", h.Listings.Browse)
			// before /:id
			listings.GET("/featured", h.Listings.Featured)
			listings.GET("/:id", h.Listings.GetListing)
			listings.POST("", requireAuth, manager, h.Listings.CreateListing)
			listings.PUT("/:id", requireAuth, manager, h.Listings.UpdateListing)
			listings.PATCH("/:id/status", requireAuth, manager, h.Listings.UpdateStatus)
			listings.DELETE("/:id", requireAuth, manager, h.Listings.DeleteListing)

			listings.GET("/:id/favorite", requireAuth, h.Favorites.Status)
			listings.POST("/:id/favorite", requireAuth, h.Favorites.Toggle)
			listings.POST("/:id/bookings", requireAuth, h.Bookings.CreateBooking)
		}

		api.GET("/favorites", requireAuth, h.Favorites.List)

		bookings := api.Group("/bookings", requireAuth)
		{
			bookings.GET("", h.Bookings.GetBookings)
			bookings.PATCH("/:id/status", manager, h.Bookings.UpdateStatus)
			bookings.POST("/:id/cancel", h.Bookings.CancelBooking)
		}

		api.GET("/dashboard", requireAuth, h.Dashboard.GetDashboard)
		api.POST("/contact", h.Contact.Submit)

		if h.Images != nil {
			api.GET("/images/:id", h.Images.GetImage)
		}
	}

	return r
}
