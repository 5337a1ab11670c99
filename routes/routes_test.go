package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rental-backend/config"
	"rental-backend/controllers"
	"rental-backend/models"
	"rental-backend/services"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    struct {
		Count     int  `json:"count"`
		Limit     int  `json:"limit"`
		Truncated bool `json:"truncated"`
	} `json:"meta"`
	Error struct {
		Code    string `json:"code"`
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"error"`
}

type testAPI struct {
	router *gin.Engine
	db     *gorm.DB
	area   models.Area
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := config.ConnectDatabase(config.Settings{DBDriver: "sqlite", SQLitePath: ":memory:", DBLogLevel: "silent"}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	area := models.Area{Name: "জিইসি", City: "চট্টগ্রাম"}
	require.NoError(t, db.Create(&area).Error)

	sessions := services.NewSessionService(db, services.SessionConfig{JWTSecret: "test", TTL: time.Hour}, nil, nil, nil)
	listings := services.NewListingService(db, nil, nil, nil)
	bookings := services.NewBookingService(db, services.SimulatedGateway{}, nil, nil)
	favorites := services.NewFavoriteService(db)

	router := SetupRouter(Handlers{
		Auth:      controllers.NewAuthController(sessions, &services.StaticCodeVerifier{DB: db}, "http://front.test", false),
		Listings:  controllers.NewListingController(listings, services.NewSearchService(db)),
		Bookings:  controllers.NewBookingController(bookings),
		Favorites: controllers.NewFavoriteController(favorites),
		Dashboard: controllers.NewDashboardController(services.NewDashboardService(listings, bookings, favorites)),
		Contact:   controllers.NewContactController(services.NewContactService(db)),
	}, sessions, Options{RequestTimeout: 5 * time.Second})

	return &testAPI{router: router, db: db, area: area}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

// signIn registers, verifies and signs in a user and returns the token.
func (a *testAPI) signIn(t *testing.T, email string, role models.Role) string {
	t.Helper()
	w, _ := a.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email": email, "password": "secret1", "confirm_password": "secret1",
		"name": "Test", "phone": "01711000000", "role": role,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var identity models.AuthIdentity
	require.NoError(t, a.db.Where("email = ?", email).First(&identity).Error)
	require.NotNil(t, identity.VerifyToken)
	w, _ = a.do(t, http.MethodGet, "/api/auth/verify-email?token="+*identity.VerifyToken, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env := a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.NotEmpty(t, res.Token)
	return res.Token
}

func (a *testAPI) postListing(t *testing.T, token string) uint {
	t.Helper()
	w, env := a.do(t, http.MethodPost, "/api/listings", token, map[string]any{
		"title": "দুই রুমের ফ্ল্যাট", "rent": 12000, "advance": 24000, "category": "flat",
		"rooms": 2, "furnishing": "unfurnished", "area_id": a.area.ID,
		"facilities": []string{"পার্কিং", "ইন্টারনেট"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var l struct {
		ID            uint   `json:"id"`
		Location      string `json:"location"`
		RentLabel     string `json:"rent_label"`
		CategoryLabel string `json:"category_label"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &l))
	assert.Equal(t, "জিইসি, চট্টগ্রাম", l.Location)
	assert.Equal(t, "৳১২,০০০", l.RentLabel)
	assert.Equal(t, "ফ্ল্যাট", l.CategoryLabel)
	return l.ID
}

func countBookings(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Booking{}).Count(&n).Error)
	return n
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	w, _ := a.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestBooking_RequiresAuthentication(t *testing.T) {
	a := newTestAPI(t)
	owner := a.signIn(t, "owner@example.com", models.RoleOwner)
	id := a.postListing(t, owner)

	w, env := a.do(t, http.MethodPost, "/api/listings/"+itoa(id)+"/bookings", "", map[string]string{"name": "x", "phone": "01711000000"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "error.unauthenticated", env.Error.Code)
	assert.Zero(t, countBookings(t, a.db))
}

func TestBookingFlow(t *testing.T) {
	a := newTestAPI(t)
	owner := a.signIn(t, "owner@example.com", models.RoleOwner)
	other := a.signIn(t, "other@example.com", models.RoleOwner)
	renter := a.signIn(t, "renter@example.com", models.RoleRenter)
	id := a.postListing(t, owner)

	w, env := a.do(t, http.MethodPost, "/api/listings/"+itoa(id)+"/bookings", renter, map[string]string{"name": "রহিম", "phone": "01711000000"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var b models.Booking
	require.NoError(t, json.Unmarshal(env.Data, &b))
	assert.Equal(t, models.PaymentPaid, b.PaymentStatus)

	w, env = a.do(t, http.MethodPost, "/api/listings/"+itoa(id)+"/bookings", renter, map[string]string{"name": "রহিম", "phone": "01711000000"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "error.alreadyBooked", env.Error.Code)

	confirm := map[string]string{"status": "confirmed"}
	w, _ = a.do(t, http.MethodPatch, "/api/bookings/"+itoa(b.ID)+"/status", renter, confirm)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, env = a.do(t, http.MethodPatch, "/api/bookings/"+itoa(b.ID)+"/status", other, confirm)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "error.notListingOwner", env.Error.Code)

	w, _ = a.do(t, http.MethodPatch, "/api/bookings/"+itoa(b.ID)+"/status", owner, confirm)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = a.do(t, http.MethodGet, "/api/listings/"+itoa(id), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		Rented bool `json:"rented"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.True(t, detail.Rented)

	w, env = a.do(t, http.MethodGet, "/api/dashboard", owner, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var dash struct {
		Stats services.Stats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &dash))
	assert.Equal(t, 1, dash.Stats.TotalListings)
	assert.Equal(t, 0, dash.Stats.ActiveListings)
	assert.Equal(t, 1, dash.Stats.TotalBookings)
}

func TestLogout_RevokesToken(t *testing.T) {
	a := newTestAPI(t)
	token := a.signIn(t, "renter@example.com", models.RoleRenter)

	w, _ := a.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = a.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = a.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_UnverifiedEmail(t *testing.T) {
	a := newTestAPI(t)
	w, _ := a.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email": "new@example.com", "password": "secret1", "confirm_password": "secret1",
		"name": "New", "phone": "01711000000",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "new@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "error.emailNotVerified", env.Error.Code)
}

func TestBrowse(t *testing.T) {
	a := newTestAPI(t)
	owner := a.signIn(t, "owner@example.com", models.RoleOwner)
	id := a.postListing(t, owner)

	cases := []struct {
		query string
		want  int
	}{
		{"", 1},
		{"?category=flat&minRent=10000&maxRent=15000", 1},
		{"?category=flat&minRent=10000&maxRent=15000&rooms=3", 0},
		{"?location=%E0%A6%9C%E0%A6%BF%E0%A6%87%E0%A6%B8%E0%A6%BF", 1},
		{"?location=nowhere", 0},
		{"?minRent=%E0%A7%A7%E0%A7%A6%E0%A7%A6%E0%A7%A6%E0%A7%A6", 1},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			w, env := a.do(t, http.MethodGet, "/api/listings"+tc.query, "", nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var cards []struct {
				ID uint `json:"id"`
			}
			require.NoError(t, json.Unmarshal(env.Data, &cards))
			require.Len(t, cards, tc.want)
			if tc.want > 0 {
				assert.Equal(t, id, cards[0].ID)
			}
		})
	}

	w, env := a.do(t, http.MethodGet, "/api/listings", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, env.Meta.Count)
	assert.Equal(t, 100, env.Meta.Limit)
	assert.False(t, env.Meta.Truncated)

	w, env = a.do(t, http.MethodGet, "/api/listings?category=castle", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error.validation", env.Error.Code)
	assert.Equal(t, "category", env.Error.Field)
}

func TestBrowse_ReportsTruncation(t *testing.T) {
	a := newTestAPI(t)
	owner := a.signIn(t, "owner@example.com", models.RoleOwner)
	a.postListing(t, owner)
	newest := a.postListing(t, owner)

	w, env := a.do(t, http.MethodGet, "/api/listings?limit=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var cards []struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &cards))
	require.Len(t, cards, 1)
	assert.Equal(t, newest, cards[0].ID)
	assert.Equal(t, 1, env.Meta.Count)
	assert.Equal(t, 1, env.Meta.Limit)
	assert.True(t, env.Meta.Truncated)

	_, env = a.do(t, http.MethodGet, "/api/listings?limit=2", "", nil)
	assert.Equal(t, 2, env.Meta.Count)
	assert.False(t, env.Meta.Truncated)
}

func TestCreateListing_RenterForbidden(t *testing.T) {
	a := newTestAPI(t)
	renter := a.signIn(t, "renter@example.com", models.RoleRenter)

	w, _ := a.do(t, http.MethodPost, "/api/listings", renter, map[string]any{"title": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestFavoritesAndContact(t *testing.T) {
	a := newTestAPI(t)
	owner := a.signIn(t, "owner@example.com", models.RoleOwner)
	renter := a.signIn(t, "renter@example.com", models.RoleRenter)
	id := a.postListing(t, owner)

	var fav struct {
		IsFavorite bool `json:"is_favorite"`
	}
	w, env := a.do(t, http.MethodPost, "/api/listings/"+itoa(id)+"/favorite", renter, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &fav))
	assert.True(t, fav.IsFavorite)

	w, env = a.do(t, http.MethodGet, "/api/listings/"+itoa(id)+"/favorite", renter, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &fav))
	assert.True(t, fav.IsFavorite)

	w, _ = a.do(t, http.MethodPost, "/api/contact", "", map[string]string{"name": "x", "email": "bad", "message": "hi"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = a.do(t, http.MethodPost, "/api/contact", "", map[string]string{"name": "x", "email": "x@example.com", "message": "hi"})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestPhoneOTP(t *testing.T) {
	a := newTestAPI(t)
	token := a.signIn(t, "renter@example.com", models.RoleRenter)

	w, _ := a.do(t, http.MethodPost, "/api/auth/phone/send-otp", token, map[string]string{"phone": "01711000000"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env := a.do(t, http.MethodPost, "/api/auth/phone/verify", token, map[string]string{"code": "123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "error.validation", env.Error.Code)

	w, _ = a.do(t, http.MethodPost, "/api/auth/phone/verify", token, map[string]string{"code": "১২৩৪৫৬"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
