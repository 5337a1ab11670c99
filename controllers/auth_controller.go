package controllers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"rental-backend/middleware"
	"rental-backend/services"
	"rental-backend/utils"
)

const oauthStateCookie = "oauth_state"

type loginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailPayload struct {
	Email string `json:"email"`
}

type resetPayload struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type phonePayload struct {
	Phone string `json:"phone"`
}

type codePayload struct {
	Code string `json:"code"`
}

type AuthController struct {
	Sessions      *services.SessionService
	Verifier      services.VerificationProvider
	FrontendURL   string
	SecureCookies bool
}

func NewAuthController(sessions *services.SessionService, verifier services.VerificationProvider, frontendURL string, secure bool) *AuthController {
	return &AuthController{Sessions: sessions, Verifier: verifier, FrontendURL: frontendURL, SecureCookies: secure}
}

func (ac *AuthController) SignUp(c *gin.Context) {
	var in services.SignUpInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	identity, err := ac.Sessions.SignUp(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, gin.H{
		"email":   identity.Email,
		"message": "যাচাইকরণ লিংক আপনার ইমেইলে পাঠানো হয়েছে",
	})
}

func (ac *AuthController) Login(c *gin.Context) {
	var p loginPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	res, err := ac.Sessions.SignIn(c.Request.Context(), p.Email, p.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, res)
}

func (ac *AuthController) Logout(c *gin.Context) {
	u := middleware.CurrentUser(c)
	if u == nil {
		respondError(c, services.ErrUnauthenticated)
		return
	}
	if err := ac.Sessions.SignOut(c.Request.Context(), u.SessionID); err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"message": "লগআউট সম্পন্ন"})
}

func (ac *AuthController) Me(c *gin.Context) {
	u := middleware.CurrentUser(c)
	if u == nil {
		respondError(c, services.ErrUnauthenticated)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{
		"id":      u.ID,
		"email":   u.Email,
		"role":    u.Role,
		"profile": u.Profile,
	})
}

func (ac *AuthController) ResendVerification(c *gin.Context) {
	var p emailPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	if err := ac.Sessions.ResendVerification(c.Request.Context(), p.Email); err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"message": "যাচাইকরণ ইমেইল আবার পাঠানো হয়েছে"})
}

func (ac *AuthController) VerifyEmail(c *gin.Context) {
	if err := ac.Sessions.VerifyEmail(c.Request.Context(), c.Query("token")); err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"message": "ইমেইল যাচাই সম্পন্ন হয়েছে"})
}

func (ac *AuthController) ForgotPassword(c *gin.Context) {
	var p emailPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	if err := ac.Sessions.RequestPasswordReset(c.Request.Context(), p.Email); err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"message": "এই ইমেইলটি নিবন্ধিত থাকলে পাসওয়ার্ড রিসেট লিংক পাঠানো হয়েছে"})
}

func (ac *AuthController) ResetPassword(c *gin.Context) {
	var p resetPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	if err := ac.Sessions.ResetPassword(c.Request.Context(), p.Token, p.Password, p.ConfirmPassword); err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"message": "পাসওয়ার্ড পরিবর্তন হয়েছে"})
}

// OAuthStart redirects to the provider with a state that is echoed back in
// a short-lived cookie.
func (ac *AuthController) OAuthStart(c *gin.Context) {
	state, err := utils.GenerateSecureToken(16)
	if err != nil {
		respondError(c, err)
		return
	}
	target, err := ac.Sessions.OAuthURL(c.Param("provider"), state)
	if err != nil {
		respondError(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, int((10 * time.Minute).Seconds()), "/api/auth/oauth", "", ac.SecureCookies, true)
	c.Redirect(http.StatusFound, target)
}

// OAuthCallback finishes the provider flow and hands the token to the
// frontend in the URL fragment.
func (ac *AuthController) OAuthCallback(c *gin.Context) {
	state, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || state != c.Query("state") {
		utils.JSONError(c, http.StatusBadRequest, "error.invalidState", "লগইন অনুরোধটি অবৈধ, আবার চেষ্টা করুন")
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/api/auth/oauth", "", ac.SecureCookies, true)

	res, err := ac.Sessions.OAuthCallback(c.Request.Context(), c.Param("provider"), c.Query("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	frontend := strings.TrimRight(ac.FrontendURL, "/")
	c.Redirect(http.StatusFound, frontend+"/auth/callback#token="+url.QueryEscape(res.Token))
}

func (ac *AuthController) SendPhoneOTP(c *gin.Context) {
	u := middleware.CurrentUser(c)
	if u == nil {
		respondError(c, services.ErrUnauthenticated)
		return
	}
	var p phonePayload
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	if err := ac.Verifier.Send(c.Request.Context(), u.ID, p.Phone); err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"message": "যাচাইকরণ কোড পাঠানো হয়েছে"})
}

func (ac *AuthController) VerifyPhoneOTP(c *gin.Context) {
	u := middleware.CurrentUser(c)
	if u == nil {
		respondError(c, services.ErrUnauthenticated)
		return
	}
	var p codePayload
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	if err := ac.Verifier.Verify(c.Request.Context(), u.ID, p.Code); err != nil {
		respondError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{"phone_verified": true})
}
