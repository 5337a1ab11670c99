package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"rental-backend/events"
	"rental-backend/models"
	"rental-backend/utils"
)

const (
	minPasswordLength = 6
	resetTokenTTL     = time.Hour
)

type AuthEventType string

const (
	AuthSignedIn  AuthEventType = "signed_in"
	AuthSignedOut AuthEventType = "signed_out"
)

// AuthEvent is delivered to subscribers after a session starts or ends.
type AuthEvent struct {
	Type   AuthEventType `json:"type"`
	UserID string        `json:"user_id"`
}

// EmailSender delivers account emails. utils.Mailer implements it.
type EmailSender interface {
	SendVerificationEmail(recipient, name, link string) error
	SendPasswordResetEmail(recipient, link string) error
}

// OAuthProvider is one configured social login.
type OAuthProvider struct {
	Config      *oauth2.Config
	UserInfoURL string
}

// OAuthProfile is what the provider's userinfo endpoint tells us.
type OAuthProfile struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

type SessionConfig struct {
	JWTSecret   string
	TTL         time.Duration
	FrontendURL string
	Providers   map[string]OAuthProvider
}

// AuthResult is a started session. User is nil when the profile could not
// be loaded; the token is still valid.
type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

type SignUpInput struct {
	Email           string      `json:"email"`
	Password        string      `json:"password"`
	ConfirmPassword string      `json:"confirm_password"`
	Name            string      `json:"name"`
	Phone           string      `json:"phone"`
	Role            models.Role `json:"role"`
}

func (in *SignUpInput) normalize() error {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Name == "" {
		return invalid("name", "নাম আবশ্যক")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil || in.Email == "" {
		return invalid("email", "সঠিক ইমেইল দিন")
	}
	if in.Phone == "" {
		return invalid("phone", "ফোন নম্বর আবশ্যক")
	}
	if len(in.Password) < minPasswordLength {
		return invalid("password", "পাসওয়ার্ড কমপক্ষে ৬ অক্ষরের হতে হবে")
	}
	if in.Password != in.ConfirmPassword {
		return invalid("confirm_password", "পাসওয়ার্ড মিলছে না")
	}
	if in.Role == "" {
		in.Role = models.RoleRenter
	}
	if in.Role != models.RoleRenter && in.Role != models.RoleOwner {
		return invalid("role", "অবৈধ ভূমিকা")
	}
	return nil
}

// SessionService owns identities, sessions and profiles.
type SessionService struct {
	DB        *gorm.DB
	Log       *zap.Logger
	Mailer    EmailSender
	Publisher events.Publisher

	secret      []byte
	ttl         time.Duration
	frontendURL string
	providers   map[string]OAuthProvider
	now         func() time.Time

	mu        sync.RWMutex
	listeners map[int]func(AuthEvent)
	nextID    int
}

func NewSessionService(db *gorm.DB, cfg SessionConfig, mailer EmailSender, pub events.Publisher, log *zap.Logger) *SessionService {
	if log == nil {
		log = zap.NewNop()
	}
	if pub == nil {
		pub = events.NopPublisher{}
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	return &SessionService{
		DB:          db,
		Log:         log,
		Mailer:      mailer,
		Publisher:   pub,
		secret:      []byte(cfg.JWTSecret),
		ttl:         cfg.TTL,
		frontendURL: cfg.FrontendURL,
		providers:   cfg.Providers,
		now:         time.Now,
		listeners:   map[int]func(AuthEvent){},
	}
}

// Subscribe registers fn for auth events. The returned func removes it.
func (s *SessionService) Subscribe(fn func(AuthEvent)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *SessionService) emit(ctx context.Context, ev AuthEvent) {
	s.mu.RLock()
	fns := make([]func(AuthEvent), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}

	key := events.AuthSignedIn
	if ev.Type == AuthSignedOut {
		key = events.AuthSignedOut
	}
	if err := s.Publisher.Publish(ctx, key, ev); err != nil {
		s.Log.Warn("publish auth event", zap.String("key", key), zap.Error(err))
	}
}

//
// ===========================================================
//  SIGN UP / SIGN IN / SIGN OUT
// ===========================================================
//

func (s *SessionService) SignUp(ctx context.Context, in SignUpInput) (*models.AuthIdentity, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)

	var count int64
	if err := db.Model(&models.AuthIdentity{}).Where("email = ?", in.Email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	token, err := utils.GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	identity := models.AuthIdentity{
		ID:           uuid.NewString(),
		Email:        in.Email,
		PasswordHash: string(hash),
		Provider:     models.ProviderEmail,
		VerifyToken:  &token,
		Metadata:     datatypes.NewJSONType(models.SignupMetadata{Name: in.Name, Phone: in.Phone, Role: in.Role}),
	}
	if err := db.Create(&identity).Error; err != nil {
		if utils.IsDuplicateErr(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create identity: %w", err)
	}

	s.sendVerification(identity.Email, in.Name, token)
	return &identity, nil
}

func (s *SessionService) sendVerification(email, name, token string) {
	if s.Mailer == nil {
		return
	}
	link := utils.BuildFrontendLink(s.frontendURL, "verify-email", token)
	if err := s.Mailer.SendVerificationEmail(email, name, link); err != nil {
		s.Log.Error("send verification email", zap.String("email", utils.MaskEmail(email)), zap.Error(err))
	}
}

func (s *SessionService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, invalid("email", "ইমেইল ও পাসওয়ার্ড আবশ্যক")
	}

	var identity models.AuthIdentity
	err := s.DB.WithContext(ctx).Where("email = ?", email).First(&identity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find identity: %w", err)
	}
	if identity.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if !identity.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	return s.startSession(ctx, &identity)
}

// startSession runs the shared post-authentication path: profile
// fetch-or-create, session row, token, event.
func (s *SessionService) startSession(ctx context.Context, identity *models.AuthIdentity) (*AuthResult, error) {
	profile, err := s.EnsureProfile(ctx, identity)
	if err != nil {
		s.Log.Error("load profile on sign-in", zap.String("user_id", identity.ID), zap.Error(err))
		profile = nil
	}

	role := models.RoleRenter
	if profile != nil {
		role = profile.Role
	}

	now := s.now()
	session := models.Session{
		ID:        uuid.NewString(),
		UserID:    identity.ID,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.DB.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	token, err := createAccessToken(s.secret, session.ID, identity.ID, string(role), identity.Email, now, session.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	s.emit(ctx, AuthEvent{Type: AuthSignedIn, UserID: identity.ID})
	return &AuthResult{Token: token, ExpiresAt: session.ExpiresAt, User: profile}, nil
}

// EnsureProfile returns the profile for identity, creating it on first use.
// The role comes from signup metadata; only renter and owner can be asked for.
func (s *SessionService) EnsureProfile(ctx context.Context, identity *models.AuthIdentity) (*models.User, error) {
	db := s.DB.WithContext(ctx)

	var user models.User
	err := db.First(&user, "id = ?", identity.ID).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	meta := identity.Metadata.Data()
	role := models.RoleRenter
	if meta.Role == models.RoleOwner {
		role = models.RoleOwner
	}
	name := strings.TrimSpace(meta.Name)
	if name == "" {
		name = strings.SplitN(identity.Email, "@", 2)[0]
	}
	user = models.User{
		ID:    identity.ID,
		Email: identity.Email,
		Name:  name,
		Role:  role,
	}
	if p := strings.TrimSpace(meta.Phone); p != "" {
		user.Phone = &p
	}

	if err := db.Create(&user).Error; err != nil {
		if !utils.IsDuplicateErr(err) {
			return nil, fmt.Errorf("create profile: %w", err)
		}
		// created concurrently by another sign-in
		if err := db.First(&user, "id = ?", identity.ID).Error; err != nil {
			return nil, fmt.Errorf("fetch profile: %w", err)
		}
	}
	return &user, nil
}

// SignOut revokes the session. Revoking twice is not an error.
func (s *SessionService) SignOut(ctx context.Context, sessionID string) error {
	db := s.DB.WithContext(ctx)
	var session models.Session
	if err := db.First(&session, "id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("find session: %w", err)
	}
	if session.RevokedAt != nil {
		return nil
	}
	now := s.now()
	if err := db.Model(&session).Update("revoked_at", now).Error; err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.emit(ctx, AuthEvent{Type: AuthSignedOut, UserID: session.UserID})
	return nil
}

// Authenticate resolves a bearer token to the current identity. Revoked and
// expired sessions are rejected.
func (s *SessionService) Authenticate(ctx context.Context, token string) (*CurrentUser, error) {
	claims, err := parseAccessToken(s.secret, token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	db := s.DB.WithContext(ctx)

	var session models.Session
	if err := db.First(&session, "id = ?", claims.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	if session.RevokedAt != nil || !s.now().Before(session.ExpiresAt) || session.UserID != claims.Sub {
		return nil, ErrInvalidToken
	}

	cu := &CurrentUser{
		ID:        claims.Sub,
		Email:     claims.Email,
		Role:      models.Role(claims.Role),
		SessionID: session.ID,
	}
	var user models.User
	err = db.First(&user, "id = ?", claims.Sub).Error
	switch {
	case err == nil:
		cu.Profile = &user
		cu.Role = user.Role
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	return cu, nil
}

//
// ===========================================================
//  EMAIL VERIFICATION / PASSWORD RESET
// ===========================================================
//

// ResendVerification sends a fresh link when the email belongs to an
// unverified identity. Unknown emails are not reported.
func (s *SessionService) ResendVerification(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return invalid("email", "ইমেইল আবশ্যক")
	}
	db := s.DB.WithContext(ctx)
	var identity models.AuthIdentity
	if err := db.Where("email = ?", email).First(&identity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("find identity: %w", err)
	}
	if identity.EmailVerified {
		return nil
	}
	token, err := utils.GenerateSecureToken(32)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	if err := db.Model(&identity).Update("verify_token", token).Error; err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	s.sendVerification(identity.Email, identity.Metadata.Data().Name, token)
	return nil
}

func (s *SessionService) VerifyEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidToken
	}
	res := s.DB.WithContext(ctx).Model(&models.AuthIdentity{}).
		Where("verify_token = ?", token).
		Updates(map[string]any{"email_verified": true, "verify_token": nil})
	if res.Error != nil {
		return fmt.Errorf("verify email: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInvalidToken
	}
	return nil
}

// RequestPasswordReset mails a reset link when the email is known. The
// caller always answers the same way.
func (s *SessionService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return invalid("email", "ইমেইল আবশ্যক")
	}
	db := s.DB.WithContext(ctx)
	var identity models.AuthIdentity
	if err := db.Where("email = ?", email).First(&identity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.Log.Info("password reset for unknown email", zap.String("email", utils.MaskEmail(email)))
			return nil
		}
		return fmt.Errorf("find identity: %w", err)
	}

	token, err := utils.GenerateSecureToken(32)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	expires := s.now().Add(resetTokenTTL)
	if err := db.Model(&identity).Updates(map[string]any{"reset_token": token, "reset_token_expires": expires}).Error; err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	if s.Mailer != nil {
		link := utils.BuildFrontendLink(s.frontendURL, "reset-password", token)
		if err := s.Mailer.SendPasswordResetEmail(identity.Email, link); err != nil {
			s.Log.Error("send reset email", zap.String("email", utils.MaskEmail(email)), zap.Error(err))
		}
	}
	return nil
}

// ResetPassword sets a new password and revokes every open session of the
// identity.
func (s *SessionService) ResetPassword(ctx context.Context, token, password, confirm string) error {
	if len(password) < minPasswordLength {
		return invalid("password", "পাসওয়ার্ড কমপক্ষে ৬ অক্ষরের হতে হবে")
	}
	if password != confirm {
		return invalid("confirm_password", "পাসওয়ার্ড মিলছে না")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidToken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var identity models.AuthIdentity
		err := tx.Where("reset_token = ? AND reset_token_expires > ?", token, now).First(&identity).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidToken
		}
		if err != nil {
			return fmt.Errorf("find reset token: %w", err)
		}
		if err := tx.Model(&identity).Updates(map[string]any{
			"password_hash":       string(hash),
			"reset_token":         nil,
			"reset_token_expires": nil,
			// the link proves control of the mailbox
			"email_verified": true,
		}).Error; err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		return tx.Model(&models.Session{}).
			Where("user_id = ? AND revoked_at IS NULL", identity.ID).
			Update("revoked_at", now).Error
	})
}

//
// ===========================================================
//  OAUTH
// ===========================================================
//

func (s *SessionService) provider(name string) (OAuthProvider, error) {
	p, ok := s.providers[name]
	if !ok || p.Config == nil || p.Config.ClientID == "" {
		return OAuthProvider{}, ErrProviderUnsupported
	}
	return p, nil
}

// OAuthURL returns the provider consent page URL carrying state.
func (s *SessionService) OAuthURL(provider, state string) (string, error) {
	p, err := s.provider(provider)
	if err != nil {
		return "", err
	}
	return p.Config.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// OAuthCallback exchanges the code, links or creates the identity and
// starts a session the same way SignIn does.
func (s *SessionService) OAuthCallback(ctx context.Context, provider, code string) (*AuthResult, error) {
	p, err := s.provider(provider)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(code) == "" {
		return nil, invalid("code", "missing authorization code")
	}
	tok, err := p.Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: exchange: %v", ErrInvalidCredentials, err)
	}
	profile, err := fetchOAuthProfile(ctx, p.Config.Client(ctx, tok), p.UserInfoURL)
	if err != nil {
		return nil, err
	}
	if profile.Subject == "" || profile.Email == "" {
		return nil, fmt.Errorf("%w: incomplete provider profile", ErrInvalidCredentials)
	}

	identity, err := s.linkOAuthIdentity(ctx, provider, profile)
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, identity)
}

func fetchOAuthProfile(ctx context.Context, client *http.Client, url string) (OAuthProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return OAuthProfile{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return OAuthProfile{}, fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return OAuthProfile{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}
	var p OAuthProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return OAuthProfile{}, fmt.Errorf("decode userinfo: %w", err)
	}
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	return p, nil
}

func (s *SessionService) linkOAuthIdentity(ctx context.Context, provider string, p OAuthProfile) (*models.AuthIdentity, error) {
	var identity models.AuthIdentity
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("provider = ? AND provider_subject = ?", provider, p.Subject).First(&identity).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		err = tx.Where("email = ?", p.Email).First(&identity).Error
		if err == nil {
			// an existing account is only linked when the provider vouches
			// for the address
			if !p.EmailVerified {
				return fmt.Errorf("%w: provider email not verified", ErrInvalidCredentials)
			}
			identity.ProviderSubject = p.Subject
			identity.EmailVerified = true
			return tx.Model(&identity).Updates(map[string]any{
				"provider_subject": identity.ProviderSubject,
				"email_verified":   identity.EmailVerified,
			}).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		identity = models.AuthIdentity{
			ID:              uuid.NewString(),
			Email:           p.Email,
			Provider:        provider,
			ProviderSubject: p.Subject,
			EmailVerified:   p.EmailVerified,
			Metadata:        datatypes.NewJSONType(models.SignupMetadata{Name: p.Name}),
		}
		return tx.Create(&identity).Error
	})
	if err != nil {
		return nil, fmt.Errorf("link oauth identity: %w", err)
	}
	return &identity, nil
}
