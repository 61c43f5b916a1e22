package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"superpos/backend/internal/domain"
	"superpos/backend/internal/store"
	"superpos/backend/internal/xid"
)

const issuer = "superpos"

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveAccount    = errors.New("account is inactive")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// CredentialStore is the slice of the repository the manager reads.
type CredentialStore interface {
	GetEmployeeAccount(ctx context.Context, username string) (*domain.EmployeeAccount, error)
	GetEmployee(ctx context.Context, id int64) (*domain.Employee, error)
}

type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	store      CredentialStore
	now        func() time.Time
}

type posClaims struct {
	jwtlib.RegisteredClaims
	UserID    int64  `json:"user_id"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
}

func NewManager(secret string, accessTTL, refreshTTL time.Duration, credentials CredentialStore) *Manager {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 24 * time.Hour
	}
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		store:      credentials,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Authenticate checks a username/password pair against the identity store.
func (m *Manager) Authenticate(ctx context.Context, username, password string) (domain.Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.Identity{}, ErrMissingCredentials
	}

	account, err := m.store.GetEmployeeAccount(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Identity{}, ErrInvalidCredentials
		}
		return domain.Identity{}, err
	}
	if !VerifyPassword(account.PasswordHash, password) {
		return domain.Identity{}, ErrInvalidCredentials
	}
	if !account.Active {
		return domain.Identity{}, ErrInactiveAccount
	}
	return account.Identity(), nil
}

func (m *Manager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	identity, err := m.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	return m.issue(identity)
}

// Refresh exchanges a valid refresh token for a new pair. The employee is
// re-read so role changes and deactivation take effect.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (domain.LoginResponse, error) {
	claims, err := m.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	emp, err := m.store.GetEmployee(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.LoginResponse{}, ErrInvalidToken
		}
		return domain.LoginResponse{}, err
	}
	if !emp.Active {
		return domain.LoginResponse{}, ErrInactiveAccount
	}
	return m.issue(emp.Identity())
}

func (m *Manager) ParseAccessToken(tokenStr string) (domain.Identity, error) {
	claims, err := m.parse(tokenStr, tokenTypeAccess)
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{
		ID:       claims.UserID,
		Username: claims.Subject,
		Role:     domain.Role(claims.Role),
	}, nil
}

func (m *Manager) issue(identity domain.Identity) (domain.LoginResponse, error) {
	access, err := m.sign(identity, tokenTypeAccess, m.accessTTL)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	refresh, err := m.sign(identity, tokenTypeRefresh, m.refreshTTL)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	return domain.LoginResponse{Access: access, Refresh: refresh, User: identity}, nil
}

func (m *Manager) sign(identity domain.Identity, tokenType string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := posClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        xid.New(tokenType),
			Subject:   identity.Username,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
		UserID:    identity.ID,
		Role:      string(identity.Role),
		TokenType: tokenType,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *Manager) parse(tokenStr, tokenType string) (*posClaims, error) {
	claims := &posClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithIssuer(issuer), jwtlib.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != tokenType || claims.Subject == "" || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	if !domain.Role(claims.Role).Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func VerifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
