// internal/pkg/handoff/token.go
package handoff

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/your-org/storefront/internal/config"
)

// Steps a token can authorise
const (
	StepPayment      = "payment"
	StepConfirmation = "confirmation"
)

var (
	ErrInvalidToken = errors.New("invalid handoff token")
	ErrWrongStep    = errors.New("handoff token is for a different step")
)

// Claims carry a placed order from one checkout page to the next
type Claims struct {
	OrderID       string `json:"order_id"`
	PaymentMethod string `json:"payment_method"`
	Step          string `json:"step"`
	SessionID     string `json:"session_id"`
	jwt.RegisteredClaims
}

// Manager signs and checks handoff tokens
type Manager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewManager creates a handoff token manager
func NewManager(cfg config.CheckoutConfig, issuer string) *Manager {
	return &Manager{
		secret: []byte(cfg.HandoffSecret),
		ttl:    cfg.HandoffTTL,
		issuer: issuer,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Issue signs a token for the given step
func (m *Manager) Issue(orderID, paymentMethod, step, sessionID string) (string, error) {
	now := m.now()

	claims := &Claims{
		OrderID:       orderID,
		PaymentMethod: paymentMethod,
		Step:          step,
		SessionID:     sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			Subject:   "order:" + orderID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign handoff token: %w", err)
	}
	return signed, nil
}

// Validate parses a token and checks that it authorises step
func (m *Manager) Validate(tokenString, step string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithIssuer(m.issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.OrderID == "" {
		return nil, ErrInvalidToken
	}
	if claims.Step != step {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrWrongStep, step, claims.Step)
	}

	return claims, nil
}

// ExtractTokenFromHeader extracts a bearer token from an Authorization header
func ExtractTokenFromHeader(authHeader string) string {
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
