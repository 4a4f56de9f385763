package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// listenKey issuance (§6.3: "listenKey issuance (opaque)"). Binance's real
// listenKey is an opaque bearer token with a server-side TTL; here the TTL
// is encoded directly into a signed JWT so no server-side session store is
// needed, grounded on Funky1981-jax-trading-assistant/libs/auth/jwt.go's
// Claims/JWTManager pattern.

var errInvalidListenKey = errors.New("gateway: invalid or expired listen key")

type listenKeyClaims struct {
	jwt.RegisteredClaims
}

type listenKeyManager struct {
	secret []byte
	ttl    time.Duration
}

func newListenKeyManager(secret string, ttl time.Duration) *listenKeyManager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &listenKeyManager{secret: []byte(secret), ttl: ttl}
}

func (m *listenKeyManager) issue() (string, error) {
	now := time.Now()
	claims := listenKeyClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "exchange-simulator",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *listenKeyManager) validate(key string) error {
	_, err := jwt.ParseWithClaims(key, &listenKeyClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return errInvalidListenKey
	}
	return nil
}

// handleListenKeyCreate issues a new listenKey (POST /fapi/v1/listenKey).
func (s *Server) handleListenKeyCreate(w http.ResponseWriter, r *http.Request) {
	key, err := s.listenKeys.issue()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, exchangeError{Code: -1000, Msg: "could not issue listen key"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"listenKey": key})
}

// handleListenKeyKeepAlive validates (without rotating) an existing key.
func (s *Server) handleListenKeyKeepAlive(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.URL.Query().Get("listenKey"))
	if key == "" || s.listenKeys.validate(key) != nil {
		writeJSON(w, http.StatusBadRequest, exchangeError{Code: -1125, Msg: "This listenKey does not exist."})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (s *Server) handleListenKeyClose(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{})
}
