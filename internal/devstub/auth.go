package devstub

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type userPayload struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type loginPayload struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	User         userPayload `json:"user"`
	ExpiresIn    int64       `json:"expires_in"`
}

func toUserPayload(a *account) userPayload {
	return userPayload{
		ID:        a.ID,
		Email:     a.Email,
		FullName:  a.FullName,
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
	}
}

// mintAccessToken issues an HS256 token with the subject and expiry claims
// the client's expiry watch inspects.
func (s *Server) mintAccessToken(userID int64, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		Error(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	creds.Email = strings.ToLower(strings.TrimSpace(creds.Email))
	if creds.Email == "" || creds.Password == "" {
		Error(w, http.StatusUnprocessableEntity, "email and password are required")
		return
	}

	s.mu.Lock()
	acct, ok := s.users[creds.Email]
	s.mu.Unlock()

	if !ok || acct.Password != creds.Password {
		Error(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	if !acct.IsActive {
		Error(w, http.StatusForbidden, "User account is disabled")
		return
	}

	s.issueTokens(w, acct)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		Error(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	creds.Email = strings.ToLower(strings.TrimSpace(creds.Email))
	if creds.Email == "" || creds.Password == "" || creds.FullName == "" {
		Error(w, http.StatusUnprocessableEntity, "email, password and full_name are required")
		return
	}

	s.mu.Lock()
	if _, exists := s.users[creds.Email]; exists {
		s.mu.Unlock()
		Error(w, http.StatusBadRequest, "User with this email already exists")
		return
	}
	s.nextUserID++
	acct := &account{
		ID:        s.nextUserID,
		Email:     creds.Email,
		FullName:  creds.FullName,
		Password:  creds.Password,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	s.users[creds.Email] = acct
	s.mu.Unlock()

	s.logger.Info("registered dev account", "email", acct.Email, "user_id", acct.ID)
	s.issueTokens(w, acct)
}

func (s *Server) issueTokens(w http.ResponseWriter, acct *account) {
	now := time.Now()
	access, err := s.mintAccessToken(acct.ID, now)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to mint access token")
		return
	}
	refresh := newRefreshToken()

	s.mu.Lock()
	s.refreshTokens[refresh] = acct.ID
	s.mu.Unlock()

	JSON(w, http.StatusOK, loginPayload{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		User:         toUserPayload(acct),
		ExpiresIn:    int64(s.cfg.AccessTTL.Seconds()),
	})
}

// handleRefresh exchanges a refresh token (sent as the bearer credential)
// for a new access token. The refresh token itself is not rotated.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		Error(w, http.StatusUnauthorized, "missing refresh token")
		return
	}

	s.mu.Lock()
	userID, ok := s.refreshTokens[token]
	s.mu.Unlock()

	if !ok {
		Error(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	access, err := s.mintAccessToken(userID, time.Now())
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to mint access token")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"access_token": access})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	acct, ok := s.authenticate(r)
	if !ok {
		Error(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}
	JSON(w, http.StatusOK, toUserPayload(acct))
}

// authenticate resolves the bearer access token to an account.
func (s *Server) authenticate(r *http.Request) (*account, bool) {
	tokenString := bearerToken(r)
	if tokenString == "" {
		return nil, false
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, false
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acct := range s.users {
		if acct.ID == userID {
			return acct, true
		}
	}
	return nil, false
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
