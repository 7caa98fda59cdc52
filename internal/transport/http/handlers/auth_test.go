package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/protocol"

	"github.com/kidhack/bonfire/internal/core/domain"
	"github.com/kidhack/bonfire/internal/transport/http/middleware"
	"github.com/kidhack/bonfire/internal/usecase"
)

type stubRegistrationService struct {
	beginErr  error
	finishErr error
	user      *domain.User
}

func (s *stubRegistrationService) BeginRegistration(_ context.Context, _, _, _ string, _ *domain.User) (*protocol.CredentialCreation, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	options := &protocol.CredentialCreation{}
	options.Response.Challenge = protocol.URLEncodedBase64("challenge")
	return options, nil
}

func (s *stubRegistrationService) FinishRegistration(_ context.Context, _, _ string, _ *domain.User, _ []byte) (*domain.User, error) {
	if s.finishErr != nil {
		return nil, s.finishErr
	}
	return s.user, nil
}

type stubAuthenticationService struct {
	beginErr  error
	finishErr error
	user      *domain.User
}

func (s *stubAuthenticationService) BeginAuthentication(_ context.Context, _, _ string) (*protocol.CredentialAssertion, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	options := &protocol.CredentialAssertion{}
	options.Response.Challenge = protocol.URLEncodedBase64("challenge")
	return options, nil
}

func (s *stubAuthenticationService) FinishAuthentication(_ context.Context, _, _ string, _ []byte) (*domain.User, error) {
	if s.finishErr != nil {
		return nil, s.finishErr
	}
	return s.user, nil
}

type stubSessionIssuer struct {
	err     error
	created int
}

func (s *stubSessionIssuer) Create(_ context.Context, userID string) (*domain.Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created++
	return &domain.Session{ID: "session-1", UserID: userID, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func testCookie() middleware.SessionCookie {
	return middleware.SessionCookie{Name: "bonfire_session", TTL: time.Hour}
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var envelope ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode body %s: %v", rr.Body.String(), err)
	}
	return envelope
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func sessionCookieFrom(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == "bonfire_session" {
			return cookie
		}
	}
	return nil
}

func TestRegisterOptions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&stubRegistrationService{}, &stubAuthenticationService{}, &stubSessionIssuer{}, testCookie())
	router := gin.New()
	router.POST("/register/options", handler.RegisterOptions)

	rr := postJSON(router, "/register/options", `{"email":"new@example.com","displayName":"New User"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "publicKey") {
		t.Fatalf("expected ceremony options, got %s", rr.Body.String())
	}
}

func TestRegisterOptionsConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registration := &stubRegistrationService{beginErr: usecase.ErrAccountExists}
	handler := NewAuthHandler(registration, &stubAuthenticationService{}, &stubSessionIssuer{}, testCookie())
	router := gin.New()
	router.POST("/register/options", handler.RegisterOptions)

	rr := postJSON(router, "/register/options", `{"email":"taken@example.com"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	if env := decodeEnvelope(t, rr); env.OK || env.Error == "" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestRegisterOptionsInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&stubRegistrationService{}, &stubAuthenticationService{}, &stubSessionIssuer{}, testCookie())
	router := gin.New()
	router.POST("/register/options", handler.RegisterOptions)

	rr := postJSON(router, "/register/options", `{not json`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestRegisterVerifySetsSessionCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registration := &stubRegistrationService{user: &domain.User{ID: "user-1", Email: "new@example.com"}}
	sessions := &stubSessionIssuer{}
	handler := NewAuthHandler(registration, &stubAuthenticationService{}, sessions, testCookie())
	router := gin.New()
	router.POST("/register/verify", handler.RegisterVerify)

	rr := postJSON(router, "/register/verify", `{"email":"new@example.com","response":{"id":"abc"}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if sessions.created != 1 {
		t.Fatalf("expected one session, got %d", sessions.created)
	}
	cookie := sessionCookieFrom(rr)
	if cookie == nil || cookie.Value != "session-1" || !cookie.HttpOnly {
		t.Fatalf("unexpected session cookie %+v", cookie)
	}
	if body := rr.Body.String(); body != `{"ok":true}` {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestRegisterVerifyCeremonyFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registration := &stubRegistrationService{finishErr: usecase.ErrVerificationFailed}
	handler := NewAuthHandler(registration, &stubAuthenticationService{}, &stubSessionIssuer{}, testCookie())
	router := gin.New()
	router.POST("/register/verify", handler.RegisterVerify)

	rr := postJSON(router, "/register/verify", `{"email":"new@example.com","response":{"id":"abc"}}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if sessionCookieFrom(rr) != nil {
		t.Fatal("failed ceremony must not set a cookie")
	}
}

func TestRegisterVerifyMissingResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&stubRegistrationService{}, &stubAuthenticationService{}, &stubSessionIssuer{}, testCookie())
	router := gin.New()
	router.POST("/register/verify", handler.RegisterVerify)

	rr := postJSON(router, "/register/verify", `{"email":"new@example.com"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestAuthenticateOptionsUnknownUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	authentication := &stubAuthenticationService{beginErr: usecase.ErrUserNotFound}
	handler := NewAuthHandler(&stubRegistrationService{}, authentication, &stubSessionIssuer{}, testCookie())
	router := gin.New()
	router.POST("/authenticate/options", handler.AuthenticateOptions)

	rr := postJSON(router, "/authenticate/options", `{"email":"ghost@example.com"}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestAuthenticateVerifyFailures(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"verification failed", usecase.ErrVerificationFailed, http.StatusUnauthorized},
		{"possible clone", usecase.ErrPossibleClone, http.StatusUnauthorized},
		{"challenge expired", usecase.ErrChallengeExpired, http.StatusUnauthorized},
		{"user not found", usecase.ErrUserNotFound, http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			authentication := &stubAuthenticationService{finishErr: tc.err}
			handler := NewAuthHandler(&stubRegistrationService{}, authentication, &stubSessionIssuer{}, testCookie())
			router := gin.New()
			router.POST("/authenticate/verify", handler.AuthenticateVerify)

			rr := postJSON(router, "/authenticate/verify", `{"email":"known@example.com","response":{"id":"abc"}}`)
			if rr.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rr.Code)
			}
		})
	}
}

func TestAuthenticateVerifyOpaqueInternalError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	authentication := &stubAuthenticationService{finishErr: errors.New("pool exhausted")}
	handler := NewAuthHandler(&stubRegistrationService{}, authentication, &stubSessionIssuer{}, testCookie())
	router := gin.New()
	router.POST("/authenticate/verify", handler.AuthenticateVerify)

	rr := postJSON(router, "/authenticate/verify", `{"email":"known@example.com","response":{"id":"abc"}}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	env := decodeEnvelope(t, rr)
	if env.Error != internalErrorMessage {
		t.Fatalf("internal detail leaked: %q", env.Error)
	}
}
