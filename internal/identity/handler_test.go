package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-signup/internal/session"
)

type mockProvider struct{ mock.Mock }

func (m *mockProvider) CreateIdentity(ctx context.Context, email, password string) (Ref, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(Ref), args.Error(1)
}

func (m *mockProvider) Authenticate(ctx context.Context, email, password string) (*session.Session, error) {
	args := m.Called(ctx, email, password)
	s, _ := args.Get(0).(*session.Session)
	return s, args.Error(1)
}

func TestLoginHandler(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		setup  func(p *mockProvider)
		status int
	}{
		{
			name: "ok",
			body: `{"email":"ada@x.com","password":"Abcdef1!"}`,
			setup: func(p *mockProvider) {
				p.On("Authenticate", mock.Anything, "ada@x.com", "Abcdef1!").
					Return(&session.Session{Token: "tok", ExpiresAt: time.Now().Add(time.Minute)}, nil)
			},
			status: http.StatusOK,
		},
		{
			name: "bad credentials",
			body: `{"email":"ada@x.com","password":"nope"}`,
			setup: func(p *mockProvider) {
				p.On("Authenticate", mock.Anything, "ada@x.com", "nope").Return(nil, ErrInvalidCredentials)
			},
			status: http.StatusUnauthorized,
		},
		{
			name: "provider down",
			body: `{"email":"ada@x.com","password":"Abcdef1!"}`,
			setup: func(p *mockProvider) {
				p.On("Authenticate", mock.Anything, "ada@x.com", "Abcdef1!").Return(nil, ErrUnavailable)
			},
			status: http.StatusServiceUnavailable,
		},
		{name: "malformed body", body: `{`, setup: func(*mockProvider) {}, status: http.StatusBadRequest},
		{name: "missing fields", body: `{}`, setup: func(*mockProvider) {}, status: http.StatusUnauthorized},
		{
			name:   "oversized body",
			body:   `{"email":"ada@x.com","password":"` + strings.Repeat("a", maxLoginBytes) + `"}`,
			setup:  func(*mockProvider) {},
			status: http.StatusRequestEntityTooLarge,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &mockProvider{}
			tc.setup(p)
			h := NewHandler(p, zap.NewNop().Sugar())

			rec := httptest.NewRecorder()
			h.Login(rec, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(tc.body)))

			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				assert.Contains(t, rec.Body.String(), `"token":"tok"`)
			}
			p.AssertExpectations(t)
		})
	}
}
