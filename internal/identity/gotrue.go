package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ovaphlow/pitchfork/service-signup/internal/session"
)

// GoTrueProvider talks to a Supabase/GoTrue compatible auth server.
type GoTrueProvider struct {
	baseURL    string
	apiKey     string
	serviceKey string
	client     *http.Client
}

func NewGoTrueProvider(baseURL, apiKey, serviceKey string, client *http.Client) *GoTrueProvider {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &GoTrueProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		serviceKey: serviceKey,
		client:     client,
	}
}

type gotrueCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type gotrueUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	// With email confirmation on, a signup for an existing email answers 200
	// with a fabricated user whose identities list is empty.
	Identities []json.RawMessage `json:"identities"`
}

func (u *gotrueUser) obfuscated() bool {
	return u.Identities != nil && len(u.Identities) == 0
}

// signup answers with the user itself, or with a session wrapping it when
// autoconfirm is enabled on the server.
type gotrueSignupResponse struct {
	gotrueUser
	User *gotrueUser `json:"user"`
}

type gotrueTokenResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"`
	User        *gotrueUser `json:"user"`
}

type gotrueError struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e gotrueError) text() string {
	for _, s := range []string{e.Msg, e.Message, e.ErrorDescription, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// CreateIdentity calls POST /signup.
func (p *GoTrueProvider) CreateIdentity(ctx context.Context, email, password string) (Ref, error) {
	var out gotrueSignupResponse
	status, body, err := p.do(ctx, http.MethodPost, "/signup", p.apiKey, gotrueCredentials{Email: email, Password: password}, &out)
	if err != nil {
		return "", err
	}
	if status >= 300 {
		return "", signupError(status, body)
	}
	user := &out.gotrueUser
	if user.ID == "" && out.User != nil {
		user = out.User
	}
	if user.obfuscated() {
		return "", ErrDuplicateEmail
	}
	id := user.ID
	if id == "" {
		return "", errors.New("gotrue signup: response carried no user id")
	}
	return Ref(id), nil
}

// Authenticate calls POST /token?grant_type=password.
func (p *GoTrueProvider) Authenticate(ctx context.Context, email, password string) (*session.Session, error) {
	var out gotrueTokenResponse
	status, body, err := p.do(ctx, http.MethodPost, "/token?grant_type=password", p.apiKey, gotrueCredentials{Email: email, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnauthorized:
		return nil, ErrInvalidCredentials
	case status >= 500 || status == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, status)
	case status >= 300:
		return nil, fmt.Errorf("gotrue token: unexpected status %d: %s", status, decodeError(body).text())
	}
	s := &session.Session{Token: out.AccessToken, ExpiresAt: time.Now().Add(time.Duration(out.ExpiresIn) * time.Second)}
	if out.User != nil {
		s.Subject = out.User.ID
	}
	return s, nil
}

// DeleteIdentity calls DELETE /admin/users/{id}; it needs the service role key.
func (p *GoTrueProvider) DeleteIdentity(ctx context.Context, ref Ref) error {
	if p.serviceKey == "" {
		return ErrRemoveNotConfigured
	}
	status, body, err := p.do(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(string(ref)), p.serviceKey, nil, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return nil
	}
	if status >= 500 {
		return fmt.Errorf("%w: status %d", ErrUnavailable, status)
	}
	if status >= 300 {
		return fmt.Errorf("gotrue delete user: unexpected status %d: %s", status, decodeError(body).text())
	}
	return nil
}

func (p *GoTrueProvider) do(ctx context.Context, method, path, bearer string, in, out any) (int, []byte, error) {
	var reqBody io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, nil, err
		}
		reqBody = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("apikey", p.apiKey)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 300 && out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return 0, nil, fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return resp.StatusCode, body, nil
}

func decodeError(body []byte) gotrueError {
	var e gotrueError
	_ = json.Unmarshal(body, &e)
	return e
}

func signupError(status int, body []byte) error {
	e := decodeError(body)
	msg := strings.ToLower(e.text())
	switch {
	case e.ErrorCode == "user_already_exists" || e.ErrorCode == "email_exists" || strings.Contains(msg, "already registered"):
		return ErrDuplicateEmail
	case e.ErrorCode == "weak_password" || strings.Contains(msg, "password should"):
		return fmt.Errorf("%w: %s", ErrWeakCredential, e.text())
	case status >= 500 || status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrUnavailable, status)
	default:
		return fmt.Errorf("gotrue signup: unexpected status %d: %s", status, e.text())
	}
}
