package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"studyhub/internal/config"
	"studyhub/internal/database"
	"studyhub/internal/database/databasetest"
	"studyhub/internal/database/models"
	"studyhub/internal/notify"
	"studyhub/internal/utils"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type recordingMail struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (m *recordingMail) Enqueue(msg notify.Message) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return true
}

func (m *recordingMail) messages() []notify.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.Message(nil), m.sent...)
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.subjects...)
}

type testEnv struct {
	t    *testing.T
	srv  *FiberServer
	db   database.Service
	cfg  *config.Config
	mail *recordingMail
	pub  *recordingPublisher
}

func newTestEnv(t *testing.T, tweak ...func(*config.Config)) *testEnv {
	t.Helper()
	utils.HashCost = bcrypt.MinCost

	cfg := config.Default()
	cfg.AppEnv = config.EnvTest
	cfg.Limits.MaxRequests = 10000
	cfg.Limits.AuthMax = 1000
	cfg.DataFile = filepath.Join(t.TempDir(), "data.json")
	for _, fn := range tweak {
		fn(cfg)
	}

	env := &testEnv{
		t:    t,
		db:   databasetest.NewSQLite(t),
		cfg:  cfg,
		mail: &recordingMail{},
		pub:  &recordingPublisher{},
	}
	env.srv = New(Deps{
		Config:    cfg,
		DB:        env.db,
		Mail:      env.mail,
		Publisher: env.pub,
	})
	env.srv.RegisterFiberRoutes()
	return env
}

type response struct {
	Status int
	Header http.Header
	Body   map[string]interface{}
}

func (e *testEnv) do(method, path string, body interface{}, token string) response {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.srv.Test(req, -1)
	require.NoError(e.t, err)
	defer resp.Body.Close()

	out := response{Status: resp.StatusCode, Header: resp.Header}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(e.t, json.Unmarshal(raw, &out.Body))
	}
	return out
}

// user creates an active account directly in the store and returns it with
// a valid access token.
func (e *testEnv) user(email, role string) (*models.User, string) {
	e.t.Helper()
	hash, err := utils.HashPassword("password123")
	require.NoError(e.t, err)
	u := &models.User{Email: email, FirstName: "Test", LastName: "User", Password: hash, Role: role, IsActive: true}
	require.NoError(e.t, e.srv.users.Create(context.Background(), u))

	token, err := e.srv.tokens.IssueAccess(u.ID, u.Email, u.Role)
	require.NoError(e.t, err)
	return u, token
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

func obj(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}

func list(v interface{}) []interface{} {
	l, _ := v.([]interface{})
	return l
}
