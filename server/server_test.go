package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/conversagent/core/channels"
	"github.com/conversagent/core/store"
	"github.com/conversagent/core/tenant"
)

type fakeServerDriver struct {
	store.Driver
	tenant        *store.Tenant
	conversations []*store.Conversation
	customers     []*store.Customer
	apiKeys       []store.APIKey
	auditLogs     []*store.SecurityAuditLog
}

func (f *fakeServerDriver) GetTenant(ctx context.Context, find *store.FindTenant) (*store.Tenant, error) {
	return f.tenant, nil
}

func (f *fakeServerDriver) ListConversations(ctx context.Context, find *store.FindConversation) ([]*store.Conversation, error) {
	return f.conversations, nil
}

func (f *fakeServerDriver) GetConversation(ctx context.Context, tenantID, id string) (*store.Conversation, error) {
	for _, c := range f.conversations {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, require.AnError
}

func (f *fakeServerDriver) ListCustomers(ctx context.Context, tenantID string, limit, offset int) ([]*store.Customer, error) {
	return f.customers, nil
}

func (f *fakeServerDriver) FindCustomer(ctx context.Context, find *store.FindCustomer) (*store.Customer, error) {
	for _, c := range f.customers {
		if find.ID != nil && c.ID == *find.ID {
			return c, nil
		}
	}
	return nil, require.AnError
}

func (f *fakeServerDriver) UpdateCustomer(ctx context.Context, update *store.UpdateCustomer) (*store.Customer, error) {
	for _, c := range f.customers {
		if c.ID == update.ID {
			if update.DisplayName != nil {
				c.DisplayName = *update.DisplayName
			}
			return c, nil
		}
	}
	return nil, require.AnError
}

func (f *fakeServerDriver) ListAPIKeys(ctx context.Context, tenantID string) ([]store.APIKey, error) {
	return f.apiKeys, nil
}

func (f *fakeServerDriver) AddAPIKey(ctx context.Context, tenantID string, key store.APIKey) error {
	f.apiKeys = append(f.apiKeys, key)
	return nil
}

func (f *fakeServerDriver) RevokeAPIKey(ctx context.Context, tenantID, keyID string) error {
	return nil
}

func (f *fakeServerDriver) AppendSecurityAuditLog(ctx context.Context, create *store.CreateSecurityAuditLog) error {
	f.auditLogs = append(f.auditLogs, create.Log)
	return nil
}

type allowAllScopes struct{}

func (allowAllScopes) Scopes(ctx context.Context, tenantID, actorID string) ([]string, error) {
	return []string{"conversations:read", "conversations:write", "customers:read", "customers:write", "api_keys:write"}, nil
}

type noopVerifier struct{}

func (noopVerifier) Verify(channel, signature string, body []byte) bool { return true }
func (noopVerifier) ResolveDestination(channel, destination string) (string, bool) {
	return destination, true
}

func newTestServer(t *testing.T, driver *fakeServerDriver, signingSecret string) (*Server, string) {
	t.Helper()
	st := store.New(driver, nil)
	resolver := tenant.NewResolver(st, allowAllScopes{}, noopVerifier{}, tenant.NewScopeCache(64, time.Minute))
	authn := NewJWTAuthenticator(signingSecret)

	s := New(Config{
		Store:    st,
		Resolver: resolver,
		Authn:    authn,
		Channels: channels.NewRouter(),
	})

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"})
	signed, err := token.SignedString([]byte(signingSecret))
	require.NoError(t, err)
	return s, signed
}

func TestServer_ListConversations_RequiresTenantHeader(t *testing.T) {
	driver := &fakeServerDriver{tenant: &store.Tenant{ID: "t1"}}
	s, token := newTestServer(t, driver, "secret")

	req := httptest.NewRequest(http.MethodGet, "/v1/conversations", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ListConversations_Success(t *testing.T) {
	driver := &fakeServerDriver{
		tenant:        &store.Tenant{ID: "t1"},
		conversations: []*store.Conversation{{ID: "c1", TenantID: "t1", State: store.ConversationOpen}},
	}
	s, token := newTestServer(t, driver, "secret")

	req := httptest.NewRequest(http.MethodGet, "/v1/conversations", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(tenantHeader, "t1")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out []conversationDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	require.Equal(t, "c1", out[0].ID)
}

func TestServer_MissingBearerTokenIs401(t *testing.T) {
	driver := &fakeServerDriver{tenant: &store.Tenant{ID: "t1"}}
	s, _ := newTestServer(t, driver, "secret")

	req := httptest.NewRequest(http.MethodGet, "/v1/conversations", nil)
	req.Header.Set(tenantHeader, "t1")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_CreateAPIKey_ReturnsPlaintextOnceAndAudits(t *testing.T) {
	driver := &fakeServerDriver{tenant: &store.Tenant{ID: "t1"}}
	s, token := newTestServer(t, driver, "secret")

	body, _ := json.Marshal(createAPIKeyRequest{Label: "integration bot"})
	req := httptest.NewRequest(http.MethodPost, "/v1/api-keys", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(tenantHeader, "t1")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var out createAPIKeyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out.Key)
	require.Len(t, driver.apiKeys, 1)
	require.Len(t, driver.auditLogs, 1)
	require.Equal(t, "api_key.created", driver.auditLogs[0].Action)
}

func TestServer_GetConversation_UnknownIDIs500MappedByDriverError(t *testing.T) {
	driver := &fakeServerDriver{tenant: &store.Tenant{ID: "t1"}}
	s, token := newTestServer(t, driver, "secret")

	req := httptest.NewRequest(http.MethodGet, "/v1/conversations/missing", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(tenantHeader, "t1")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_UnknownTenantIs404(t *testing.T) {
	driver := &erroringTenantDriver{}
	st := store.New(driver, nil)
	resolver := tenant.NewResolver(st, allowAllScopes{}, noopVerifier{}, tenant.NewScopeCache(64, time.Minute))
	authn := NewJWTAuthenticator("secret")
	s := New(Config{Store: st, Resolver: resolver, Authn: authn, Channels: channels.NewRouter()})

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"})
	signed, _ := token.SignedString([]byte("secret"))

	req := httptest.NewRequest(http.MethodGet, "/v1/conversations", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	req.Header.Set(tenantHeader, "unknown-tenant")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

type erroringTenantDriver struct {
	store.Driver
}

func (erroringTenantDriver) GetTenant(ctx context.Context, find *store.FindTenant) (*store.Tenant, error) {
	return nil, require.AnError
}
