package server

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/conversagent/core/ai/errs"
	"github.com/conversagent/core/store"
	"github.com/conversagent/core/tenant"
)

type apiKeyDTO struct {
	ID         string     `json:"id"`
	Prefix     string     `json:"prefix"`
	Label      string     `json:"label"`
	CreatedBy  string     `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

func toAPIKeyDTO(k store.APIKey) apiKeyDTO {
	return apiKeyDTO{ID: k.ID, Prefix: k.Prefix, Label: k.Label, CreatedBy: k.CreatedBy, CreatedAt: k.CreatedAt, LastUsedAt: k.LastUsedAt}
}

func (s *Server) listAPIKeys(c echo.Context) error {
	tc := TenantContext(c)
	keys, err := s.store.ListAPIKeys(c.Request().Context(), tc.TenantID)
	if err != nil {
		return err
	}
	out := make([]apiKeyDTO, 0, len(keys))
	for _, k := range keys {
		out = append(out, toAPIKeyDTO(k))
	}
	return c.JSON(http.StatusOK, out)
}

type createAPIKeyRequest struct {
	Label string `json:"label"`
}

type createAPIKeyResponse struct {
	apiKeyDTO
	// Key is the plaintext secret, returned only once at creation time;
	// only its SHA-256 hash and display prefix are persisted.
	Key string `json:"key"`
}

func (s *Server) createAPIKey(c echo.Context) error {
	tc := TenantContext(c)
	var req createAPIKeyRequest
	if err := c.Bind(&req); err != nil {
		return errs.InputInvalid("malformed request body", err)
	}
	if req.Label == "" {
		return errs.InputInvalid("label is required", nil)
	}

	secret, err := generateAPIKeySecret()
	if err != nil {
		return err
	}
	hash := sha256.Sum256([]byte(secret))

	key := store.APIKey{
		ID:         uuid.NewString(),
		HashSHA256: hex.EncodeToString(hash[:]),
		Prefix:     secret[:8],
		Label:      req.Label,
		CreatedBy:  tc.Actor.ID,
		CreatedAt:  time.Now(),
	}

	if err := s.store.AddAPIKey(c.Request().Context(), tc.TenantID, key); err != nil {
		return err
	}

	s.auditAPIKeyAction(c, tc, "api_key.created", key.ID)

	return c.JSON(http.StatusCreated, createAPIKeyResponse{apiKeyDTO: toAPIKeyDTO(key), Key: secret})
}

func (s *Server) revokeAPIKey(c echo.Context) error {
	tc := TenantContext(c)
	id := c.Param("id")
	if err := s.store.RevokeAPIKey(c.Request().Context(), tc.TenantID, id); err != nil {
		return err
	}
	s.auditAPIKeyAction(c, tc, "api_key.revoked", id)
	return c.NoContent(http.StatusNoContent)
}

// auditAPIKeyAction appends a best-effort security audit trail entry;
// a write failure is not surfaced to the caller since the mutation
// itself already succeeded.
func (s *Server) auditAPIKeyAction(c echo.Context, tc tenant.Context, action, keyID string) {
	_ = s.store.AppendSecurityAuditLog(c.Request().Context(), &store.CreateSecurityAuditLog{
		Log: &store.SecurityAuditLog{
			TenantID:  tc.TenantID,
			Actor:     tc.Actor.ID,
			Action:    action,
			Detail:    keyID,
			RiskLevel: "medium",
			CreatedAt: time.Now(),
		},
	})
}

func generateAPIKeySecret() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate api key secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
