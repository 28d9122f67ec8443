// Package server exposes the admin HTTP API (§6) over echo, grounded on
// server/router/api/v1/v1.go's echo-based service composition — without
// its connect-rpc/protobuf/grpc-gateway stack, since this module speaks
// plain JSON over REST rather than the teacher's gRPC-gateway surface.
// Authentication and RBAC evaluation are external collaborators per
// spec.md §6; Server takes a tenant.Resolver plus a BearerAuthenticator
// so it never implements credential verification itself.
package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/conversagent/core/ai/errs"
)

// envelope is the JSON error shape every failed request returns.
type envelope struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// httpErrorHandler maps ai/errs.Error (and tenant/echo errors) onto the
// {error, code, details?} envelope and the status each Kind carries,
// per spec.md §7's error taxonomy.
func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *errs.Error
	if as, ok := err.(*errs.Error); ok {
		apiErr = as
	}
	if apiErr != nil {
		_ = c.JSON(apiErr.Status, envelope{
			Error: apiErr.Message,
			Code:  string(apiErr.Kind),
		})
		return
	}

	if he, ok := err.(*echo.HTTPError); ok {
		msg, _ := he.Message.(string)
		_ = c.JSON(he.Code, envelope{Error: msg, Code: "InputInvalid"})
		return
	}

	_ = c.JSON(http.StatusInternalServerError, envelope{Error: "internal error", Code: "Internal"})
}
