package channels

import (
	"net/http"

	"github.com/conversagent/core/ai/errs"
)

// Sentinel router-level errors, grounded on base.go's package-level
// ErrNoChannelForPlatform/ErrInvalidSignature/ErrInvalidPayload, reusing
// this module's shared ai/errs taxonomy instead of a separate
// ChannelError type so callers across packages branch on one error
// shape.
var (
	ErrNoChannelForPlatform = errs.New(errs.KindNotFound, http.StatusNotFound, "no channel registered for platform", nil)
	ErrSignatureInvalid     = errs.New(errs.KindSignatureInvalid, http.StatusUnauthorized, "webhook signature validation failed", nil)
	ErrInvalidPayload       = errs.New(errs.KindInputInvalid, http.StatusBadRequest, "could not parse webhook payload", nil)
)
