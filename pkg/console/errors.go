package console

import (
	"errors"
	"net/http"

	"github.com/surenss861/riskmate-sub004/pkg/api"
	"github.com/surenss861/riskmate-sub004/pkg/sighash"
	"github.com/surenss861/riskmate-sub004/pkg/signing"
	"github.com/surenss861/riskmate-sub004/pkg/store"
)

// writeServiceError maps signing and store sentinels to problem responses.
// Anything unrecognised is a 500 with the cause logged, not returned.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, signing.ErrInvalidRequest),
		errors.Is(err, signing.ErrInvalidDataHash),
		errors.Is(err, sighash.ErrInvalidInput),
		errors.Is(err, api.ErrInvalidBody):
		api.WriteErrorR(w, r, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, signing.ErrRunNotFound),
		errors.Is(err, signing.ErrSignatureNotFound),
		errors.Is(err, store.ErrNotFound):
		api.WriteErrorR(w, r, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, store.ErrAlreadyExists):
		api.WriteErrorR(w, r, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, signing.ErrRoleNotHeld),
		errors.Is(err, signing.ErrPolicyDenied):
		api.WriteErrorR(w, r, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, signing.ErrRunNotSealed):
		api.WriteErrorR(w, r, http.StatusUnprocessableEntity, "Unprocessable Entity", err.Error())
	default:
		api.WriteInternal(w, err)
	}
}
