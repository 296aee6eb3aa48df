package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/hungrypanda/internal/domain/apperr"
	"github.com/xenking/hungrypanda/internal/domain/cart"
	"github.com/xenking/hungrypanda/internal/domain/order"
	"github.com/xenking/hungrypanda/pkg/httpmiddleware"
)

// problem is the error body: {"code","message"} plus per-kind details.
type problem struct {
	status  int
	code    string
	message string
	extra   func(e *jx.Encoder)
}

func (p problem) encode(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		strField(e, "code", p.code)
		strField(e, "message", p.message)
		if p.extra != nil {
			p.extra(e)
		}
	})
}

// problemFor maps a domain error to its HTTP representation.
func problemFor(err error) problem {
	var (
		ve  *apperr.ValidationError
		nf  *apperr.NotFoundError
		ref *apperr.ReferentialError
		te  *apperr.TransientError
		ite *order.InvalidTransitionError
		rce *cart.RestaurantConflictError
	)
	switch {
	case errors.As(err, &ve):
		return problem{
			status:  http.StatusBadRequest,
			code:    "validation_error",
			message: ve.Message,
			extra: func(e *jx.Encoder) {
				optField(e, "field", ve.Field)
			},
		}
	case errors.As(err, &nf):
		return problem{
			status:  http.StatusNotFound,
			code:    "not_found",
			message: nf.Error(),
			extra: func(e *jx.Encoder) {
				strField(e, "entity", nf.Entity)
				strField(e, "id", nf.ID)
			},
		}
	case errors.Is(err, apperr.ErrUnauthenticated):
		return problem{status: http.StatusUnauthorized, code: "unauthenticated", message: "a valid api_key header is required"}
	case errors.Is(err, apperr.ErrForbidden):
		return problem{status: http.StatusForbidden, code: "forbidden", message: apperr.ErrForbidden.Error()}
	case errors.As(err, &ite):
		return problem{
			status:  http.StatusConflict,
			code:    "invalid_transition",
			message: ite.Error(),
			extra: func(e *jx.Encoder) {
				strField(e, "from", ite.From.String())
				strField(e, "to", ite.To.String())
				e.Field("allowed", func(e *jx.Encoder) { encodeStatuses(e, ite.From.Next()) })
			},
		}
	case errors.As(err, &rce):
		return problem{
			status:  http.StatusConflict,
			code:    "restaurant_conflict",
			message: rce.Error(),
			extra: func(e *jx.Encoder) {
				strField(e, "currentRestaurantId", rce.Current)
				strField(e, "requestedRestaurantId", rce.Requested)
			},
		}
	case errors.As(err, &ref):
		return problem{
			status:  http.StatusConflict,
			code:    "referenced",
			message: ref.Error(),
			extra: func(e *jx.Encoder) {
				strField(e, "entity", ref.Entity)
				strField(e, "id", ref.ID)
			},
		}
	case errors.As(err, &te):
		return problem{status: http.StatusServiceUnavailable, code: "unavailable", message: "service temporarily unavailable, please retry"}
	default:
		return problem{status: http.StatusInternalServerError, code: "internal", message: "internal server error"}
	}
}

// writeError logs err and writes its problem body. Internal details of
// transient and unexpected errors stay in the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	p := problemFor(err)
	lg := zctx.From(r.Context())
	if p.status >= http.StatusInternalServerError {
		lg.Error("Request error", zap.Int("status", p.status), zap.Error(err))
	} else {
		lg.Debug("Request rejected", zap.Int("status", p.status), zap.Error(err))
	}

	id := httpmiddleware.RequestIDFromContext(r.Context())
	writeJSON(w, p.status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			strField(e, "code", p.code)
			strField(e, "message", p.message)
			if p.extra != nil {
				p.extra(e)
			}
			optField(e, "requestId", id)
		})
	})
}
