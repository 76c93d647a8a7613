package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/payouts-backend/api/responses"
	"github.com/angelmondragon/payouts-backend/api/validators"
	"github.com/angelmondragon/payouts-backend/internal/payouts"
	pkgerrors "github.com/angelmondragon/payouts-backend/pkg/errors"
	"github.com/angelmondragon/payouts-backend/pkg/logger"
)

const (
	maxBatchLimit  = 500
	maxReasonChars = 180
)

// Sweeper returns stale RELEASING payouts to HELD.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

type batchResponse struct {
	Released int              `json:"released"`
	Skipped  int              `json:"skipped"`
	Failed   int              `json:"failed"`
	Results  []payouts.Result `json:"results"`
}

// ReleaseDuePayouts runs one release batch on demand.
func ReleaseDuePayouts(svc payouts.Service, defaultLimit int, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultLimit, 1, maxBatchLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		results, err := svc.ReleaseDuePayouts(r.Context(), limit, time.Now())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := batchResponse{Results: results}
		if resp.Results == nil {
			resp.Results = []payouts.Result{}
		}
		for _, res := range results {
			switch res.Status {
			case payouts.OutcomeReleased:
				resp.Released++
			case payouts.OutcomeSkipped:
				resp.Skipped++
			case payouts.OutcomeFailed:
				resp.Failed++
			}
		}
		responses.WriteSuccess(w, resp)
	}
}

// ReleasePayout releases a single payout; {"force": true} bypasses the hold timers.
func ReleasePayout(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}
		id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "payoutId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payout id"))
			return
		}

		var opts payouts.ReleaseOptions
		if err := validators.DecodeOptionalJSONBody(r, &opts); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithPayoutID(ctx, id.String())
		}
		result := svc.ReleaseSinglePayout(ctx, id, opts, time.Now())
		if result.Error == payouts.ReasonNotFound {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found"))
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ReconcileReleasing runs the stale-claim sweep on demand.
func ReconcileReleasing(sweeper Sweeper, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sweeper == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciler unavailable"))
			return
		}
		reclaimed, err := sweeper.Sweep(r.Context(), time.Now())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reconcile releasing payouts"))
			return
		}
		responses.WriteSuccess(w, map[string]int{"reclaimed": reclaimed})
	}
}

// ScanStuckPayouts runs the stuck payout monitor on demand.
func ScanStuckPayouts(scanner payouts.StuckScanner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if scanner == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stuck monitor unavailable"))
			return
		}
		report, err := scanner.Scan(r.Context(), time.Now())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "scan stuck payouts"))
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// PayoutSummary returns the pending totals for a recipient account.
func PayoutSummary(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}
		accountID := strings.TrimSpace(chi.URLParam(r, "accountId"))
		summary, err := svc.Summary(r.Context(), accountID, time.Now())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// CreateHeldPayout records a payment's proceeds as a held payout.
func CreateHeldPayout(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}
		var input payouts.CreateHeldInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payout, err := svc.CreateHeld(r.Context(), input, time.Now())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payout)
	}
}

type holdReasonRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// BlockHeldPayout blocks a held payout, e.g. while a dispute is open.
func BlockHeldPayout(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, req, ok := holdRequest(w, r, svc, logg)
		if !ok {
			return
		}
		payout, err := svc.Block(r.Context(), ref, req.Reason, time.Now())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payout)
	}
}

// UnblockHeldPayout returns a blocked payout to HELD.
func UnblockHeldPayout(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}
		ref := strings.TrimSpace(chi.URLParam(r, "sourceReference"))
		payout, err := svc.Unblock(r.Context(), ref, time.Now())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payout)
	}
}

// CancelHeldPayout cancels a payout that must never be transferred (refund, chargeback).
func CancelHeldPayout(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, req, ok := holdRequest(w, r, svc, logg)
		if !ok {
			return
		}
		payout, err := svc.Cancel(r.Context(), ref, req.Reason, time.Now())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payout)
	}
}

func holdRequest(w http.ResponseWriter, r *http.Request, svc payouts.Service, logg *logger.Logger) (string, holdReasonRequest, bool) {
	var req holdReasonRequest
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
		return "", req, false
	}
	if err := validators.DecodeJSONBody(r, &req); err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return "", req, false
	}
	req.Reason = validators.SanitizeString(req.Reason, maxReasonChars)
	return strings.TrimSpace(chi.URLParam(r, "sourceReference")), req, true
}
