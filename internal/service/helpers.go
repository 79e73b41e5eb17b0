package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/noah-isme/campus-lab-api/pkg/errors"
)

// txRunner scopes a unit of work to one database transaction.
type txRunner interface {
	WithinTx(ctx context.Context, fn func(tx sqlx.ExtContext) error) error
}

// transitionMetrics receives committed lifecycle transitions.
type transitionMetrics interface {
	RecordTransition(entity, from, to string)
}

func systemClock() time.Time { return time.Now().UTC() }

// lookupErr maps a repository read failure to NOT_FOUND or INTERNAL_ERROR.
func lookupErr(err error, notFoundMsg, internalMsg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFoundMsg)
	}
	return appErrors.Internal(err, internalMsg)
}

// passthrough returns typed application errors unchanged and wraps anything else as internal.
func passthrough(err error, msg string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Internal(err, msg)
}

func blank(v *string) bool {
	return v == nil || strings.TrimSpace(*v) == ""
}

// mergeText prefers a non-blank incoming value over the stored one.
func mergeText(incoming, stored *string) *string {
	if !blank(incoming) {
		v := strings.TrimSpace(*incoming)
		return &v
	}
	return stored
}

func validationErr(err error, msg string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, msg)
}
