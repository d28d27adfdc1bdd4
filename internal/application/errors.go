package application

import (
	"errors"

	"github.com/oksasatya/go-ddd-storefront/internal/domain/entity"
	"github.com/oksasatya/go-ddd-storefront/internal/domain/repository"
	"github.com/oksasatya/go-ddd-storefront/pkg/apperror"
)

// notFoundOr maps repository.ErrNotFound to a NotFound with msg, anything else to Internal.
func notFoundOr(err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound(msg)
	}
	return apperror.Internal(err)
}

func requireAdmin(p entity.Principal) error {
	if p.UserID == "" {
		return apperror.Unauthorized("not authorized, no token")
	}
	if !p.IsAdmin {
		return apperror.Forbidden("not authorized as admin")
	}
	return nil
}

func requireUser(p entity.Principal) error {
	if p.UserID == "" {
		return apperror.Unauthorized("not authorized, no token")
	}
	return nil
}
