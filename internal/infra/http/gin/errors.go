package ginserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"rentverse/internal/app/services/auth"
	bookingsvc "rentverse/internal/app/services/booking"
	paymentsvc "rentverse/internal/app/services/payment"
	domainauth "rentverse/internal/domain/auth"
	domainbooking "rentverse/internal/domain/booking"
	domainproperty "rentverse/internal/domain/property"
	"rentverse/internal/domain/shared/daterange"
	"rentverse/internal/domain/shared/money"
	domainuser "rentverse/internal/domain/user"
)

// respondError maps domain sentinels onto HTTP statuses. Anything
// unrecognized is a 500 with a generic body so internals never leak.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return http.StatusUnprocessableEntity
	}
	switch {
	case errors.Is(err, domainbooking.ErrNotFound),
		errors.Is(err, domainbooking.ErrInstallmentNotFound),
		errors.Is(err, domainproperty.ErrNotFound),
		errors.Is(err, domainuser.ErrNotFound),
		errors.Is(err, domainbooking.ErrNoPendingTransaction):
		return http.StatusNotFound
	case errors.Is(err, domainbooking.ErrDatesConflict),
		errors.Is(err, domainbooking.ErrAlreadyPaid),
		errors.Is(err, domainbooking.ErrInvalidState),
		errors.Is(err, domainproperty.ErrInvalidState),
		errors.Is(err, domainbooking.ErrTransactionNotPending),
		errors.Is(err, domainuser.ErrEmailAlreadyUsed):
		return http.StatusConflict
	case errors.Is(err, domainbooking.ErrNotOwned),
		errors.Is(err, domainproperty.ErrNotOwned),
		errors.Is(err, bookingsvc.ErrOwnProperty),
		errors.Is(err, auth.ErrUserBlocked):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, domainauth.ErrSessionNotFound),
		errors.Is(err, domainauth.ErrTokenRequired):
		return http.StatusUnauthorized
	case errors.Is(err, paymentsvc.ErrGatewayUnavailable),
		errors.Is(err, paymentsvc.ErrInvoiceNotSettled):
		return http.StatusBadGateway
	case errors.Is(err, domainbooking.ErrInvalidPaymentType),
		errors.Is(err, domainbooking.ErrInvalidPaymentMethod),
		errors.Is(err, domainbooking.ErrInstallmentCountInvalid),
		errors.Is(err, domainbooking.ErrTotalInvalid),
		errors.Is(err, domainbooking.ErrDepositInvalid),
		errors.Is(err, domainbooking.ErrStartInPast),
		errors.Is(err, domainbooking.ErrPaidAmountMismatch),
		errors.Is(err, domainproperty.ErrNotListed),
		errors.Is(err, domainproperty.ErrTitleRequired),
		errors.Is(err, domainproperty.ErrRateInvalid),
		errors.Is(err, daterange.ErrStartRequired),
		errors.Is(err, daterange.ErrEndBeforeStart),
		errors.Is(err, money.ErrInvalidCurrency),
		errors.Is(err, domainuser.ErrEmailRequired),
		errors.Is(err, domainuser.ErrNameRequired),
		errors.Is(err, auth.ErrPasswordTooShort):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
