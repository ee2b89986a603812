package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/smallbiznis/ledgerly/internal/account/domain"
	auditdomain "github.com/smallbiznis/ledgerly/internal/audit/domain"
	authdomain "github.com/smallbiznis/ledgerly/internal/auth/domain"
	"github.com/smallbiznis/ledgerly/internal/authorization"
	billdomain "github.com/smallbiznis/ledgerly/internal/bill/domain"
	customerdomain "github.com/smallbiznis/ledgerly/internal/customer/domain"
	expensedomain "github.com/smallbiznis/ledgerly/internal/expense/domain"
	invoicedomain "github.com/smallbiznis/ledgerly/internal/invoice/domain"
	journaldomain "github.com/smallbiznis/ledgerly/internal/journal/domain"
	orgdomain "github.com/smallbiznis/ledgerly/internal/organization/domain"
	paymentdomain "github.com/smallbiznis/ledgerly/internal/payment/domain"
	productdomain "github.com/smallbiznis/ledgerly/internal/product/domain"
	reportdomain "github.com/smallbiznis/ledgerly/internal/report/domain"
	taxdomain "github.com/smallbiznis/ledgerly/internal/tax/domain"
	vendordomain "github.com/smallbiznis/ledgerly/internal/vendors/domain"
	vendorpaymentdomain "github.com/smallbiznis/ledgerly/internal/vendorpayment/domain"
	"gorm.io/gorm"
)

// Transport-level sentinels. Domain packages own their business errors;
// these cover failures that never reach a service.
var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidRequest = errors.New("invalid request body")
	ErrRateLimited    = errors.New("too many requests")
)

// validationSet holds every domain sentinel that maps to 400. Precondition
// refusals live here too: the status is the same and the message
// discriminates.
var validationSet = []error{
	ErrInvalidRequest,

	accountdomain.ErrInvalidName,
	accountdomain.ErrInvalidType,
	accountdomain.ErrInvalidSubtype,
	accountdomain.ErrInvalidID,
	accountdomain.ErrInvalidParent,
	accountdomain.ErrParentTypeMismatch,
	accountdomain.ErrInvalidDateRange,
	accountdomain.ErrSystemAccount,
	accountdomain.ErrHasChildren,
	accountdomain.ErrHasLedgerEntries,
	accountdomain.ErrMissingEquity,

	customerdomain.ErrInvalidName,
	customerdomain.ErrInvalidEmail,
	customerdomain.ErrInvalidID,

	vendordomain.ErrInvalidName,
	vendordomain.ErrInvalidEmail,
	vendordomain.ErrInvalidID,

	productdomain.ErrInvalidName,
	productdomain.ErrInvalidPrice,
	productdomain.ErrInvalidAccount,
	productdomain.ErrInvalidID,

	taxdomain.ErrInvalidName,
	taxdomain.ErrInvalidRate,
	taxdomain.ErrInvalidID,

	invoicedomain.ErrInvalidID,
	invoicedomain.ErrInvalidCustomer,
	invoicedomain.ErrInvalidStatus,
	invoicedomain.ErrInvalidDate,
	invoicedomain.ErrNoLineItems,
	invoicedomain.ErrInvalidQuantity,
	invoicedomain.ErrInvalidUnitPrice,
	invoicedomain.ErrInvalidDiscount,
	invoicedomain.ErrInvalidAmount,
	invoicedomain.ErrInvalidTaxRate,
	invoicedomain.ErrInvalidAccount,
	invoicedomain.ErrInvalidProduct,
	invoicedomain.ErrAlreadySent,
	invoicedomain.ErrVoided,
	invoicedomain.ErrTerminal,
	invoicedomain.ErrHasPayments,
	invoicedomain.ErrPostedImmutable,

	billdomain.ErrInvalidID,
	billdomain.ErrInvalidVendor,
	billdomain.ErrInvalidStatus,
	billdomain.ErrInvalidDate,
	billdomain.ErrNoLineItems,
	billdomain.ErrInvalidQuantity,
	billdomain.ErrInvalidUnitPrice,
	billdomain.ErrInvalidAmount,
	billdomain.ErrInvalidTaxRate,
	billdomain.ErrInvalidAccount,
	billdomain.ErrVoided,
	billdomain.ErrTerminal,
	billdomain.ErrHasPayments,
	billdomain.ErrPostedImmutable,

	paymentdomain.ErrInvalidID,
	paymentdomain.ErrInvalidCustomer,
	paymentdomain.ErrInvalidDate,
	paymentdomain.ErrInvalidAmount,
	paymentdomain.ErrInvalidAccount,
	paymentdomain.ErrInvalidInvoice,
	paymentdomain.ErrCustomerMismatch,
	paymentdomain.ErrOverApplied,
	paymentdomain.ErrExceedsAmountDue,
	paymentdomain.ErrAlreadyVoided,

	vendorpaymentdomain.ErrInvalidID,
	vendorpaymentdomain.ErrInvalidVendor,
	vendorpaymentdomain.ErrInvalidDate,
	vendorpaymentdomain.ErrInvalidAmount,
	vendorpaymentdomain.ErrInvalidAccount,
	vendorpaymentdomain.ErrInvalidBill,
	vendorpaymentdomain.ErrVendorMismatch,
	vendorpaymentdomain.ErrOverApplied,
	vendorpaymentdomain.ErrExceedsAmountDue,
	vendorpaymentdomain.ErrAlreadyVoided,

	expensedomain.ErrInvalidAccount,
	expensedomain.ErrInvalidVendor,
	expensedomain.ErrInvalidDate,
	expensedomain.ErrInvalidAmount,
	expensedomain.ErrInvalidID,
	expensedomain.ErrAlreadyVoided,
	expensedomain.ErrPostedImmutable,
	expensedomain.ErrPostedDelete,

	journaldomain.ErrInvalidID,
	journaldomain.ErrInvalidDate,
	journaldomain.ErrTooFewLines,
	journaldomain.ErrInvalidSide,
	journaldomain.ErrUnbalanced,
	journaldomain.ErrInvalidAccount,
	journaldomain.ErrAlreadyVoided,

	orgdomain.ErrInvalidName,
	orgdomain.ErrInvalidCurrency,
	orgdomain.ErrInvalidFiscalMonth,
	orgdomain.ErrInvalidTimezone,

	reportdomain.ErrInvalidDate,
	reportdomain.ErrInvalidAccount,
	reportdomain.ErrInvalidType,

	auditdomain.ErrInvalidTimeRange,
	auditdomain.ErrInvalidAction,

	authdomain.ErrInvalidEmail,
	authdomain.ErrWeakPassword,
	authdomain.ErrInvalidOrganization,
}

var notFoundSet = []error{
	accountdomain.ErrNotFound,
	customerdomain.ErrNotFound,
	vendordomain.ErrNotFound,
	productdomain.ErrNotFound,
	taxdomain.ErrNotFound,
	invoicedomain.ErrNotFound,
	billdomain.ErrNotFound,
	paymentdomain.ErrNotFound,
	vendorpaymentdomain.ErrNotFound,
	expensedomain.ErrNotFound,
	journaldomain.ErrNotFound,
	orgdomain.ErrNotFound,
	gorm.ErrRecordNotFound,
}

var unauthorizedSet = []error{
	ErrUnauthorized,
	authdomain.ErrInvalidCredentials,
	authdomain.ErrInvalidToken,
	authdomain.ErrTokenExpired,
	authdomain.ErrInactiveUser,
	authdomain.ErrUserNotFound,
}

func isIn(err error, set []error) bool {
	for _, candidate := range set {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}

// statusFor maps a domain error onto the transport taxonomy. Tenant-scope
// misses surface as invalid_organization, which is an auth problem, not a
// caller mistake.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case isIn(err, unauthorizedSet):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden), errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, authdomain.ErrEmailTaken),
		errors.Is(err, accountdomain.ErrDuplicateNumber),
		errors.Is(err, gorm.ErrDuplicatedKey):
		return http.StatusConflict
	case isIn(err, notFoundSet):
		return http.StatusNotFound
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case isIn(err, validationSet):
		return http.StatusBadRequest
	case errors.Is(err, accountdomain.ErrInvalidOrganization),
		errors.Is(err, customerdomain.ErrInvalidOrganization),
		errors.Is(err, vendordomain.ErrInvalidOrganization),
		errors.Is(err, productdomain.ErrInvalidOrganization),
		errors.Is(err, taxdomain.ErrInvalidOrganization),
		errors.Is(err, invoicedomain.ErrInvalidOrganization),
		errors.Is(err, billdomain.ErrInvalidOrganization),
		errors.Is(err, paymentdomain.ErrInvalidOrganization),
		errors.Is(err, vendorpaymentdomain.ErrInvalidOrganization),
		errors.Is(err, expensedomain.ErrInvalidOrganization),
		errors.Is(err, journaldomain.ErrInvalidOrganization),
		errors.Is(err, orgdomain.ErrInvalidOrganization),
		errors.Is(err, reportdomain.ErrInvalidOrganization),
		errors.Is(err, auditdomain.ErrInvalidOrganization):
		return http.StatusUnauthorized
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// respondError writes the wire error shape and records the error for the
// request logger. Internal failures get an opaque message; the detail
// stays in the logs.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	status := statusFor(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	c.AbortWithStatusJSON(status, errorBody{Error: message})
}

// classifyErrorForLog labels request errors for structured logging.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	status := statusFor(err)
	switch {
	case status == http.StatusUnauthorized:
		return "unauthorized", err.Error()
	case status == http.StatusForbidden:
		return "forbidden", err.Error()
	case status == http.StatusNotFound:
		return "not_found", err.Error()
	case status == http.StatusConflict:
		return "conflict", err.Error()
	case status == http.StatusTooManyRequests:
		return "rate_limited", err.Error()
	case status >= 500:
		return "internal", err.Error()
	default:
		return "validation", err.Error()
	}
}
