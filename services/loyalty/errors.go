package loyalty

import "vaultbooks/pkg/errutil"

var (
	ErrCustomerNotFound   = errutil.NotFound("customer not found", nil)
	ErrCustomerExists     = errutil.Conflict("customer already exists", nil)
	ErrInvalidCustomerID  = errutil.BadRequest("customer id is required", nil)
	ErrInvalidAmount      = errutil.BadRequest("amount must be a non-negative number", nil)
	ErrRewardNotFound     = errutil.NotFound("reward not found", nil)
	ErrRewardNotEligible  = errutil.UnprocessableEntity("reward not available for this customer", nil)
	ErrInsufficientPoints = errutil.UnprocessableEntity("insufficient points", nil)
	ErrInvalidOrExpired   = errutil.UnprocessableEntity("invalid or expired reward", nil)
	ErrSelfReferral       = errutil.BadRequest("customer cannot refer themselves", nil)
	ErrDuplicateReferral  = errutil.Conflict("customer already referred", nil)
	ErrReferralDisabled   = errutil.Forbidden("referral program is disabled", nil)
	ErrExportUnavailable  = errutil.New(errutil.StatusServiceUnavailable, "history export is not configured")
)
