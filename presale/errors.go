package presale

import "errors"

var (
	ErrMalformedAttestation  = errors.New("MalformedAttestation")
	ErrInvalidRarityValue    = errors.New("InvalidRarityValue")
	ErrUntrustedSigner       = errors.New("UntrustedSigner")
	ErrQuantityMismatch      = errors.New("QuantityMismatch")
	ErrNonceAlreadyUsed      = errors.New("NonceAlreadyUsed")
	ErrUnknownCampaign       = errors.New("UnknownCampaign")
	ErrCampaignInactive      = errors.New("CampaignInactive")
	ErrNotEligible           = errors.New("NotEligible")
	ErrInsufficientPayment   = errors.New("InsufficientPayment")
	ErrExceedsPresaleSupply  = errors.New("ExceedsPresaleSupply")
	ErrExceedsMaxPerAddress  = errors.New("ExceedsMaxPerAddress")
	ErrPaymentTransferFailed = errors.New("PaymentTransferFailed")
	ErrInvalidWindow         = errors.New("InvalidWindow")
	ErrWindowLocked          = errors.New("WindowLocked")
	ErrDenominationDisabled  = errors.New("DenominationDisabled")
	ErrInvalidFeeShares      = errors.New("InvalidFeeShares")
	ErrReentrantCall         = errors.New("ReentrantCall")
)

var kinds = []error{
	ErrMalformedAttestation,
	ErrInvalidRarityValue,
	ErrUntrustedSigner,
	ErrQuantityMismatch,
	ErrNonceAlreadyUsed,
	ErrUnknownCampaign,
	ErrCampaignInactive,
	ErrNotEligible,
	ErrInsufficientPayment,
	ErrExceedsPresaleSupply,
	ErrExceedsMaxPerAddress,
	ErrPaymentTransferFailed,
	ErrInvalidWindow,
	ErrWindowLocked,
	ErrDenominationDisabled,
	ErrInvalidFeeShares,
	ErrReentrantCall,
}

// ErrorKind maps an error to its stable kind name, or "Internal" for
// anything outside the taxonomy.
func ErrorKind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k.Error()
		}
	}
	return "Internal"
}
