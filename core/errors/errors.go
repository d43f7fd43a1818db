package errors

import stderrors "errors"

// Kind classifies a rejected vault engine call. Every expected failure maps to
// exactly one kind so callers can branch without string matching.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNotAuthorized
	KindInvalidParameters
	KindInvalidCollateral
	KindUndercollateralized
	KindOraclePriceUnavailable
	KindLiquidationNotAllowed
	KindMintLimitExceeded
	KindInsufficientBalance
	KindUnauthorizedVaultAction
	KindPaused
	KindInternal
)

var kindNames = map[Kind]string{
	KindUnknown:                 "Unknown",
	KindNotAuthorized:           "NotAuthorized",
	KindInvalidParameters:       "InvalidParameters",
	KindInvalidCollateral:       "InvalidCollateral",
	KindUndercollateralized:     "Undercollateralized",
	KindOraclePriceUnavailable:  "OraclePriceUnavailable",
	KindLiquidationNotAllowed:   "LiquidationNotAllowed",
	KindMintLimitExceeded:       "MintLimitExceeded",
	KindInsufficientBalance:     "InsufficientBalance",
	KindUnauthorizedVaultAction: "UnauthorizedVaultAction",
	KindPaused:                  "Paused",
	KindInternal:                "Internal",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Error is a classified engine failure. Instances are used as sentinels and
// compared by identity through errors.Is.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// New returns a classified sentinel error.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var classified *Error
	if stderrors.As(err, &classified) {
		return classified.Kind
	}
	return KindInternal
}

// Is reports whether err carries the supplied kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

var (
	ErrNotAuthorized           = New(KindNotAuthorized, "cdp: caller not authorized")
	ErrInvalidParameters       = New(KindInvalidParameters, "cdp: invalid parameters")
	ErrInvalidCollateral       = New(KindInvalidCollateral, "cdp: collateral must be positive")
	ErrUndercollateralized     = New(KindUndercollateralized, "cdp: vault would be undercollateralized")
	ErrOraclePriceUnavailable  = New(KindOraclePriceUnavailable, "cdp: oracle price unavailable")
	ErrLiquidationNotAllowed   = New(KindLiquidationNotAllowed, "cdp: vault not eligible for liquidation")
	ErrMintLimitExceeded       = New(KindMintLimitExceeded, "cdp: mint limit exceeded")
	ErrInsufficientBalance     = New(KindInsufficientBalance, "cdp: amount exceeds vault balance")
	ErrUnauthorizedVaultAction = New(KindUnauthorizedVaultAction, "cdp: caller may not act on this vault")
	ErrPaused                  = New(KindPaused, "cdp: action paused")

	// Distinct InvalidParameters cases callers commonly need to tell apart.
	ErrVaultIDOutOfRange = New(KindInvalidParameters, "cdp: vault id never issued")
	ErrVaultNotFound     = New(KindInvalidParameters, "cdp: vault not found")
	ErrVaultIDExhausted  = New(KindInvalidParameters, "cdp: vault id space exhausted")
	ErrInvalidAmount     = New(KindInvalidParameters, "cdp: amount must be positive")
	ErrAmountOverflow    = New(KindInvalidParameters, "cdp: amount exceeds 256 bits")
	ErrPriceStale        = New(KindOraclePriceUnavailable, "cdp: oracle price stale")
)
