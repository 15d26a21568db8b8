package solana

import "errors"

var (
	// ErrInvalidAddress is returned when the tracked account is not a valid base58 public key.
	ErrInvalidAddress = errors.New("invalid account address")

	// ErrEpochResolution is returned when the current epoch start cannot be determined.
	ErrEpochResolution = errors.New("failed to resolve epoch start")

	// ErrSignatureFetch is returned when listing signatures for the account fails.
	ErrSignatureFetch = errors.New("failed to fetch signatures")

	// ErrSignatureParse aborts a batch when the node returns a malformed signature.
	ErrSignatureParse = errors.New("failed to parse signature")

	// ErrTimeout is returned when a fetch cycle exceeds its deadline.
	ErrTimeout = errors.New("timeout fetching transactions")

	// ErrTransactionFetch marks a single transaction that could not be fetched.
	ErrTransactionFetch = errors.New("failed to fetch transaction")

	// ErrNegativeAmount marks a transaction whose receiver balance decreased.
	ErrNegativeAmount = errors.New("negative balance delta")

	// ErrMissingBalances marks a transaction without usable balance metadata.
	ErrMissingBalances = errors.New("missing balance metadata")
)
