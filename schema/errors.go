package schema

import (
	"errors"
)

var (
	ErrNotExist = errors.New("not_exist_record")
	ErrNotFound = errors.New("not_found")

	// validation
	ErrZeroAmount       = errors.New("zero_amount")
	ErrLengthMismatch   = errors.New("array_length_mismatch")
	ErrInvalidRecipient = errors.New("invalid_recipient")
	ErrInvalidReceiver  = errors.New("invalid_receiver")
	ErrInvalidURI       = errors.New("invalid_uri")
	ErrInvalidPayment   = errors.New("invalid_payment_amount")
	ErrInvalidUnitPrice = errors.New("invalid_unit_price")

	// ledger state
	ErrUnknownProperty     = errors.New("unknown_property")
	ErrLockedForOffset     = errors.New("locked_for_offset")
	ErrTransfersPaused     = errors.New("transfers_paused")
	ErrInsufficientBalance = errors.New("insufficient_balance")

	// market state
	ErrCannotBuyOwnListing      = errors.New("cannot_buy_own_listing")
	ErrInsufficientListedTokens = errors.New("insufficient_listed_tokens")
	ErrInsufficientPayment      = errors.New("insufficient_payment")
	ErrListingUnavailable       = errors.New("listing_unavailable")
	ErrNotListingOwner          = errors.New("not_listing_owner")

	// auth
	ErrNotAllowlisted = errors.New("not_allowlisted")
	ErrNotAdmin       = errors.New("not_admin")
)
