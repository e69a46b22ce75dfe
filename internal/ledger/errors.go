package ledger

// Error is a ledger rejection with a stable code that travels over the wire
type Error struct {
	code    string
	message string
}

func (e *Error) Error() string { return e.message }

// Code returns the wire code of the error
func (e *Error) Code() string { return e.code }

// Ledger rejections
var (
	ErrInsufficientFunds = &Error{code: "insufficient_funds", message: "insufficient funds"}
	ErrAuthorityMismatch = &Error{code: "authority_mismatch", message: "authority does not control the account"}
	ErrMintNotFound      = &Error{code: "mint_not_found", message: "mint not found"}
	ErrInvalidRequest    = &Error{code: "invalid_request", message: "invalid request"}
)
