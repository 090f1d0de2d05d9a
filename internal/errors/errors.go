package errors

type ErrorCode string

const (
	CodeDuplicateRecipient    ErrorCode = "duplicate_recipient"
	CodeTermsNotAccepted      ErrorCode = "terms_not_accepted"
	CodeDispatchFailed        ErrorCode = "dispatch_failed"
	CodeVaultAlreadySubmitted ErrorCode = "vault_already_submitted"
	CodeBatchNotFound         ErrorCode = "batch_not_found"
	CodeInvalidItemSpec       ErrorCode = "invalid_item_spec"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (se ServiceError) Error() string {
	return se.Message
}

func (se ServiceError) Unwrap() error {
	return se.Err
}

// New wraps err with a domain code so the API layer can map it to a stable
// error response.
func New(code ErrorCode, message string, err error) ServiceError {
	return ServiceError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
