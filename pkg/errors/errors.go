package errors

import "fmt"

// DatabaseError represents a database-specific error
type DatabaseError struct {
	Code    int
	Message string
	Cause   error
}

func (e DatabaseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("database error %d: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("database error %d: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e DatabaseError) Unwrap() error {
	return e.Cause
}

// Is matches a target DatabaseError by code. A category target (code divisible
// by 100) matches every error of that category.
func (e DatabaseError) Is(target error) bool {
	t, ok := target.(DatabaseError)
	if !ok {
		return false
	}
	if t.Code == e.Code {
		return true
	}
	return IsCategory(t.Code) && Category(e.Code) == t.Code
}

// Category returns the category code an error code belongs to.
func Category(code int) int {
	return code / 100 * 100
}

// IsCategory reports whether code names a whole category.
func IsCategory(code int) bool {
	return code != ErrCodeUnknown && code%100 == 0
}

// Error codes
const (
	ErrCodeUnknown = 0

	ErrCodeSchemaViolation = 1100
	ErrCodeTypeMismatch    = 1101
	ErrCodeColumnSet       = 1102
	ErrCodeInvalidSchema   = 1103
	ErrCodeUnknownColumn   = 1104

	ErrCodeConstraintViolation = 1200
	ErrCodeDuplicateKey        = 1201
	ErrCodeDuplicateUnique     = 1202

	ErrCodeLookup           = 2100
	ErrCodeRowNotFound      = 2101
	ErrCodeNoIndexForColumn = 2102

	ErrCodeCatalog        = 2200
	ErrCodeUnknownTable   = 2201
	ErrCodeDuplicateTable = 2202

	ErrCodeStorageError  = 3000
	ErrCodeRowTooLarge   = 3001
	ErrCodeInvalidPageID = 3002
	ErrCodeCorruptPage   = 3003
	ErrCodeStoreClosed   = 3004

	ErrCodeConcurrencyError = 4000
	ErrCodeWriterBusy       = 4001
	ErrCodeTxnNotActive     = 4002

	ErrCodeJoinError          = 5000
	ErrCodeJoinOutputOverflow = 5001
)

// Sentinels for errors.Is. Category sentinels match all of their members.
var (
	ErrSchemaViolation = DatabaseError{Code: ErrCodeSchemaViolation, Message: "schema violation"}
	ErrTypeMismatch    = DatabaseError{Code: ErrCodeTypeMismatch, Message: "type mismatch"}
	ErrColumnSet       = DatabaseError{Code: ErrCodeColumnSet, Message: "column set mismatch"}
	ErrInvalidSchema   = DatabaseError{Code: ErrCodeInvalidSchema, Message: "invalid schema"}
	ErrUnknownColumn   = DatabaseError{Code: ErrCodeUnknownColumn, Message: "unknown column"}

	ErrConstraintViolation = DatabaseError{Code: ErrCodeConstraintViolation, Message: "constraint violation"}
	ErrDuplicateKey        = DatabaseError{Code: ErrCodeDuplicateKey, Message: "duplicate primary key"}
	ErrDuplicateUnique     = DatabaseError{Code: ErrCodeDuplicateUnique, Message: "duplicate unique value"}

	ErrRowNotFound      = DatabaseError{Code: ErrCodeRowNotFound, Message: "row not found"}
	ErrNoIndexForColumn = DatabaseError{Code: ErrCodeNoIndexForColumn, Message: "no index for column"}

	ErrUnknownTable   = DatabaseError{Code: ErrCodeUnknownTable, Message: "unknown table"}
	ErrDuplicateTable = DatabaseError{Code: ErrCodeDuplicateTable, Message: "duplicate table"}

	ErrStorage       = DatabaseError{Code: ErrCodeStorageError, Message: "storage error"}
	ErrRowTooLarge   = DatabaseError{Code: ErrCodeRowTooLarge, Message: "row too large"}
	ErrInvalidPageID = DatabaseError{Code: ErrCodeInvalidPageID, Message: "invalid page id"}
	ErrCorruptPage   = DatabaseError{Code: ErrCodeCorruptPage, Message: "corrupt page"}
	ErrStoreClosed   = DatabaseError{Code: ErrCodeStoreClosed, Message: "store closed"}

	ErrWriterBusy   = DatabaseError{Code: ErrCodeWriterBusy, Message: "writer busy"}
	ErrTxnNotActive = DatabaseError{Code: ErrCodeTxnNotActive, Message: "transaction is not active"}

	ErrJoinOutputOverflow = DatabaseError{Code: ErrCodeJoinOutputOverflow, Message: "join output overflow"}
)

// NewDatabaseError creates a new database error
func NewDatabaseError(code int, message string, cause error) error {
	return DatabaseError{Code: code, Message: message, Cause: cause}
}

// Newf creates a database error with a formatted message.
func Newf(code int, format string, args ...interface{}) error {
	return DatabaseError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewStorageError creates a storage error
func NewStorageError(message string, cause error) error {
	return NewDatabaseError(ErrCodeStorageError, message, cause)
}

// TypeMismatch reports a value whose runtime type differs from its column.
func TypeMismatch(column string, want, got fmt.Stringer) error {
	return Newf(ErrCodeTypeMismatch, "column %q expects %s, got %s", column, want, got)
}

// CorruptPage reports a page that failed to decode.
func CorruptPage(pageID int64, cause error) error {
	return NewDatabaseError(ErrCodeCorruptPage, fmt.Sprintf("page %d failed to decode", pageID), cause)
}
