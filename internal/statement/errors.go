package statement

import "fmt"

// DecryptionError means the PDF could not be unlocked: wrong password
// or a corrupt encryption dictionary. It is fatal for the statement;
// the caller decides whether to retry with different credentials.
type DecryptionError struct {
	Err error
}

func (e *DecryptionError) Error() string {
	return fmt.Sprintf("decrypt statement pdf: %v", e.Err)
}

func (e *DecryptionError) Unwrap() error { return e.Err }

// ExtractionError means the decrypted PDF's structure could not be
// read. It always propagates; pages are never silently truncated.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract statement text: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
