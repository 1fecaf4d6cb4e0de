package billing

import (
	"fmt"

	"github.com/google/uuid"
)

// EmptyDocumentError signals that a document resolved to zero valid
// line items. It carries every rejected line with its reason so the
// caller can report exactly what was excluded.
type EmptyDocumentError struct {
	DocumentID uuid.UUID
	Rejections []LineRejection
}

// Error implements the error interface
func (e *EmptyDocumentError) Error() string {
	if len(e.Rejections) == 0 {
		return fmt.Sprintf("document %s has no line items", e.DocumentID)
	}
	return fmt.Sprintf("document %s has no valid line items (%d rejected)", e.DocumentID, len(e.Rejections))
}

// ZeroTotalError signals that a document's lines were entered but net
// to zero. Distinct from EmptyDocumentError so callers can tell
// "nothing entered" from "entered but net zero".
type ZeroTotalError struct {
	DocumentID uuid.UUID
}

// Error implements the error interface
func (e *ZeroTotalError) Error() string {
	return fmt.Sprintf("document %s computes to a zero total", e.DocumentID)
}
