package fhir

// OperationOutcome severity levels per FHIR R4 spec.
const (
	IssueSeverityFatal       = "fatal"
	IssueSeverityError       = "error"
	IssueSeverityWarning     = "warning"
	IssueSeverityInformation = "information"
)

// OperationOutcome issue type codes per FHIR R4 spec.
const (
	IssueTypeInvalid     = "invalid"
	IssueTypeStructure   = "structure"
	IssueTypeRequired    = "required"
	IssueTypeValue       = "value"
	IssueTypeNotFound    = "not-found"
	IssueTypeConflict    = "conflict"
	IssueTypeDuplicate   = "duplicate"
	IssueTypeProcessing  = "processing"
	IssueTypeSecurity    = "security"
	IssueTypeForbidden   = "forbidden"
	IssueTypeException   = "exception"
	IssueTypeCodeInvalid = "code-invalid"
)

// ValidationOutcome creates an OperationOutcome for a single field-level
// failure. The field becomes the issue expression when set.
func ValidationOutcome(field, diagnostics string) *OperationOutcome {
	oo := NewOperationOutcome(IssueSeverityError, IssueTypeValue, diagnostics)
	if field != "" {
		oo.Issue[0].Expression = []string{field}
	}
	return oo
}

// InvalidOutcome creates an OperationOutcome for a structurally unusable payload.
func InvalidOutcome(diagnostics string) *OperationOutcome {
	return NewOperationOutcome(IssueSeverityError, IssueTypeInvalid, diagnostics)
}

// ConflictOutcome creates a 409-style OperationOutcome.
func ConflictOutcome(diagnostics string) *OperationOutcome {
	return NewOperationOutcome(IssueSeverityError, IssueTypeConflict, diagnostics)
}

// ExceptionOutcome creates a 500-style OperationOutcome. The diagnostics must
// never carry internal error text.
func ExceptionOutcome() *OperationOutcome {
	return NewOperationOutcome(IssueSeverityFatal, IssueTypeException, "internal server error")
}
