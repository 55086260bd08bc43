package webhook

import "fmt"

// ErrorKind classifies why a webhook document could not be parsed.
type ErrorKind uint8

const (
	KindUndefined ErrorKind = iota
	// KindMalformedJSON is returned when the document is not valid JSON or
	// a field has an unexpected JSON type.
	KindMalformedJSON
	// KindMissingField is returned when a required field is absent.
	KindMissingField
	// KindInvalidIssueNumber is returned when issue.number is not an
	// unsigned integer.
	KindInvalidIssueNumber
	// KindInvalidRepositoryName is returned when repository.full_name is
	// not of the form <owner>/<name>.
	KindInvalidRepositoryName
)

var errorKindString = [...]string{
	KindUndefined:             "undefined",
	KindMalformedJSON:         "malformed json",
	KindMissingField:          "missing field",
	KindInvalidIssueNumber:    "invalid issue number",
	KindInvalidRepositoryName: "invalid repository name",
}

func (k ErrorKind) String() string {
	if int(k) > len(errorKindString)-1 {
		return fmt.Sprintf("unsupported ErrorKind value: %d", k)
	}

	return errorKindString[k]
}

// ParseError is returned when a webhook document can not be converted to an
// Event.
type ParseError struct {
	Kind ErrorKind
	// Field is the dotted JSON path of the offending field, it is empty
	// if the error is not related to a single field.
	Field string
	// Err is the wrapped original error, it can be nil.
	Err error
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Error() string {
	var msg string

	if e.Field == "" {
		msg = fmt.Sprintf("parsing issue_comment webhook failed: %s", e.Kind)
	} else {
		msg = fmt.Sprintf("parsing issue_comment webhook failed: %s: %q", e.Kind, e.Field)
	}

	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}

	return msg
}

func missingFieldError(field string) *ParseError {
	return &ParseError{Kind: KindMissingField, Field: field}
}
