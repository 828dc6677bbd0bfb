package metadata

import "fmt"

// DecodeError reports section data that is not valid UTF-8 or does not
// parse as a stream of metadata documents.
type DecodeError struct {
	// Doc is the zero-based index of the offending document in the
	// stream, or -1 when the failure is not tied to one document.
	Doc int
	Msg string
	Err error
}

func (e *DecodeError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg != "" {
			msg += ": "
		}
		msg += e.Err.Error()
	}
	if e.Doc < 0 {
		return "decode metadata: " + msg
	}
	return fmt.Sprintf("decode metadata: document %d: %s", e.Doc, msg)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// HeaderConflictError reports two compilation units that disagree on the
// value of a header that must be identical across units.
type HeaderConflictError struct {
	Key      string
	Existing any
	Incoming any
	// Unit is the index of the document that introduced Incoming.
	Unit int
}

func (e *HeaderConflictError) Error() string {
	return fmt.Sprintf("header %q conflicts in unit %d: %v != %v", e.Key, e.Unit, e.Existing, e.Incoming)
}
