package spdx

import "fmt"

// ParseError reports a malformed declaration file. Line is 1-based and is
// zero when the failure is not tied to a line (for example a read error).
type ParseError struct {
	File string
	Line int
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	loc := e.File
	if loc == "" {
		loc = "<input>"
	}
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, e.Line)
	}
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg += ": " + e.Err.Error()
		}
	}
	return "parse license declarations " + loc + ": " + msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
