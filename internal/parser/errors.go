package parser

import "errors"

var (
	errMissingField = errors.New("field is missing")
	errNotNumber    = errors.New("not a number")
)
