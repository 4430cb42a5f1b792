package utils

import "errors"

var (
	errUnsupportedScheme = errors.New("only http and https URLs are supported")
	errMissingHost       = errors.New("URL has no host")
)
