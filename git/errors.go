package git

import (
	scogerr "github.com/b1zzu/scog/errors"
)

// fields builds an error context map from alternating keys and values.
func fields(kv ...string) map[string]interface{} {
	m := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	return m
}

// wrap attaches code and context to a go-git error.
func wrap(err error, code scogerr.ErrorCode, msg string, kv ...string) error {
	return scogerr.WrapWithContext(err, code, msg, fields(kv...))
}

// fail creates a coded error that has no underlying cause.
func fail(code scogerr.ErrorCode, msg string, kv ...string) error {
	return scogerr.NewWithContext(code, msg, fields(kv...))
}
