package types

import "errors"

// Errors returned when constructing addresses, rules and engines. They're
// always wrapped with details about the offending value, so use errors.Is to
// check for them.
var (
	ErrMalformedAddress    = errors.New("malformed address")
	ErrInvalidPortRange    = errors.New("invalid port range")
	ErrInvalidAddressRange = errors.New("invalid address range")
	ErrInvalidBucketCount  = errors.New("invalid bucket count")
	ErrInvalidDirection    = errors.New("invalid direction")
	ErrInvalidProtocol     = errors.New("invalid protocol")
)
