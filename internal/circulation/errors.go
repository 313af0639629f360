// internal/circulation/errors.go
package circulation

import "errors"

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrItemUnavailable = errors.New("item is not available")
	ErrNoSuchLoan      = errors.New("no such loan")
)
