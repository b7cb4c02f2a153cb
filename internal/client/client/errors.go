package client

import "errors"

var (
	ErrNotLoggedIn     = errors.New("not logged in")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrUnexpectedReply = errors.New("unexpected server reply")
)
