package common

import "strings"

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// If the slice is nil, the function does nothing.
func WipeByteArray(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}

// BearerToken extracts the token from an "authorization" value of the form
// "Bearer <token>". The scheme is matched case-insensitively. ok is false
// when the value has no bearer scheme or an empty token.
func BearerToken(value string) (token string, ok bool) {
	if len(value) < len(BearerPrefix) || !strings.EqualFold(value[:len(BearerPrefix)], BearerPrefix) {
		return "", false
	}
	token = strings.TrimSpace(value[len(BearerPrefix):])
	if token == "" {
		return "", false
	}
	return token, true
}
