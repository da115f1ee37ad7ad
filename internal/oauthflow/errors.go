package oauthflow

import "errors"

// ErrInvalidState covers a missing/mismatched/expired CSRF state, mapped to
// a bad-request response by the HTTP surface.
var ErrInvalidState = errors.New("oauthflow: invalid or expired state")

// ErrUpstreamExchange covers a failed authorization-code exchange or
// userinfo fetch, mapped to an unauthorized response.
var ErrUpstreamExchange = errors.New("oauthflow: upstream exchange failed")
