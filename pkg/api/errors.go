package api

import "errors"

// ErrForbiddenOrigin is the sentinel behind every 403 a mutating
// endpoint returns for a non-loopback caller (spec.md §7,
// "ForbiddenOrigin — non-loopback mutating call. 403.").
var ErrForbiddenOrigin = errors.New("api: mutating endpoints are loopback-only")
