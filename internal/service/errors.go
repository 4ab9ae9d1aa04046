package service

import "errors"

// ErrPermissionDenied indicates the requesting user may not manage the
// allow-list for the chat. Reported to the requester, never fatal.
var ErrPermissionDenied = errors.New("permission denied")
