package services

import "errors"

// Sentinel errors surfaced by the management surface. Handlers translate
// them to 404/403 responses.
var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
)
