package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrRoundNotFound       = errors.New("round not found")
	ErrRoundExists         = errors.New("round already exists")
	ErrRoundNotPending     = errors.New("round is not pending")
	ErrRoundNotActive      = errors.New("round is not active")
	ErrDuplicateSubmission = errors.New("participant already submitted")
	ErrInvalidTarget       = errors.New("delegation target not on roster")
	ErrUnknownParticipant  = errors.New("participant not on roster")
)
