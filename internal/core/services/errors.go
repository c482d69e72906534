package services

import "errors"

// Tasking errors
var (
	ErrNilSampler = errors.New("tasking: sampler is not invocable")
)

// Round errors
var (
	ErrRoundNotFound = errors.New("round: not found")
	ErrNoActiveRound = errors.New("round: no active round")
)
