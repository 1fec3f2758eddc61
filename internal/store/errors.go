package store

import "errors"

var (
	ErrNotFound     = errors.New("record not found")
	ErrGoalNotFound = errors.New("goal not found")
	ErrInvalid      = errors.New("invalid record")
)
