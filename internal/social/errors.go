package social

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrSelfFollow      = errors.New("cannot follow yourself")
	ErrSelfBlock       = errors.New("cannot block yourself")
	ErrInvalidReaction = errors.New("invalid reaction")
	ErrEmptyComment    = errors.New("comment is empty")
	ErrInvalidRanking  = errors.New("invalid ranking")
	ErrInvalidReport   = errors.New("invalid report")
	ErrInvalidUser     = errors.New("invalid user")
	ErrConflict        = errors.New("already taken")
)
