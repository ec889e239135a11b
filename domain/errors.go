package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrFeedExists        = errors.New("feed already exists")
	ErrInvalidFeed       = errors.New("invalid feed")
	ErrNotFeed           = errors.New("not an RSS or Atom feed")
	ErrRefreshInProgress = errors.New("refresh already in progress")
)
