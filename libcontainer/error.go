package libcontainer

import "errors"

var (
	ErrExist      = errors.New("container with given ID already exists")
	ErrInvalidID  = errors.New("invalid container ID format")
	ErrNotExist   = errors.New("container does not exist")
	ErrDestroyed  = errors.New("container no longer exists")
	ErrBadVersion = errors.New("unsupported state file version")

	ErrInvalidName       = errors.New("invalid namespace name")
	ErrDuplicateName     = errors.New("namespace name already in use")
	ErrDuplicateType     = errors.New("namespace type already tracked")
	ErrNamespaceNotFound = errors.New("namespace not found")
	ErrNamespaceOwned    = errors.New("namespace already belongs to a container")
	ErrNamespaceReleased = errors.New("namespace has been released")
)
