package domain

import "errors"

var (
	ErrProfileNotFound     = errors.New("profile not found")
	ErrLinkNotFound        = errors.New("link not found")
	ErrPresetNotFound      = errors.New("theme preset not found")
	ErrIndexOutOfRange     = errors.New("link index out of range")
	ErrNoCurrentProfile    = errors.New("no current profile")
	ErrNoUser              = errors.New("no user set")
	ErrFeatureNotAvailable = errors.New("feature not available on current plan")
	ErrLinkLimitReached    = errors.New("link limit reached for current plan")
	ErrProfileLimitReached = errors.New("profile limit reached for current plan")

	ErrInvalidSnapshot            = errors.New("invalid snapshot")
	ErrUnsupportedSnapshotVersion = errors.New("unsupported snapshot version")
)

// IsNotFound reports whether err is one of the lookup-miss errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProfileNotFound) ||
		errors.Is(err, ErrLinkNotFound) ||
		errors.Is(err, ErrPresetNotFound)
}
