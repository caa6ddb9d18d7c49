package domain

import (
	"regexp"
	"time"
)

var principalIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._@-]{0,63}$`)

// ValidPrincipalID reports whether id is a well-formed principal id.
func ValidPrincipalID(id string) bool {
	return principalIDPattern.MatchString(id)
}

type Principal struct {
	ID          string
	DisplayName string
	Active      bool
	CreatedAt   time.Time
}

type Role struct {
	Code      string
	Name      string
	CreatedAt time.Time
}
