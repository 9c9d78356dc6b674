package comments

import "regexp"

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,20}$`)

func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return &InvalidUsernameError{Username: username}
	}
	return nil
}
