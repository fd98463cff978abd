package vcs

import "github.com/maxbolgarin/errm"

// ErrGit wraps every failed git operation
var ErrGit = errm.New("git operation failed")

// ErrFileNotFound is returned when a path does not exist at the requested ref
var ErrFileNotFound = errm.New("file not found")

func gitError(msg string, err error) error {
	return errm.Wrap(ErrGit, msg+": "+err.Error())
}
