// This file defines the error taxonomy used at the vsfs engine boundary, in
// the same style as a POSIX errno table: a small closed set of sentinel
// values that call sites chain additional context onto.

package errors

import (
	"fmt"
)

type VsfsError string

const ErrPathNotFound = VsfsError("path not found")
const ErrFileExists = VsfsError("file exists")
const ErrNoSpace = VsfsError("no space left on device")
const ErrInvalidFileType = VsfsError("invalid file type")
const ErrDirNotEmpty = VsfsError("directory not empty")
const ErrFileCannotWrite = VsfsError("file cannot be opened for writing")
const ErrFileNotOpen = VsfsError("file is not open")
const ErrAccess = VsfsError("access mode does not permit operation")

func (e VsfsError) Error() string {
	return string(e)
}

func (e VsfsError) WithMessage(message string) DriverError {
	return customDriverError{
		message:       message,
		originalError: e,
	}
}

func (e VsfsError) WrapError(err error) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s %s", e.Error(), err.Error()),
		originalError: err,
	}
}
