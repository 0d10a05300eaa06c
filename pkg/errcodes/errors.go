package errcodes

import (
	"fmt"
	"net/http"
)

type Error struct {
	HTTPCode int
	Message  string
	Code     string
}

func (err *Error) Error() string {
	return err.Message
}

func (err *Error) As(target interface{}) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	te.HTTPCode = err.HTTPCode
	te.Message = err.Message
	te.Code = err.Code
	return true
}

func (err *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return te.HTTPCode == err.HTTPCode &&
		te.Message == err.Message &&
		te.Code == err.Code
}

// NotFound returns a 404 error with a message indicating the given resource.
func NotFound(resource string) error {
	return &Error{
		http.StatusNotFound,
		resource + " not found.",
		"not_found",
	}
}

// UnsupportedFormat indicates an archive whose extension or container
// signature is not a recognized comic container.
func UnsupportedFormat(ext string) error {
	return &Error{
		http.StatusUnsupportedMediaType,
		fmt.Sprintf("Unsupported archive format %q.", ext),
		"unsupported_format",
	}
}

// CorruptArchive indicates a container that matched a known format but could
// not be parsed.
func CorruptArchive(path string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		fmt.Sprintf("Archive %q is corrupt or unreadable.", path),
		"corrupt_archive",
	}
}

// PageNotFound indicates an archive entry that no longer exists in the
// container it was listed from.
func PageNotFound(name string) error {
	return &Error{
		http.StatusNotFound,
		fmt.Sprintf("Page %q not found in archive.", name),
		"page_not_found",
	}
}

// IndexOutOfRange indicates a page index outside [0, pageCount).
func IndexOutOfRange(index, pageCount int) error {
	return &Error{
		http.StatusUnprocessableEntity,
		fmt.Sprintf("Page index %d out of range (0-%d).", index, pageCount-1),
		"index_out_of_range",
	}
}

// MissingSourceFile indicates a comic whose archive is gone from disk.
func MissingSourceFile(path string) error {
	return &Error{
		http.StatusNotFound,
		fmt.Sprintf("Source file %q does not exist.", path),
		"missing_source_file",
	}
}

func UnsupportedMediaType() error {
	return &Error{
		http.StatusUnsupportedMediaType,
		"Unsupported Media Type",
		"unsupported_media_type",
	}
}

func UnknownParameter(param string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		fmt.Sprintf("Unknown Parameter %q", param),
		"unknown_parameter",
	}
}

func ValidationTypeError(msg string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		msg,
		"validation_type_error",
	}
}

func ValidationError(msg string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		msg,
		"validation_error",
	}
}

func MalformedPayload() error {
	return &Error{
		http.StatusBadRequest,
		"Malformed Payload",
		"malformed_payload",
	}
}

func EmptyRequestBody() error {
	return &Error{
		http.StatusBadRequest,
		"Request body can't be empty.",
		"empty_request_body",
	}
}
