package pdf

import "errors"

// Validation and extraction sentinel errors, checkable with errors.Is().
var (
	// ErrFileMissing indicates the PDF file does not exist.
	ErrFileMissing = errors.New("pdf file does not exist")

	// ErrFileEmpty indicates the PDF file is zero bytes.
	ErrFileEmpty = errors.New("pdf file is empty")

	// ErrFileTooLarge indicates the PDF exceeds the configured size limit.
	ErrFileTooLarge = errors.New("pdf file exceeds size limit")

	// ErrNotPDF indicates the file does not start with a %PDF- header.
	ErrNotPDF = errors.New("file is not a PDF")

	// ErrTooManyPages indicates the PDF exceeds the configured page limit.
	ErrTooManyPages = errors.New("pdf exceeds page limit")

	// ErrExtract indicates text extraction failed.
	ErrExtract = errors.New("pdf text extraction failed")
)
