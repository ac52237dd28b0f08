package documents

import "errors"

var (
	ErrDocumentNotFound    = errors.New("document not found")
	ErrUnsupportedFileType = errors.New("invalid file type, only PDF, DOCX, and TXT are allowed")
	ErrFileTooLarge        = errors.New("file exceeds upload limit")
	ErrMissingFile         = errors.New("no file uploaded")
)
