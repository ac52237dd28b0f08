package documents

import (
	"path/filepath"
	"strings"
	"time"
)

// Document is immutable once created.
type Document struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	FileName    string    `json:"fileName"`
	FileType    string    `json:"fileType"` // pdf | docx | txt
	FileSize    int64     `json:"fileSize"`
	FileURL     string    `json:"fileUrl"`
	ContentText string    `json:"-"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

const DefaultMaxUploadBytes int64 = 10 << 20

var mimeTypes = map[string]string{
	"application/pdf": "pdf",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "docx",
	"text/plain": "txt",
}

var extensions = map[string]string{
	".pdf":  "pdf",
	".docx": "docx",
	".txt":  "txt",
}

// DetectFileType maps an upload to one of the accepted file types. The
// declared content type wins; generic types fall back to the extension.
func DetectFileType(contentType, filename string) (string, error) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if t, ok := mimeTypes[ct]; ok {
		return t, nil
	}
	if ct == "" || ct == "application/octet-stream" {
		if t, ok := extensions[strings.ToLower(filepath.Ext(filename))]; ok {
			return t, nil
		}
	}
	return "", ErrUnsupportedFileType
}
