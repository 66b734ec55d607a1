package model

import (
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// FileRecord is the metadata kept for every stored file.
// The blob referenced by BlobKey is expected to exist in the object store; this is best-effort,
// see service.Reconciler for the sweep that removes blobs left without a record.
type FileRecord struct {
	OwnerID      string    `json:"ownerId" dynamodbav:"ownerId"`
	FileID       string    `json:"fileId" dynamodbav:"fileId"`
	OriginalName string    `json:"originalName" dynamodbav:"originalName"`
	MimeType     string    `json:"mimeType" dynamodbav:"mimeType"`
	SizeBytes    int64     `json:"sizeBytes" dynamodbav:"sizeBytes"`
	BlobKey      string    `json:"blobKey" dynamodbav:"blobKey"`
	BlobURL      string    `json:"blobUrl" dynamodbav:"blobUrl"`
	UploadedAt   time.Time `json:"uploadedAt" dynamodbav:"uploadedAt"`
	IsPublic     bool      `json:"isPublic" dynamodbav:"isPublic"`
	OwnerEmail   string    `json:"ownerEmail,omitempty" dynamodbav:"ownerEmail,omitempty"`
	LastModified time.Time `json:"lastModified" dynamodbav:"lastModified"`
}

// UploadedFile is a file payload received from a client, already detached from the transport.
type UploadedFile struct {
	Filename  string
	MimeType  string
	SizeBytes int64
	Content   io.Reader
}

// BlobKey returns the object key for a file: "{ownerID}/{fileID}-{originalName}".
func BlobKey(ownerID, fileID, originalName string) string {
	return ownerID + "/" + fileID + "-" + originalName
}

// ParseBlobKey splits a key produced by BlobKey. ok is false for keys that do not match the layout.
func ParseBlobKey(key string) (ownerID, fileID, originalName string, ok bool) {
	slash := strings.LastIndex(key, "/")
	if slash <= 0 {
		return "", "", "", false
	}
	ownerID, rest := key[:slash], key[slash+1:]
	// fileID is a canonical UUID, 36 characters, followed by '-'.
	if len(rest) < 38 || rest[36] != '-' {
		return "", "", "", false
	}
	if _, err := uuid.Parse(rest[:36]); err != nil {
		return "", "", "", false
	}
	return ownerID, rest[:36], rest[37:], true
}

// SanitizeFilename strips directory components and characters that are unsafe in object keys
// and Content-Disposition headers. It returns "" when nothing usable remains.
func SanitizeFilename(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsControl(r):
			return -1
		case r == '"' || r == ':' || r == '*' || r == '?' || r == '<' || r == '>' || r == '|':
			return '_'
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "." || name == ".." {
		return ""
	}
	return name
}
