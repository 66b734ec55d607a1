package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlobKey(t *testing.T) {
	key := BlobKey("u1", "0b6c2f43-6f43-4c35-9d0e-0f9b6f5d2a11", "report.pdf")
	assert.Equal(t, "u1/0b6c2f43-6f43-4c35-9d0e-0f9b6f5d2a11-report.pdf", key)
}

func TestParseBlobKey(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		wantOwner string
		wantID    string
		wantName  string
		wantOK    bool
	}{
		{
			name:      "round trip",
			key:       BlobKey("u1", "0b6c2f43-6f43-4c35-9d0e-0f9b6f5d2a11", "report.pdf"),
			wantOwner: "u1",
			wantID:    "0b6c2f43-6f43-4c35-9d0e-0f9b6f5d2a11",
			wantName:  "report.pdf",
			wantOK:    true,
		},
		{
			name:      "name with dashes",
			key:       "owner/0b6c2f43-6f43-4c35-9d0e-0f9b6f5d2a11-a-b-c.txt",
			wantOwner: "owner",
			wantID:    "0b6c2f43-6f43-4c35-9d0e-0f9b6f5d2a11",
			wantName:  "a-b-c.txt",
			wantOK:    true,
		},
		{name: "no owner", key: "0b6c2f43-6f43-4c35-9d0e-0f9b6f5d2a11-x"},
		{name: "not a uuid", key: "u1/not-a-uuid-at-all-but-long-enough-x-file.txt"},
		{name: "too short", key: "u1/abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, id, name, ok := ParseBlobKey(tt.key)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantOwner, owner)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "report.pdf", SanitizeFilename("report.pdf"))
	assert.Equal(t, "passwd", SanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "evil.exe", SanitizeFilename(`C:\Users\evil.exe`))
	assert.Equal(t, "a_b_.txt", SanitizeFilename(`a"b?.txt`))
	assert.Equal(t, "tab.txt", SanitizeFilename("tab\t.txt"))
	assert.Equal(t, "", SanitizeFilename(".."))
	assert.Equal(t, "", SanitizeFilename("dir/"))
}
