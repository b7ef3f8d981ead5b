package models

import "time"

// UploadedFile represents a file received from the client and stored on disk.
type UploadedFile struct {
	ID           string    `json:"file_id"`
	OriginalName string    `json:"file_name"`
	StoredPath   string    `json:"stored_path"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the file may be removed at the given time.
func (f *UploadedFile) Expired(now time.Time) bool {
	return !f.ExpiresAt.IsZero() && !f.ExpiresAt.After(now)
}

type ContentType string

const (
	ContentPDF             ContentType = "pdf"
	ContentText            ContentType = "text"
	ContentImageAnalysis   ContentType = "image-analysis"
	ContentVideoTranscript ContentType = "video-transcript"
	ContentAudioTranscript ContentType = "audio-transcript"
)

var contentLabels = map[ContentType]string{
	ContentPDF:             "PDF document",
	ContentText:            "text file",
	ContentImageAnalysis:   "image analysis",
	ContentVideoTranscript: "video transcript",
	ContentAudioTranscript: "audio transcript",
}

// Label is the human readable name shown to the browser client.
func (c ContentType) Label() string {
	if label, ok := contentLabels[c]; ok {
		return label
	}
	return string(c)
}

// ExtractionResult is the text produced from one uploaded file.
type ExtractionResult struct {
	ContentType ContentType `json:"content_type"`
	Text        string      `json:"text"`
}
