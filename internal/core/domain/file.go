package domain

import "time"

// File is the metadata row of an uploaded file. The bytes live in the blob
// store under BlobKey, which is generated per upload and never derived from
// the client's file name.
type File struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Extension  string    `json:"extension"`
	MimeType   string    `json:"mime_type"`
	Size       int64     `json:"size"`
	UploadDate time.Time `json:"upload_date"`
	OwnerID    string    `json:"owner_id,omitempty"`
	BlobKey    string    `json:"-"`
}

// FileName is "<name>.<extension>", or just the name when the upload had
// no extension. It is what a download is offered as.
func (f *File) FileName() string {
	if f.Extension == "" {
		return f.Name
	}
	return f.Name + "." + f.Extension
}
