package model

// ImageUpload is an attachment pending submission. New files carry an Upload;
// previously stored files are referenced by BlobKey and may be marked Remove.
type ImageUpload struct {
	BlobKey string           `json:"bkey,omitempty"`
	Upload  *ImageUploadData `json:"upload,omitempty"`
	Remove  bool             `json:"remove"`
}

type ImageUploadData struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Content     []byte `json:"content"`
}
