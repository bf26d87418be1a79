package models

// UploadedImage is one binary part of the submission envelope
type UploadedImage struct {
	Filename    string
	ContentType string
	Data        []byte
}

// OrderSubmission is the parsed multipart body of POST /api/orders.
// MockupsData is kept raw so the gateway can report malformed JSON itself.
// Images[i] belongs to the i-th entry of MockupsData.
type OrderSubmission struct {
	MockupsData   string
	Images        []UploadedImage
	CustomerEmail string
	CustomerPhone string
	Notes         string
}
