package models

import "time"

const (
	// MinMockupQuantity and MaxMockupQuantity bound the units ordered per mockup
	MinMockupQuantity = 1
	MaxMockupQuantity = 1000
)

// ValidateQuantity enforces the per-mockup quantity range. The editor-side
// capture and the server-side gateway both go through here.
func ValidateQuantity(quantity int) error {
	if quantity < MinMockupQuantity || quantity > MaxMockupQuantity {
		return NewValidationError("Quantity must be between %d and %d", MinMockupQuantity, MaxMockupQuantity)
	}
	return nil
}

// Mockup is an immutable capture of one design on one product/color/view.
// PreviewImage is a PNG data URL ("data:image/png;base64,...").
type Mockup struct {
	ID             string    `json:"id"`
	ProductID      string    `json:"productId"`
	ProductName    string    `json:"productName"`
	ColorName      string    `json:"colorName"`
	View           string    `json:"view"`
	DesignSnapshot string    `json:"designData"`
	PreviewImage   string    `json:"previewImage"`
	Quantity       int       `json:"quantity"`
	CapturedAt     time.Time `json:"capturedAt"`
}

// MockupData is one entry of the mockupsData array in a submission envelope.
// The preview travels as the binary part at the same index.
// Example:
// {"productId": "tee-classic", "productName": "Classic Tee", "colorName": "Navy",
//  "view": "front", "designData": "{...}", "quantity": 5}
type MockupData struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	ColorName   string `json:"colorName"`
	View        string `json:"view"`
	DesignData  string `json:"designData"`
	Quantity    int    `json:"quantity"`
}

// Data strips the preview from m for the envelope metadata array
func (m Mockup) Data() MockupData {
	return MockupData{
		ProductID:   m.ProductID,
		ProductName: m.ProductName,
		ColorName:   m.ColorName,
		View:        m.View,
		DesignData:  m.DesignSnapshot,
		Quantity:    m.Quantity,
	}
}
