package models

import "time"

// OrderStatus is the fulfillment state of a submitted order
type OrderStatus string

const (
	StatusSubmitted    OrderStatus = "Submitted"
	StatusInReview     OrderStatus = "In Review"
	StatusQuoted       OrderStatus = "Quoted"
	StatusApproved     OrderStatus = "Approved"
	StatusInProduction OrderStatus = "In Production"
	StatusCompleted    OrderStatus = "Completed"
	StatusCancelled    OrderStatus = "Cancelled"
)

// OrderStatuses lists every accepted status in lifecycle order
var OrderStatuses = []OrderStatus{
	StatusSubmitted,
	StatusInReview,
	StatusQuoted,
	StatusApproved,
	StatusInProduction,
	StatusCompleted,
	StatusCancelled,
}

// ParseOrderStatus returns the status matching s exactly, or a validation error.
// Any status may follow any other; only membership is checked.
func ParseOrderStatus(s string) (OrderStatus, error) {
	for _, status := range OrderStatuses {
		if string(status) == s {
			return status, nil
		}
	}
	return "", NewValidationError("Invalid order status: %q", s)
}

// OrderMockup is a mockup as stored with an order. PreviewImage holds the
// reference returned by the image store, never the image bytes.
type OrderMockup struct {
	ProductID    string `json:"productId"`
	ProductName  string `json:"productName"`
	ColorName    string `json:"colorName"`
	View         string `json:"view"`
	DesignData   string `json:"designData"`
	PreviewImage string `json:"previewImage"`
	Quantity     int    `json:"quantity"`
}

// OrderDraft is a validated order that has not been persisted yet
type OrderDraft struct {
	Mockups       []OrderMockup
	CustomerEmail string
	CustomerPhone string
	Notes         string
	TotalQuantity int
}

// Order represents a submitted order
// Example:
// {
//   "id": "0d5c7f3e-7c1e-4b0a-9a53-3f0f7f8f8a11",
//   "mockups": [
//     {
//       "productId": "tee-classic",
//       "productName": "Classic Tee",
//       "colorName": "Navy",
//       "view": "front",
//       "designData": "{\"canvasWidth\":600,...}",
//       "previewImage": "/api/previews/01HF...png",
//       "quantity": 5
//     }
//   ],
//   "customerEmail": "jane@example.com",
//   "customerPhone": "+1 (555) 010-2030",
//   "notes": "Rush please",
//   "totalQuantity": 5,
//   "orderStatus": "Submitted",
//   "createdAt": "2026-01-15T10:30:00Z",
//   "updatedAt": "2026-01-15T10:30:00Z"
// }
type Order struct {
	ID            string        `json:"id"`
	Mockups       []OrderMockup `json:"mockups"`
	CustomerEmail string        `json:"customerEmail"`
	CustomerPhone string        `json:"customerPhone"`
	Notes         string        `json:"notes,omitempty"`
	TotalQuantity int           `json:"totalQuantity"`
	OrderStatus   OrderStatus   `json:"orderStatus"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// OrderSummary is the order block of a successful submission response
type OrderSummary struct {
	ID            string      `json:"id"`
	TotalQuantity int         `json:"totalQuantity"`
	MockupsCount  int         `json:"mockupsCount"`
	OrderStatus   OrderStatus `json:"orderStatus"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// Summary builds the submission response block for o
func (o *Order) Summary() OrderSummary {
	return OrderSummary{
		ID:            o.ID,
		TotalQuantity: o.TotalQuantity,
		MockupsCount:  len(o.Mockups),
		OrderStatus:   o.OrderStatus,
		CreatedAt:     o.CreatedAt,
	}
}

// SubmitOrderResponse is returned by POST /api/orders on success
// Example response:
// {
//   "orderId": "0d5c7f3e-7c1e-4b0a-9a53-3f0f7f8f8a11",
//   "order": {
//     "id": "0d5c7f3e-7c1e-4b0a-9a53-3f0f7f8f8a11",
//     "totalQuantity": 8,
//     "mockupsCount": 2,
//     "orderStatus": "Submitted",
//     "createdAt": "2026-01-15T10:30:00Z"
//   }
// }
type SubmitOrderResponse struct {
	OrderID string       `json:"orderId"`
	Order   OrderSummary `json:"order"`
}

// UpdateOrderStatusRequest is the body of PATCH /api/admin/orders/{id}/status
// Example: {"orderStatus": "In Review"}
type UpdateOrderStatusRequest struct {
	OrderStatus string `json:"orderStatus"`
}

// OrderListResponse wraps the admin order listing
type OrderListResponse struct {
	Orders []Order `json:"orders"`
}

// ErrorResponse is the failure body shared by every endpoint
type ErrorResponse struct {
	Message string `json:"message"`
}
