// Package catalog reads the customizable product feed.
package catalog

import "strings"

// Category is the closed set of product kinds
type Category string

const (
	CategoryTShirt    Category = "T-Shirt"
	CategoryHoodie    Category = "Hoodie"
	CategoryMug       Category = "Mug"
	CategoryCap       Category = "Cap"
	CategoryToteBag   Category = "Tote Bag"
	CategoryPhoneCase Category = "Phone Case"
	CategoryOther     Category = "Other"
)

var categories = []Category{
	CategoryTShirt, CategoryHoodie, CategoryMug, CategoryCap,
	CategoryToteBag, CategoryPhoneCase, CategoryOther,
}

// ParseCategory matches s case-insensitively; anything unknown is Other
func ParseCategory(s string) Category {
	for _, c := range categories {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c
		}
	}
	return CategoryOther
}

// View is the side of a product being edited
type View string

const (
	ViewFront View = "front"
	ViewBack  View = "back"
)

// Rect is a printable area in canvas pixels
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ColorVariant is one color of a product with its reference photos
type ColorVariant struct {
	ColorName  string `json:"colorName"`
	ColorCode  string `json:"colorCode"`
	FrontImage string `json:"frontImage"`
	BackImage  string `json:"backImage,omitempty"`
}

// ImageFor returns the reference image for view, falling back to the front
func (v ColorVariant) ImageFor(view View) string {
	if view == ViewBack && v.BackImage != "" {
		return v.BackImage
	}
	return v.FrontImage
}

// Product is a customizable item from the catalog feed
// Example:
// {
//   "id": "tee-classic",
//   "name": "Classic Tee",
//   "category": "T-Shirt",
//   "colorVariants": [
//     {"colorName": "Navy", "colorCode": "#1f2a44", "frontImage": "https://cdn/tee-navy-front.png", "backImage": "https://cdn/tee-navy-back.png"}
//   ],
//   "printableAreas": {"front": {"x": 150, "y": 120, "width": 300, "height": 360}},
//   "isActive": true,
//   "displayOrder": 1
// }
type Product struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Category       Category       `json:"category"`
	ColorVariants  []ColorVariant `json:"colorVariants"`
	PrintableAreas map[View]Rect  `json:"printableAreas,omitempty"`
	IsActive       bool           `json:"isActive"`
	DisplayOrder   int            `json:"displayOrder"`
}

// Variant returns the color variant named colorName
func (p *Product) Variant(colorName string) (ColorVariant, bool) {
	for _, v := range p.ColorVariants {
		if strings.EqualFold(v.ColorName, colorName) {
			return v, true
		}
	}
	return ColorVariant{}, false
}

// AvailableViews lists the views that can be edited for a variant. The back
// view only exists when the variant has a back image.
func (p *Product) AvailableViews(variant ColorVariant) []View {
	if variant.BackImage != "" {
		return []View{ViewFront, ViewBack}
	}
	return []View{ViewFront}
}

// PrintableArea returns the printable rectangle for view, if the feed defines one
func (p *Product) PrintableArea(view View) (Rect, bool) {
	r, ok := p.PrintableAreas[view]
	return r, ok
}
