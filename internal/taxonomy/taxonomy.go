// Package taxonomy defines the category hierarchy extracted from partbook
// PDFs and the partbook types that select an extraction strategy.
package taxonomy

// PartbookType identifies a partbook family. Each type maps to one
// extraction strategy.
type PartbookType string

const (
	// PartbookAxleDrive covers drive and steering axle catalogs delivered
	// as archives of page images with a manifest.
	PartbookAxleDrive PartbookType = "axle_drive"
	// PartbookCabinChassis covers cabin and chassis catalogs with a full
	// text layer and numbered section headings.
	PartbookCabinChassis PartbookType = "cabin_chassis"
	// PartbookEngine covers engine catalogs with bilingual table headers
	// in a fixed page region.
	PartbookEngine PartbookType = "engine"
	// PartbookTransmission covers transmission catalogs with a Chinese
	// table of contents in the lead pages.
	PartbookTransmission PartbookType = "transmission"
)

// Valid reports whether t is a known partbook type.
func (t PartbookType) Valid() bool {
	switch t {
	case PartbookAxleDrive, PartbookCabinChassis, PartbookEngine, PartbookTransmission:
		return true
	}
	return false
}

// PartbookTypes lists all known partbook types.
func PartbookTypes() []PartbookType {
	return []PartbookType{
		PartbookAxleDrive,
		PartbookCabinChassis,
		PartbookEngine,
		PartbookTransmission,
	}
}

// TypeCategory is a leaf node: one part subtype within a category.
type TypeCategory struct {
	NameEN      string `json:"type_category_name_en"`
	NameCN      string `json:"type_category_name_cn"`
	Description string `json:"type_category_description,omitempty"`
	Code        string `json:"type_category_code,omitempty"`
}

// Category is one extracted category, optionally carrying nested type
// categories for the 3-level hierarchy.
type Category struct {
	NameEN      string         `json:"category_name_en"`
	NameCN      string         `json:"category_name_cn"`
	Description string         `json:"category_description,omitempty"`
	DataType    []TypeCategory `json:"data_type,omitempty"`
}

// ExtractionResult is the full taxonomy extracted from one partbook.
type ExtractionResult struct {
	Categories []Category `json:"categories"`
}

// CategoryCount returns the number of top-level categories.
func (r *ExtractionResult) CategoryCount() int {
	return len(r.Categories)
}

// TypeCategoryCount returns the total number of type categories across all
// categories.
func (r *ExtractionResult) TypeCategoryCount() int {
	n := 0
	for _, c := range r.Categories {
		n += len(c.DataType)
	}
	return n
}
