package models

// NotAvailable marks a field that could not be extracted. It is distinct from
// an empty string, which a field may legitimately hold after cleanup.
const NotAvailable = "N/A"

// ProductRecord holds everything extracted from a single product page.
type ProductRecord struct {
	Title        string      `json:"title"`
	Price        string      `json:"price"`
	AboutBullets string      `json:"about_this_item"`
	ProductInfo  string      `json:"product_information"`
	Description  Description `json:"description"`
}

// Description is the rich description block of a product page.
type Description struct {
	Text   string   `json:"text"`
	Images []string `json:"images"`
	Video  string   `json:"video,omitempty"`
}

// NewProductRecord returns a record with every field set to its "not found"
// value. Extraction only ever overwrites fields of this record.
func NewProductRecord() ProductRecord {
	return ProductRecord{
		Title:        NotAvailable,
		Price:        NotAvailable,
		AboutBullets: NotAvailable,
		ProductInfo:  NotAvailable,
		Description:  EmptyDescription(),
	}
}

// EmptyDescription is the terminal value of the description chain.
func EmptyDescription() Description {
	return Description{Text: NotAvailable, Images: []string{}}
}

// Complete reports whether every field holds content or the sentinel.
func (r ProductRecord) Complete() bool {
	for _, v := range []string{r.Title, r.Price, r.AboutBullets, r.ProductInfo, r.Description.Text} {
		if v == "" {
			return false
		}
	}
	return r.Description.Images != nil
}
