package types

// ClientSnapshot is the denormalized client info captured on a receipt at
// creation time, so historical receipts render correctly after client edits.
type ClientSnapshot struct {
	Name     string `json:"name"`
	ShopName string `json:"shop_name,omitempty"`
	Phone    string `json:"phone,omitempty"`
}
