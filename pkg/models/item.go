package models

// Item is a single item to deliver. Dimensions are in inches; price follows
// the ISO 4217 currency code in CurrencyCode.
type Item struct {
	Title        string  `json:"title" validate:"required"`
	Quantity     int     `json:"quantity" validate:"required,gt=0"`
	Width        float64 `json:"width,omitempty" validate:"omitempty,gt=0"`
	Height       float64 `json:"height,omitempty" validate:"omitempty,gt=0"`
	Length       float64 `json:"length,omitempty" validate:"omitempty,gt=0"`
	Price        float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	CurrencyCode string  `json:"currency_code,omitempty" validate:"omitempty,len=3"`
	IsFragile    bool    `json:"is_fragile,omitempty"`
}

// NewItem validates and returns an item.
func NewItem(item Item) (*Item, error) {
	if err := checkStruct(item); err != nil {
		return nil, err
	}
	return &item, nil
}
