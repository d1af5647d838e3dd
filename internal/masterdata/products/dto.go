package products

// ProductForm carries create and update payloads.
type ProductForm struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Model       string  `json:"model" validate:"max=100"`
	Category    string  `json:"category" validate:"max=100"`
	Rate        float64 `json:"rate" validate:"gte=0"`
	Cost        float64 `json:"cost" validate:"gte=0"`
	Quantity    float64 `json:"quantity" validate:"gte=0"`
	Image       string  `json:"image" validate:"max=500"`
	Description string  `json:"description" validate:"max=1000"`
}
