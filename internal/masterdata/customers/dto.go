package customers

// CustomerForm carries create and update payloads.
type CustomerForm struct {
	Name    string `json:"name" validate:"required,max=200"`
	Contact string `json:"contact" validate:"required,max=30"`
	Address string `json:"address" validate:"max=300"`
	Email   string `json:"email" validate:"omitempty,email,max=200"`
	TRN     string `json:"trn" validate:"max=30"`
}
