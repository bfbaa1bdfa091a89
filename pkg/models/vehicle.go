package models

// Vehicle describes a courier's vehicle.
type Vehicle struct {
	LicensePlate string `json:"license_plate,omitempty"`
	Make         string `json:"make,omitempty"`
	Model        string `json:"model,omitempty"`
	PictureURL   string `json:"picture_url,omitempty" validate:"omitempty,url"`
}

// NewVehicle validates and returns a vehicle record.
func NewVehicle(v Vehicle) (*Vehicle, error) {
	if err := checkStruct(v); err != nil {
		return nil, err
	}
	return &v, nil
}
