package domain

// Identity authenticated party bound to a connection or request
type Identity struct {
	UserID      string `json:"userId"`
	Role        Role   `json:"role"`
	ApartmentID string `json:"apartmentId"`
}

// IsAdmin caller administers an apartment
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// IsResident caller is a resident
func (i Identity) IsResident() bool { return i.Role == RoleUser }

// Resident directory entry of a resident
type Resident struct {
	UserID      string `json:"userId"`
	ApartmentID string `json:"apartmentId"`
	Name        string `json:"name"`
}
