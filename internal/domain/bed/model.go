package bed

import "time"

// DefaultCount is how many beds Initialize creates.
const DefaultCount = 10

// Bed is a numbered ward bed. PatientName and Time are empty while free.
type Bed struct {
	ID          int       `json:"id"`
	IsBooked    bool      `json:"isBooked"`
	PatientName string    `json:"patientName"`
	Time        string    `json:"time"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Stats struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Booked    int `json:"booked"`
}

// Filter narrows List. A nil Booked returns every bed.
type Filter struct {
	Booked *bool
}
