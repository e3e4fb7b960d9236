package practice

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Clinic groups doctors. Doctors is a denormalized membership list kept in
// step with doctors.clinic; Version guards concurrent writes to it.
type Clinic struct {
	Name      string      `json:"name"`
	Doctors   []uuid.UUID `json:"doctors"`
	Version   int         `json:"version"`
	CreatedAt time.Time   `json:"created_at"`
}

// Doctor's ID is the identity-provider account id.
type Doctor struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Clinic    string      `json:"clinic"`
	Patients  []uuid.UUID `json:"patients"`
	Version   int         `json:"version"`
	CreatedAt time.Time   `json:"created_at"`
}

type Patient struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Age            int       `json:"age"`
	Gender         bool      `json:"gender"`
	InnerOralImage *string   `json:"inner_oral_image,omitempty"`
	ExtraOralImage *string   `json:"extra_oral_image,omitempty"`
	Scan           *string   `json:"scan,omitempty"`
	TotalCost      float64   `json:"total_cost"`
	TotalPaid      float64   `json:"total_paid"`
	DoctorID       uuid.UUID `json:"doctor_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// withID returns a copy of ids with id appended unless already present.
func withID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, len(ids), len(ids)+1)
	copy(out, ids)
	if slices.Contains(ids, id) {
		return out
	}
	return append(out, id)
}

// withoutID returns a copy of ids minus every occurrence of id.
func withoutID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
