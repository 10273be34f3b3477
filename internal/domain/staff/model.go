package staff

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carehub/hms/internal/platform/apperr"
	"github.com/carehub/hms/pkg/clocktime"
)

var Genders = []string{"Male", "Female", "Other"}

type Employee struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Address       string    `json:"address"`
	PhoneNumber   string    `json:"phoneNumber"`
	Gender        string    `json:"gender"`
	DateOfJoining time.Time `json:"dateOfJoining"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type EmployeeInput struct {
	Name          string `json:"name"`
	Address       string `json:"address"`
	PhoneNumber   string `json:"phoneNumber"`
	Gender        string `json:"gender"`
	DateOfJoining string `json:"dateOfJoining"`
}

func (in *EmployeeInput) ToEmployee() (*Employee, error) {
	e := &Employee{
		Name:        strings.TrimSpace(in.Name),
		Address:     in.Address,
		PhoneNumber: in.PhoneNumber,
		Gender:      in.Gender,
	}
	switch {
	case e.Name == "":
		return nil, apperr.InvalidArgument("name is required")
	case e.Address == "":
		return nil, apperr.InvalidArgument("address is required")
	case e.PhoneNumber == "":
		return nil, apperr.InvalidArgument("phoneNumber is required")
	case !validGender(e.Gender):
		return nil, apperr.InvalidArgument("gender must be one of %s", strings.Join(Genders, ", "))
	case in.DateOfJoining == "":
		return nil, apperr.InvalidArgument("dateOfJoining is required")
	}

	joined, err := clocktime.ParseDate(in.DateOfJoining)
	if err != nil {
		return nil, apperr.InvalidArgument("%s", err.Error())
	}
	e.DateOfJoining = joined
	return e, nil
}

func validGender(g string) bool {
	for _, v := range Genders {
		if g == v {
			return true
		}
	}
	return false
}
