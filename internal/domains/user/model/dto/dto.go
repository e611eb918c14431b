package dto

import (
	"medsys/internal/domains/user/model"
	"medsys/shared"
	"medsys/shared/constant"
	gDto "medsys/shared/dto"
	"medsys/shared/timezone"
)

type UserResponse struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	FullName  *string `json:"full_name,omitempty"`
	LastLogin *string `json:"last_login,omitempty"`
	Active    bool    `json:"active"`
	gDto.Metadata
}

func (r *UserResponse) FromModel(mod model.User) {
	r.ID = mod.ID
	r.Username = mod.Username
	r.Email = mod.Email
	r.Role = mod.Role
	r.FullName = mod.FullName
	r.Active = mod.Active
	r.Metadata.FromModel(mod.Metadata)

	if mod.LastLogin != nil {
		lastLogin := timezone.Format(*mod.LastLogin, constant.DateFormat)
		r.LastLogin = &lastLogin
	}
}

// DoctorResponse is the public directory entry, without contact details.
type DoctorResponse struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	FullName *string `json:"full_name,omitempty"`
}

func (r *DoctorResponse) FromModel(mod model.User) {
	r.ID = mod.ID
	r.Username = mod.Username
	r.FullName = mod.FullName
}

type GetDoctorsResponse struct {
	Doctors   []DoctorResponse `json:"doctors"`
	TotalPage int              `json:"total_page"`
	TotalData int              `json:"total_data"`
}

func (r *GetDoctorsResponse) FromModels(models []model.User, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Doctors = make([]DoctorResponse, len(models))
	for i, mod := range models {
		r.Doctors[i].FromModel(mod)
	}
}
