package dto

import (
	"medsys/shared/constant"
	"medsys/shared/model"
	"medsys/shared/timezone"
)

// Metadata is the audit block as rendered in API responses, in the app timezone.
type Metadata struct {
	CreatedAt  string `json:"created_at"`
	ModifiedAt string `json:"modified_at"`
	CreatedBy  string `json:"created_by"`
	ModifiedBy string `json:"modified_by"`
}

func (m *Metadata) FromModel(src model.Metadata) {
	*m = Metadata{
		CreatedAt:  timezone.Format(src.CreatedAt, constant.DateFormat),
		ModifiedAt: timezone.Format(src.ModifiedAt, constant.DateFormat),
		CreatedBy:  src.CreatedBy,
		ModifiedBy: src.ModifiedBy,
	}
}
