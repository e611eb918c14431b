package service

import (
	"fmt"
	"medsys/internal/domains/appointment/model"
	"medsys/shared/failure"
	"strings"
)

// ParseDecision maps a doctor's decision, in any letter case, to the resulting status.
func ParseDecision(decision string) (model.Status, error) {
	normalized := strings.ToUpper(strings.TrimSpace(decision))

	switch normalized {
	case "":
		return "", failure.BadRequestFromString("Decision must be provided") // nolint:wrapcheck
	case "ACCEPT", "ACCEPTED":
		return model.StatusAccepted, nil
	case "DENY", "DENIED", "REJECT", "REJECTED":
		return model.StatusDenied, nil
	default:
		return "", failure.BadRequestFromString(fmt.Sprintf("Unsupported decision: %s", decision)) // nolint:wrapcheck
	}
}
