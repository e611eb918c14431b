package permissions

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"medsys/shared/constant"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"
)

//go:embed permissions.json
var permissionsData []byte

// Permission lists the roles allowed on one route pattern. Skip marks a
// public route.
type Permission struct {
	Permissions []string `json:"permissions"`
	Path        string   `json:"path"`
	Method      string   `json:"method"`
	Skip        bool     `json:"skip"`
}

type PermissionData struct {
	Endpoints []Permission `json:"endpoints"`
	Skip      bool         `json:"skip"`
}

func normalizePath(path string) string {
	if path == "/" {
		return path
	}

	return strings.TrimSuffix(path, "/")
}

// FindPermissions matches a chi route pattern such as /v1/appointments/{id}.
func (r *PermissionData) FindPermissions(path, method string) Permission {
	path = normalizePath(path)

	idx := slices.IndexFunc(r.Endpoints, func(rp Permission) bool {
		return normalizePath(rp.Path) == path && strings.EqualFold(rp.Method, method)
	})

	if idx == -1 {
		return Permission{}
	}

	return r.Endpoints[idx]
}

func (r *PermissionData) validate() error {
	known := []string{constant.RoleAdmin, constant.RoleDoctor, constant.RolePatient}

	for _, endpoint := range r.Endpoints {
		for _, role := range endpoint.Permissions {
			if !slices.Contains(known, role) {
				return fmt.Errorf("unknown role %q on %s %s", role, endpoint.Method, endpoint.Path)
			}
		}
	}

	return nil
}

func Parse(data []byte) (*PermissionData, error) {
	var permissions PermissionData

	if err := json.Unmarshal(data, &permissions); err != nil {
		return nil, fmt.Errorf("failed to decode permissions: %w", err)
	}

	if err := permissions.validate(); err != nil {
		return nil, err
	}

	return &permissions, nil
}

func Get() *PermissionData {
	permissions, err := Parse(permissionsData)
	if err != nil {
		log.Err(err).Msg("Failed to decode embedded permissions")

		return nil
	}

	log.Info().Int("endpoints", len(permissions.Endpoints)).Msg("Successfully loaded embedded permissions")

	return permissions
}
