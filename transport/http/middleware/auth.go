package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"medsys/config"
	"medsys/infras/jwt"
	"medsys/infras/otel"
	"medsys/permissions"
	"medsys/shared/constant"
	"medsys/shared/failure"
	"medsys/transport/http/response"
)

type internalCallKey struct{}

type Auth interface {
	Auth(http.Handler) http.Handler
	APIKey(http.Handler) http.Handler
}

type Role interface {
	RBAC(http.Handler) http.Handler
}

// AuthRole is the APIKey, Auth and RBAC chain, mounted in that order.
type AuthRole interface {
	Auth
	Role
}

type authRoleImpl struct {
	jwtService jwt.JWT
	otel       otel.Otel
	permission *permissions.PermissionData
	cfg        *config.Config
}

func NewAuthRoleMiddleware(jwtService jwt.JWT, otel otel.Otel, permissions *permissions.PermissionData, cfg *config.Config) AuthRole {
	return &authRoleImpl{
		jwtService: jwtService,
		otel:       otel,
		permission: permissions,
		cfg:        cfg,
	}
}

func isInternalCall(ctx context.Context) bool {
	internal, _ := ctx.Value(internalCallKey{}).(bool)

	return internal
}

// routePermission resolves the request to its chi pattern so that
// /v1/appointments/abc is checked against /v1/appointments/{id}.
func (m *authRoleImpl) routePermission(r *http.Request) (string, permissions.Permission) {
	pattern := r.URL.Path

	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.Routes != nil {
		if found := rctx.Routes.Find(chi.NewRouteContext(), r.Method, r.URL.Path); found != "" {
			pattern = found
		}
	}

	if m.permission == nil {
		return pattern, permissions.Permission{}
	}

	return pattern, m.permission.FindPermissions(pattern, r.Method)
}

func reject(w http.ResponseWriter, scope otel.Scope, err error) {
	scope.TraceError(err)
	response.WithError(w, err)
}

func tokenFailure(err error) error {
	switch {
	case errors.Is(err, jwt.ErrExpiredToken):
		return failure.Unauthorized("Token has expired")
	case errors.Is(err, jwt.ErrInvalidClaim):
		return failure.Unauthorized("Invalid token claims")
	case errors.Is(err, jwt.ErrInvalidToken):
		return failure.Unauthorized("Invalid token")
	default:
		return failure.Unauthorized("Token validation failed")
	}
}

// Auth turns a bearer access token into caller identity on the context.
// Public routes and internal calls pass through untouched. Routes missing
// from the permission table still require a token.
func (m *authRoleImpl) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, scope := m.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, "auth.middleware")
		defer scope.End()

		pattern, permission := m.routePermission(r)
		if isInternalCall(ctx) || permission.Skip {
			next.ServeHTTP(w, r)

			return
		}

		scope.SetAttributes(map[string]any{"http.route": pattern, "http.method": r.Method})

		header := r.Header.Get(constant.RequestHeaderAuthorization)
		if header == "" {
			reject(w, scope, failure.Unauthorized("Missing authorization header"))

			return
		}

		token, err := jwt.ExtractTokenFromHeader(header)
		if err != nil {
			reject(w, scope, failure.Unauthorized("Invalid authorization header format"))

			return
		}

		claims, err := m.jwtService.ValidateToken(token, jwt.AccessToken)
		if err != nil {
			reject(w, scope, tokenFailure(err))

			return
		}

		if claims.UserID == "" || claims.Role == "" {
			log.Warn().Str("tokenID", claims.TokenID).Msg("access token without user id or role")
			reject(w, scope, failure.Unauthorized("Invalid token claims"))

			return
		}

		ctx = context.WithValue(ctx, constant.ContextKeyUserID, claims.UserID)
		ctx = context.WithValue(ctx, constant.ContextKeyUserName, claims.Username)
		ctx = context.WithValue(ctx, constant.ContextKeyUserRole, claims.Role)
		ctx = context.WithValue(ctx, constant.ContextKeyTokenID, claims.TokenID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RBAC admits the caller when the route lists its role. A route without a
// role list only needs an authenticated caller.
func (m *authRoleImpl) RBAC(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, scope := m.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, "rbac.middleware")
		defer scope.End()

		if isInternalCall(r.Context()) || (m.permission != nil && m.permission.Skip) {
			next.ServeHTTP(w, r)

			return
		}

		if m.permission == nil {
			reject(w, scope, failure.ForbiddenError)

			return
		}

		_, permission := m.routePermission(r)
		role, _ := r.Context().Value(constant.ContextKeyUserRole).(string)

		if !permission.Skip && len(permission.Permissions) > 0 && !slices.Contains(permission.Permissions, role) {
			scope.SetAttributes(map[string]any{
				"user_role":     role,
				"allowed_roles": permission.Permissions,
			})
			reject(w, scope, failure.ForbiddenError)

			return
		}

		next.ServeHTTP(w, r)
	})
}

// APIKey marks requests carrying the shared internal key so Auth and RBAC
// let them through. A wrong key is refused outright.
func (m *authRoleImpl) APIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, scope := m.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, "api_key.middleware")
		defer scope.End()

		key := r.Header.Get(constant.RequestHeaderAPIKey)
		if key == "" {
			scope.SetAttribute("http.source", "client")
			next.ServeHTTP(w, r)

			return
		}

		scope.SetAttribute("http.source", "internal")

		if m.cfg.App.APIKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(m.cfg.App.APIKey)) != 1 {
			reject(w, scope, failure.ForbiddenError)

			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, internalCallKey{}, true)))
	})
}
