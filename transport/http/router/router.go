package router

import (
	"net/http"

	"medsys/internal/handlers/appointment"
	"medsys/internal/handlers/auth"
	"medsys/internal/handlers/notification"
	"medsys/internal/handlers/user"
	"medsys/shared/failure"
	"medsys/transport/http/response"

	"github.com/go-chi/chi/v5"
)

const apiVersion = "/v1"

type routes interface {
	Router(r chi.Router)
}

type DomainHandlers struct {
	Auth         auth.Handler
	User         user.Handler
	Appointment  appointment.Handler
	Notification notification.Handler
}

func (d *DomainHandlers) all() []routes {
	return []routes{&d.Auth, &d.User, &d.Appointment, &d.Notification}
}

type Router struct {
	DomainHandlers DomainHandlers
}

func New(domainHandlers DomainHandlers) Router {
	return Router{
		DomainHandlers: domainHandlers,
	}
}

// SetupRoutes mounts every domain under the versioned prefix. Unknown paths
// and methods answer with the same JSON error body as the handlers.
func (r *Router) SetupRoutes(mux chi.Router) {
	mux.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.WithError(w, failure.NotFound("route not found"))
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.WithMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	mux.Route(apiVersion, func(group chi.Router) {
		for _, handler := range r.DomainHandlers.all() {
			handler.Router(group)
		}
	})
}
