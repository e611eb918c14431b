package handler

import (
	"net/http"
	"sync"

	"medsys/config"
	"medsys/di"
	"medsys/shared/logger"
	transportHTTP "medsys/transport/http"
)

var (
	once   sync.Once
	server *transportHTTP.HTTP
)

// Handler is the serverless entry point. The dependency graph is built on the
// first invocation and reused while the instance stays warm.
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		logger.InitLogger()
		logger.SetLogLevel(config.Get())

		server = di.InitializeService()
	})

	r.RequestURI = r.URL.String()

	server.ServeHTTP(w, r)
}
