package server

import "github.com/go-chi/chi/v5"

// Registrar is a common interface for all HTTP service registrars.
// Each registrar mounts its routes on the /api router.
type Registrar interface {
	Register(r chi.Router)
}
