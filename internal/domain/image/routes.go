package image

import (
	"github.com/go-chi/chi/v5"
)

// Routes mounts image endpoints
func Routes(handler *Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/upload", handler.Upload)
	r.Post("/upload/multiple", handler.UploadMultiple)

	r.Get("/search", handler.Search)
	r.Get("/images", handler.ListAll)
	r.Get("/images/{id}", handler.GetByID)
	r.Delete("/images/{id}", handler.Delete)

	r.Get("/stats", handler.Stats)
	r.Get("/debug", handler.Debug)

	return r
}
