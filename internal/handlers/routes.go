package handlers

import "github.com/gorilla/mux"

// RegisterRoutes wires HTTP handlers into the provided router.
func RegisterRoutes(r *mux.Router, deps Dependencies) {
	health := HealthHandler{}
	media := MediaHandler{Lists: deps.Lists}
	family := FamilyHandler{Lists: deps.Lists}
	details := DetailsHandler{Lists: deps.Lists, Catalog: deps.Catalog}

	r.HandleFunc("/healthz", health.Handle)
	r.HandleFunc("/test", health.Test)

	api := r.PathPrefix("/api/user").Subrouter()
	api.HandleFunc("/create", media.Create)
	api.HandleFunc("/add", media.Add)
	api.HandleFunc("/liked/{email}", media.Liked)
	api.HandleFunc("/liked/{email}/details", details.Liked)
	api.HandleFunc("/remove", media.Remove)
	api.HandleFunc("/addToFamily", family.Add)
	api.HandleFunc("/shared/{email}", family.Shared)
	api.HandleFunc("/shared/{email}/details", details.Shared)
	api.HandleFunc("/removeFromWantToWatch", family.Remove)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Lists MediaLists
	// Catalog is nil when enrichment is not configured.
	Catalog CatalogEnricher
}
