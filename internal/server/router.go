package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/justinas/alice"
)

// Handler returns the API routes wrapped in the standard middleware chain.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	GET := api.Methods("GET", "HEAD").Subrouter()
	POST := api.Methods("POST").Subrouter()
	DELETE := api.Methods("DELETE").Subrouter()

	GET.HandleFunc("/assemblies", s.Assemblies).Name("assemblies")
	GET.HandleFunc("/assemblies/{assembly}/chromosomes", s.Chromosomes).Name("chromosomes")
	GET.HandleFunc("/genes", s.SearchGenes).Name("genes")
	GET.HandleFunc("/genes/{gene_id}", s.GeneDetails).Name("gene")
	GET.HandleFunc("/sequence", s.Sequence).Name("sequence")
	GET.HandleFunc("/clinvar", s.Clinvar).Name("clinvar")
	GET.HandleFunc("/analyses", s.Analyses).Name("analyses")

	POST.HandleFunc("/analyze", s.Analyze)
	POST.HandleFunc("/pipeline", s.Pipeline)

	DELETE.HandleFunc("/analyses", s.ClearAnalyses)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	standard := alice.New(
		withRequestID,
		s.logRequests,
	)

	return standard.Then(router)
}
