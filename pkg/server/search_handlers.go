package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mnemo-ai/mnemo/pkg/models"
)

var validate = validator.New()

// SearchRequest is the body of a search call. The session id in the URL, if
// present, scopes the search to that session.
type SearchRequest struct {
	Query string `json:"query" validate:"required"`
	models.SearchOptions
}

// SearchHandler godoc
//
//	@Summary		Searches conversational memory
//	@Description	runs a two-tier memory search for the given query
//	@Tags			search
//	@Accept			json
//	@Produce		json
//	@Param			sessionId	path		string			false	"Session ID"
//	@Param			searchRequest	body	SearchRequest	true	"Search query and options"
//	@Success		200			{object}	models.SearchResult
//	@Failure		400			{object}	APIError	"Bad Request"
//	@Failure		500			{object}	APIError	"Internal Server Error"
//	@Router			/api/v1/search [post]
func SearchHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var request SearchRequest
		if err := decodeJSON(r, &request); err != nil {
			renderError(w, fmt.Errorf("failed to decode search request: %w", err), http.StatusBadRequest)
			return
		}
		if sessionID := chi.URLParam(r, "sessionId"); sessionID != "" {
			request.SessionID = sessionID
		}
		if err := validate.Struct(request); err != nil {
			renderError(w, fmt.Errorf("invalid search request: %w", err), http.StatusBadRequest)
			return
		}

		result, err := appState.Searcher.Search(r.Context(), request.Query, request.SearchOptions)
		if err != nil {
			renderError(w, err, http.StatusInternalServerError)
			return
		}

		if err := encodeJSON(w, result); err != nil {
			renderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}
