package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mnemo-ai/mnemo/pkg/models"
)

const defaultMessageWindow = 50

// GetSessionHandler godoc
//
//	@Summary		Returns a session by ID
//	@Description	get session by id
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			sessionId	path		string	true	"Session ID"
//	@Success		200			{object}	models.SessionRow
//	@Failure		404			{object}	APIError	"Not Found"
//	@Failure		500			{object}	APIError	"Internal Server Error"
//	@Router			/api/v1/sessions/{sessionId} [get]
func GetSessionHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionId")

		sessions, err := appState.Storage.QuerySessions(
			r.Context(),
			models.CurrentSessionScope(sessionID),
		)
		if err != nil {
			renderError(w, err, http.StatusInternalServerError)
			return
		}
		if len(sessions) == 0 {
			renderError(w, fmt.Errorf("not found"), http.StatusNotFound)
			return
		}

		if err := encodeJSON(w, sessions[0]); err != nil {
			renderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}

// GetSessionMessagesHandler godoc
//
//	@Summary		Returns messages for a given session
//	@Description	get messages by session id, most recent first
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			sessionId	path		string	true	"Session ID"
//	@Param			lastn		query		integer	false	"Last N messages"
//	@Success		200			{object}	[]models.MessageRow
//	@Failure		500			{object}	APIError	"Internal Server Error"
//	@Router			/api/v1/sessions/{sessionId}/messages [get]
func GetSessionMessagesHandler(appState *models.AppState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionId")
		lastN, err := extractQueryStringValueToInt[int](r, "lastn")
		if err != nil {
			renderError(w, err, http.StatusBadRequest)
			return
		}
		if lastN <= 0 {
			lastN = defaultMessageWindow
		}

		messages, err := appState.Storage.QueryMessages(
			r.Context(),
			[]string{sessionID},
			models.SortDescending,
			lastN,
		)
		if err != nil {
			renderError(w, err, http.StatusInternalServerError)
			return
		}
		if messages == nil {
			messages = []models.MessageRow{}
		}

		if err := encodeJSON(w, messages); err != nil {
			renderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}
