package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"calingen/internal/config"
	"calingen/internal/generation"
	appLog "calingen/internal/log"
	"calingen/internal/model"
	"calingen/internal/plugin"
	"calingen/internal/storage"
)

// eventDTO is the JSON shape of a stored event.
type eventDTO struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Start    string `json:"start"`
}

// eventPayload is the JSON request body for creating or updating an event.
type eventPayload struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Start    string `json:"start"`
}

func toEventDTO(ev storage.Event) eventDTO {
	return eventDTO{
		ID:       ev.ID,
		Title:    ev.Title,
		Category: string(ev.Category),
		Start:    ev.Start.Format("2006-01-02"),
	}
}

func (p eventPayload) toEvent(user, id string) (storage.Event, error) {
	if p.Title == "" {
		return storage.Event{}, errors.New("title is required")
	}
	start, err := model.ParseTimestamp(p.Start)
	if err != nil {
		return storage.Event{}, fmt.Errorf("invalid start: %w", err)
	}
	category := model.EventCategory(p.Category)
	switch category {
	case "":
		category = model.CategoryAnnualAnniversary
	case model.CategoryAnnualAnniversary, model.CategoryHoliday:
	default:
		return storage.Event{}, fmt.Errorf("unknown category %q", p.Category)
	}
	return storage.Event{
		ID:       id,
		User:     user,
		Title:    p.Title,
		Category: category,
		Start:    start,
	}, nil
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.store.ListEvents(requestUser(r))
	if err != nil {
		appLog.Error("listing events failed", err)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	dtos := make([]eventDTO, 0, len(events))
	for _, ev := range events {
		dtos = append(dtos, toEventDTO(ev))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var payload eventPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	ev, err := payload.toEvent(requestUser(r), "")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := s.store.CreateEvent(ev)
	if err != nil {
		appLog.Error("creating event failed", err)
		writeError(w, http.StatusInternalServerError, "failed to create event")
		return
	}
	writeJSON(w, http.StatusCreated, toEventDTO(created))
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.store.GetEvent(requestUser(r), mux.Vars(r)["id"])
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		appLog.Error("loading event failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load event")
		return
	}
	writeJSON(w, http.StatusOK, toEventDTO(ev))
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var payload eventPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	ev, err := payload.toEvent(requestUser(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	err = s.store.UpdateEvent(ev)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		appLog.Error("updating event failed", err)
		writeError(w, http.StatusInternalServerError, "failed to update event")
		return
	}
	writeJSON(w, http.StatusOK, toEventDTO(ev))
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteEvent(requestUser(r), mux.Vars(r)["id"])
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	if err != nil {
		appLog.Error("deleting event failed", err)
		writeError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListProviders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, plugin.Events.ListAvailable())
}

func (s *Server) handleListLayouts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, plugin.Layouts.ListAvailable())
}

func (s *Server) handleListCompilers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, plugin.Compilers.ListAvailable())
}

// profileResponse includes the reconciled provider state. Messages carries
// a user facing notification when providers vanished since the selection
// was stored, honoring the configured notification style.
type profileResponse struct {
	Active           []string `json:"active"`
	Unavailable      []string `json:"unavailable"`
	NewlyUnavailable []string `json:"newly_unavailable"`
	Messages         []string `json:"messages,omitempty"`
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	state, err := s.store.ProviderState(requestUser(r))
	if err != nil {
		appLog.Error("loading profile failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	resp := profileResponse{
		Active:           state.Active,
		Unavailable:      state.Unavailable,
		NewlyUnavailable: state.NewlyUnavailable,
	}
	if s.cfg.MissingProviderNotification == config.NotificationMessages {
		for _, id := range state.NewlyUnavailable {
			resp.Messages = append(resp.Messages,
				fmt.Sprintf("Event provider %q is no longer available.", id))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var sel storage.ProviderSelection
	if err := json.NewDecoder(r.Body).Decode(&sel); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user := requestUser(r)
	if err := s.store.SaveProviderSelection(user, sel); err != nil {
		appLog.Error("saving profile failed", err)
		writeError(w, http.StatusInternalServerError, "failed to save profile")
		return
	}
	s.handleGetProfile(w, r)
}

// selectPayload is the request body for starting the generation flow.
type selectPayload struct {
	Layout     string `json:"layout"`
	TargetYear int    `json:"target_year"`
}

func (s *Server) handleSelectLayout(w http.ResponseWriter, r *http.Request) {
	var payload selectPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sid := sessionID(w, r)
	year, err := s.flow.SelectLayout(r.Context(), sid, payload.Layout, payload.TargetYear)
	var unknown *plugin.UnknownPluginError
	if errors.As(err, &unknown) {
		writeError(w, http.StatusBadRequest, unknown.Error())
		return
	}
	if err != nil {
		appLog.Error("layout selection failed", err)
		writeError(w, http.StatusInternalServerError, "failed to select layout")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"layout":      payload.Layout,
		"target_year": year,
	})
}

// formDTO mirrors the layout's configuration form for the client.
type formDTO struct {
	Fields []plugin.FormField `json:"fields"`
}

func (s *Server) handleConfigurationForm(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(w, r)
	form, err := s.flow.ConfigurationForm(r.Context(), sid)
	switch {
	case errors.Is(err, generation.ErrNoLayoutSelected):
		writeError(w, http.StatusConflict, "no layout selected")
	case errors.Is(err, generation.ErrNoConfigurationForm):
		// The selected layout needs no configuration; the client may go
		// straight to compilation.
		w.WriteHeader(http.StatusNoContent)
	case err != nil:
		appLog.Error("loading configuration form failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load configuration form")
	default:
		writeJSON(w, http.StatusOK, formDTO{Fields: form.Fields})
	}
}

func (s *Server) handleSaveConfiguration(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sid := sessionID(w, r)
	err := s.flow.SaveConfiguration(r.Context(), sid, values)
	switch {
	case errors.Is(err, generation.ErrNoLayoutSelected):
		writeError(w, http.StatusConflict, "no layout selected")
	case errors.Is(err, generation.ErrNoConfigurationForm):
		w.WriteHeader(http.StatusNoContent)
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(w, r)
	artifact, err := s.flow.Generate(r.Context(), sid, requestUser(r))
	if errors.Is(err, generation.ErrNoLayoutSelected) {
		writeError(w, http.StatusConflict, "no layout selected")
		return
	}
	if err != nil {
		appLog.Error("generation failed", err)
		writeError(w, http.StatusInternalServerError, "generation failed")
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	if artifact.Filename != "" {
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifact.Body)
}
