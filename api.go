package main

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/alepar/radoff/radoff/entity"
	"github.com/alepar/radoff/radoff/index"
)

type entityState struct {
	UniqueID       string            `json:"unique_id"`
	TranslationKey string            `json:"translation_key"`
	Name           string            `json:"name"`
	Kind           string            `json:"kind"`
	Available      bool              `json:"available"`
	State          string            `json:"state,omitempty"`
	Unit           string            `json:"unit,omitempty"`
	DeviceClass    string            `json:"device_class,omitempty"`
	StateClass     string            `json:"state_class,omitempty"`
	Device         entity.DeviceInfo `json:"device"`
}

func newRouter(platform *entity.Platform, table index.Table, reg *prometheus.Registry) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", metricsHandler(reg)).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/entities", entitiesHandler(platform)).Methods(http.MethodGet)
	r.HandleFunc("/api/entities/{id}", entityHandler(platform)).Methods(http.MethodGet)
	r.HandleFunc("/api/rules", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, table)
	}).Methods(http.MethodGet)
	return r
}

func toState(s *entity.Sensor) entityState {
	st := entityState{
		UniqueID:       s.UniqueID(),
		TranslationKey: s.TranslationKey(),
		Name:           s.Name(),
		Kind:           s.Kind().String(),
		Unit:           s.Unit(),
		DeviceClass:    s.DeviceClass(),
		StateClass:     s.StateClass(),
		Device:         s.DeviceInfo(),
	}
	if state, err := s.State(); err == nil {
		st.Available = true
		st.State = state
	}
	return st
}

func entitiesHandler(platform *entity.Platform) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		sensors := platform.Sensors()
		out := make([]entityState, 0, len(sensors))
		for _, s := range sensors {
			out = append(out, toState(s))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func entityHandler(platform *entity.Platform) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		for _, s := range platform.Sensors() {
			if s.UniqueID() == id {
				writeJSON(w, http.StatusOK, toState(s))
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "entity not found"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("failed to encode response: %s", err)
	}
}
