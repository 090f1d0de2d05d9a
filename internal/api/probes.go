package api

import (
	"net/http"
)

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) (
	interface{}, error) {

	return map[string]string{"id": s.config.ID, "status": "alive"}, nil
}

func (s *Server) ReadinessHandler(w http.ResponseWriter, r *http.Request) (
	interface{}, error) {

	return map[string]string{"id": s.config.ID, "status": "ready"}, nil
}
