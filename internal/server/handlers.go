package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ppiankov/compintel/internal/model"
	"github.com/ppiankov/compintel/internal/router"
)

type errorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

type categoriesResponse struct {
	Categories []router.Route `json:"categories"`
}

type healthResponse struct {
	Status  string                        `json:"status"` // ok, degraded
	LLM     llmHealth                     `json:"llm"`
	Sources map[model.ProviderKind]string `json:"sources"`
}

type llmHealth struct {
	Configured bool   `json:"configured"`
	Provider   string `json:"provider,omitempty"`
}

// evaluate runs one evaluation. Engine failures are reported in the outcome
// body with status 200; only malformed input is a 4xx.
func (s *Server) evaluate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req model.EvaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
			return
		}
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := s.validate.Struct(req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  "invalid request",
			Fields: fieldErrors(err),
		})
		return
	}

	outcome := s.pipeline.Evaluate(r.Context(), req)
	s.writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) categories(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, categoriesResponse{Categories: s.pipeline.Router().Routes()})
}

// health reports degraded when synthesis is unconfigured or a source breaker is open
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	invoker := s.pipeline.Invoker()
	resp := healthResponse{
		Status: "ok",
		LLM: llmHealth{
			Configured: invoker.Configured(),
			Provider:   invoker.ProviderName(),
		},
		Sources: s.pipeline.Sources().BreakerStates(),
	}

	if !resp.LLM.Configured {
		resp.Status = "degraded"
	}
	for _, state := range resp.Sources {
		if state == "open" {
			resp.Status = "degraded"
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("write response failed", zap.Error(err))
	}
}

// newValidator reports field errors under their JSON names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func fieldErrors(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	fields := make([]string, 0, len(verrs))
	for _, e := range verrs {
		switch e.Tag() {
		case "required":
			fields = append(fields, fmt.Sprintf("%s is required", e.Field()))
		case "max":
			fields = append(fields, fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param()))
		default:
			fields = append(fields, fmt.Sprintf("%s is invalid", e.Field()))
		}
	}
	return fields
}
