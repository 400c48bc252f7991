package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.categories.List(r.Context())
	if err != nil {
		s.fail(w, r, err, log.ComponentCategory, log.OpList, "Error fetching categories")
		return
	}
	NewJSONResponse().Body(orEmpty(cats)).Write(w)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var in core.CategoryInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err, log.ComponentCategory, log.OpValidate, "Error saving category")
		return
	}
	name, verrs := core.ValidateCategory(in)
	if verrs != nil {
		// Same shape as the other 400s, message first.
		NewJSONResponse().
			Status(http.StatusBadRequest).
			Body(MessageBody{Message: "Category is required", Errors: verrs}).
			Write(w)
		return
	}

	if err := s.categories.Add(r.Context(), name); err != nil {
		s.fail(w, r, err, log.ComponentCategory, log.OpCreate, "Error saving category")
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Body(core.CategoryInput{Category: name}).
		Write(w)
}
