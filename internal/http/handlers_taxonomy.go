package http

import (
	"context"
	"net/http"

	"diary/internal/core"
	dlog "diary/internal/log"
	"diary/internal/services"
)

type itemJSON struct {
	ID         string `json:"id"`
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
	Emoji      string `json:"emoji,omitempty"`
	IsActive   bool   `json:"is_active"`
	Order      int    `json:"order"`
}

type categoryJSON struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Color    string     `json:"color,omitempty"`
	IsActive bool       `json:"is_active"`
	Order    int        `json:"order"`
	Items    []itemJSON `json:"items"`
}

func toItemJSON(it core.Item) itemJSON {
	return itemJSON{
		ID:         it.ID,
		CategoryID: it.CategoryID,
		Name:       it.Name,
		Emoji:      it.Emoji,
		IsActive:   it.IsActive,
		Order:      it.Order,
	}
}

func toCategoryJSON(c core.Category) categoryJSON {
	out := categoryJSON{
		ID:       c.ID,
		Name:     c.Name,
		Color:    c.Color,
		IsActive: c.IsActive,
		Order:    c.Order,
		Items:    make([]itemJSON, len(c.Items)),
	}
	for i, it := range c.Items {
		out.Items[i] = toItemJSON(it)
	}
	return out
}

// taxonomyView is the settings partial listing every category and item.
type taxonomyView struct {
	Categories   []core.Category
	DefaultEmoji string
}

func (s *Server) taxonomyView(ctx context.Context) (taxonomyView, error) {
	cats, err := s.taxonomy.ListCategories(ctx, true)
	if err != nil {
		return taxonomyView{}, err
	}
	return taxonomyView{Categories: cats, DefaultEmoji: services.DefaultItemEmoji}, nil
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.taxonomy.ListCategories(r.Context(), parseActive(r.URL.Query().Get("include_inactive")))
	if err != nil {
		writeServiceError(w, r, err, dlog.OpList)
		return
	}
	out := make([]categoryJSON, len(cats))
	for i, c := range cats {
		out[i] = toCategoryJSON(c)
	}
	writeJSON(w, http.StatusOK, out)
}

// taxonomyWrite parses the body, runs fn and answers with the refreshed
// settings partial for HTMX. Other clients get fn's result as JSON, or 204
// when it returns nil.
func (s *Server) taxonomyWrite(w http.ResponseWriter, r *http.Request, op, msg string, fn func(p *RequestBodyParser) (any, error)) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}

	result, err := fn(p)
	if err != nil {
		writeServiceError(w, r, err, op)
		return
	}
	s.taxWrites.Add(1)

	status := http.StatusOK
	if op == dlog.OpCreate {
		status = http.StatusCreated
	}
	if !isHTMX(r) {
		if result == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, status, result)
		return
	}

	tax, err := s.taxonomyView(r.Context())
	if err != nil {
		writeServiceError(w, r, err, dlog.OpList)
		return
	}
	b := NewHTMXResponse().
		Status(status).
		TriggerTaxonomyChanged().
		TriggerSuccessNotification(msg)
	s.respond(w, r, b, "taxonomy", tax)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	s.taxonomyWrite(w, r, dlog.OpCreate, "Category added", func(p *RequestBodyParser) (any, error) {
		c, err := s.taxonomy.AddCategory(r.Context(), p.Get("name"), p.Get("color"))
		if err != nil {
			return nil, err
		}
		return toCategoryJSON(c), nil
	})
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	s.taxonomyWrite(w, r, dlog.OpUpdate, "Category updated", func(p *RequestBodyParser) (any, error) {
		c, err := s.taxonomy.UpdateCategory(r.Context(), r.PathValue("id"), p.Get("name"), p.Get("color"))
		if err != nil {
			return nil, err
		}
		return toCategoryJSON(c), nil
	})
}

func (s *Server) handleSetCategoryActive(w http.ResponseWriter, r *http.Request) {
	s.taxonomyWrite(w, r, dlog.OpUpdate, "Category updated", func(p *RequestBodyParser) (any, error) {
		return nil, s.taxonomy.SetCategoryActive(r.Context(), r.PathValue("id"), parseActive(p.Get("active")))
	})
}

func (s *Server) handleMoveCategory(w http.ResponseWriter, r *http.Request) {
	s.taxonomyWrite(w, r, dlog.OpMove, "Category moved", func(p *RequestBodyParser) (any, error) {
		dir, err := parseDirection(p.Get("direction"))
		if err != nil {
			return nil, err
		}
		return nil, s.taxonomy.MoveCategory(r.Context(), r.PathValue("id"), dir)
	})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	s.taxonomyWrite(w, r, dlog.OpDelete, "Category deactivated", func(*RequestBodyParser) (any, error) {
		return nil, s.taxonomy.DeleteCategory(r.Context(), r.PathValue("id"))
	})
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	s.taxonomyWrite(w, r, dlog.OpCreate, "Item added", func(p *RequestBodyParser) (any, error) {
		it, err := s.taxonomy.AddItem(r.Context(), r.PathValue("id"), p.Get("name"), p.Get("emoji"))
		if err != nil {
			return nil, err
		}
		return toItemJSON(it), nil
	})
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	s.taxonomyWrite(w, r, dlog.OpUpdate, "Item updated", func(p *RequestBodyParser) (any, error) {
		it, err := s.taxonomy.UpdateItem(r.Context(), r.PathValue("id"), p.Get("name"), p.Get("emoji"))
		if err != nil {
			return nil, err
		}
		return toItemJSON(it), nil
	})
}

func (s *Server) handleSetItemActive(w http.ResponseWriter, r *http.Request) {
	s.taxonomyWrite(w, r, dlog.OpUpdate, "Item updated", func(p *RequestBodyParser) (any, error) {
		return nil, s.taxonomy.SetItemActive(r.Context(), r.PathValue("id"), parseActive(p.Get("active")))
	})
}

func (s *Server) handleMoveItem(w http.ResponseWriter, r *http.Request) {
	s.taxonomyWrite(w, r, dlog.OpMove, "Item moved", func(p *RequestBodyParser) (any, error) {
		dir, err := parseDirection(p.Get("direction"))
		if err != nil {
			return nil, err
		}
		return nil, s.taxonomy.MoveItem(r.Context(), r.PathValue("id"), dir)
	})
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	s.taxonomyWrite(w, r, dlog.OpDelete, "Item deactivated", func(*RequestBodyParser) (any, error) {
		return nil, s.taxonomy.DeleteItem(r.Context(), r.PathValue("id"))
	})
}
