package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ahinestrog/bookstore/internal/catalog"
	"github.com/ahinestrog/bookstore/internal/money"
)

type bookRequest struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Price       string `json:"price"`
	ISBN        string `json:"ISBN"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

func (req bookRequest) toBook() (*catalog.Book, error) {
	price, err := money.Parse(strings.TrimSpace(req.Price))
	if err != nil {
		return nil, &catalog.ValidationError{Fields: []string{"price"}}
	}
	return &catalog.Book{
		Title:       strings.TrimSpace(req.Title),
		Author:      strings.TrimSpace(req.Author),
		Price:       price,
		ISBN:        strings.TrimSpace(req.ISBN),
		Description: req.Description,
		Category:    catalog.Category(req.Category),
	}, nil
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func optionalPrice(raw string) (*decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GET /api/books?q=&category=&price_min=&price_max=&page=&page_size=
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.Filter{Query: q.Get("q"), Category: q.Get("category")}
	if f.Query == "" {
		f.Query = q.Get("search")
	}

	var err error
	if f.PriceMin, err = optionalPrice(q.Get("price_min")); err != nil {
		respondError(w, r, http.StatusBadRequest, "price_min must be a number")
		return
	}
	if f.PriceMax, err = optionalPrice(q.Get("price_max")); err != nil {
		respondError(w, r, http.StatusBadRequest, "price_max must be a number")
		return
	}
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))

	p, err := h.d.Catalog.List(r.Context(), f, page, size)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	out := bookPageView{
		Count:      p.TotalItems,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages,
		Results:    make([]*bookView, 0, len(p.Items)),
	}
	for _, b := range p.Items {
		out.Results = append(out.Results, toBookView(b))
	}
	respondJSON(w, r, http.StatusOK, out)
}

// GET /api/books/{id}
func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, r, http.StatusNotFound, "Not found.")
		return
	}
	b, err := h.d.Catalog.GetBook(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toBookView(b))
}

// POST /api/books
func (h *Handler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	b, err := req.toBook()
	if err == nil {
		b, err = h.d.Catalog.Create(r.Context(), b)
	}
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, toBookView(b))
}

// PUT /api/books/{id}
func (h *Handler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, r, http.StatusNotFound, "Not found.")
		return
	}
	var req bookRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	b, err := req.toBook()
	if err == nil {
		b.ID = id
		b, err = h.d.Catalog.Update(r.Context(), b)
	}
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toBookView(b))
}

// DELETE /api/books/{id}
func (h *Handler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, r, http.StatusNotFound, "Not found.")
		return
	}
	if err := h.d.Catalog.Delete(r.Context(), id); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
