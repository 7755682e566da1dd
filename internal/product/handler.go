package product

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"catalog-api/internal/observability"
)

const maxJSONBodyBytes = 1 << 20

// Store is the persistence the handler needs; *Repository implements it.
type Store interface {
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id string) (Product, error)
	Categories(ctx context.Context) ([]string, error)
	Create(ctx context.Context, input ProductInput) (Product, error)
	Update(ctx context.Context, id string, input ProductInput) (Product, error)
	Delete(ctx context.Context, id string) error
}

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.List(r.Context())
	if err != nil {
		observability.CaptureError(err)
		writeError(w, http.StatusInternalServerError, "Failed to list products")
		return
	}

	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	p, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "Failed to get product")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.Categories(r.Context())
	if err != nil {
		observability.CaptureError(err)
		writeError(w, http.StatusInternalServerError, "Failed to list categories")
		return
	}

	writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	input, ok := parseInput(w, r)
	if !ok {
		return
	}

	p, err := h.store.Create(r.Context(), input)
	if err != nil {
		observability.CaptureError(err)
		writeError(w, http.StatusInternalServerError, "Failed to create product")
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	input, ok := parseInput(w, r)
	if !ok {
		return
	}

	p, err := h.store.Update(r.Context(), id, input)
	if err != nil {
		h.writeStoreError(w, err, "Failed to update product")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		h.writeStoreError(w, err, "Failed to delete product")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, ErrNotFound.Message)
		return
	}
	observability.CaptureError(err)
	writeError(w, http.StatusInternalServerError, message)
}

func productID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product id")
		return "", false
	}
	return id, true
}

func parseInput(w http.ResponseWriter, r *http.Request) (ProductInput, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var input ProductInput
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return ProductInput{}, false
	}

	if message := validateInput(&input); message != "" {
		writeError(w, http.StatusBadRequest, message)
		return ProductInput{}, false
	}

	return input, true
}

// validateInput trims the text fields in place and returns the first problem found.
func validateInput(input *ProductInput) string {
	input.ProductCode = strings.TrimSpace(input.ProductCode)
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	input.Category = strings.TrimSpace(input.Category)

	switch {
	case input.Name == "":
		return "Nombre is required"
	case !validText(input.Name, 150):
		return "Nombre is invalid"
	case !validText(input.Description, 1000):
		return "Descripcion is invalid"
	case input.Category == "":
		return "Categoria is required"
	case !validText(input.Category, 100):
		return "Categoria is invalid"
	case !validText(input.ProductCode, 64):
		return "ProductID is invalid"
	case input.Price < 0:
		return "Precio must be >= 0"
	}
	return ""
}

func validText(value string, maxChars int) bool {
	return utf8.ValidString(value) && utf8.RuneCountInString(value) <= maxChars
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
