package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/fotomart/api/internal/platform/httpx"
	"github.com/fotomart/api/internal/platform/storage"
	"github.com/fotomart/api/internal/services"
)

// CatalogHandlers exposes the public storefront endpoints: the product list,
// payment widget configuration and stored product images.
type CatalogHandlers struct {
	catalog        services.CatalogService
	images         storage.ImageStore
	publishableKey string
}

// NewCatalogHandlers constructs the public catalog handlers.
func NewCatalogHandlers(catalog services.CatalogService, images storage.ImageStore, publishableKey string) *CatalogHandlers {
	return &CatalogHandlers{
		catalog:        catalog,
		images:         images,
		publishableKey: publishableKey,
	}
}

// Routes registers catalog endpoints under the provided router.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products", h.listProducts)
	r.Get("/config", h.config)
	r.Get("/uploads/{filename}", h.serveImage)
}

type productPayload struct {
	ID          string  `json:"_id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	ImageURL    string  `json:"image_url"`
}

func toProductPayload(p services.Product) productPayload {
	return productPayload{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Description: p.Description,
		ImageURL:    p.ImageURL,
	}
}

func (h *CatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	products, err := h.catalog.ListProducts(ctx)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_error", "failed to load products", http.StatusInternalServerError))
		return
	}

	payload := make([]productPayload, 0, len(products))
	for _, p := range products {
		payload = append(payload, toProductPayload(p))
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *CatalogHandlers) config(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]string{
		"publishable_key": h.publishableKey,
	})
}

func (h *CatalogHandlers) serveImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.images == nil {
		httpx.WriteError(ctx, w, httpx.NewError("storage_unavailable", "image storage unavailable", http.StatusServiceUnavailable))
		return
	}

	filename := chi.URLParam(r, "filename")
	f, err := h.images.Open(filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httpx.WriteError(ctx, w, httpx.NewError("image_not_found", "image not found", http.StatusNotFound))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("storage_error", "failed to open image", http.StatusInternalServerError))
		return
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = io.Copy(w, f)
}
