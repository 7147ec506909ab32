package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fotomart/api/internal/platform/httpx"
	"github.com/fotomart/api/internal/services"
)

// maxUploadSize bounds multipart product uploads, image included.
const maxUploadSize = 16 << 20

// AdminCatalogHandlers exposes the admin product mutation endpoints. The
// router mounts these behind the admin session middleware.
type AdminCatalogHandlers struct {
	catalog services.CatalogService
}

// NewAdminCatalogHandlers constructs admin catalog handlers.
func NewAdminCatalogHandlers(catalog services.CatalogService) *AdminCatalogHandlers {
	return &AdminCatalogHandlers{catalog: catalog}
}

// Routes registers admin catalog endpoints under the provided router.
func (h *AdminCatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/add_product", h.addProduct)
	r.Put("/products/{productId}", h.updateProduct)
	r.Delete("/products/{productId}", h.deleteProduct)
}

// parseProductForm reads the shared multipart fields of add and edit.
func (h *AdminCatalogHandlers) parseProductForm(ctx context.Context, w http.ResponseWriter, r *http.Request) (name string, price float64, description string, image *services.ImageUpload, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		status := http.StatusBadRequest
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
		}
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request must be valid multipart form data", status))
		return "", 0, "", nil, false
	}

	name = strings.TrimSpace(r.FormValue("name"))
	description = r.FormValue("description")

	priceValue := strings.TrimSpace(r.FormValue("price"))
	if priceValue != "" {
		parsed, err := strconv.ParseFloat(priceValue, 64)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "price must be a number", http.StatusBadRequest))
			return "", 0, "", nil, false
		}
		price = parsed
	}

	file, header, err := r.FormFile("image")
	switch {
	case err == nil:
		image = &services.ImageUpload{Filename: header.Filename, Content: file}
	case errors.Is(err, http.ErrMissingFile):
		// Edit keeps the existing photo without a new upload.
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "failed to read image upload", http.StatusBadRequest))
		return "", 0, "", nil, false
	}

	return name, price, description, image, true
}

func (h *AdminCatalogHandlers) addProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	name, price, description, image, ok := h.parseProductForm(ctx, w, r)
	if !ok {
		return
	}

	created, err := h.catalog.AddProduct(ctx, services.AddProductCommand{
		Name:        name,
		Price:       price,
		Description: description,
		Image:       image,
	})
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, toProductPayload(created))
}

func (h *AdminCatalogHandlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	name, price, description, image, ok := h.parseProductForm(ctx, w, r)
	if !ok {
		return
	}

	updated, err := h.catalog.UpdateProduct(ctx, services.UpdateProductCommand{
		ID:          chi.URLParam(r, "productId"),
		Name:        name,
		Price:       price,
		Description: description,
		Image:       image,
	})
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toProductPayload(updated))
}

func (h *AdminCatalogHandlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	if err := h.catalog.DeleteProduct(ctx, chi.URLParam(r, "productId")); err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *AdminCatalogHandlers) writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrUnsupportedImage):
		httpx.WriteError(ctx, w, httpx.NewError("unsupported_image", "image type is not allowed", http.StatusBadRequest))
	case errors.Is(err, services.ErrProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_error", "failed to process catalog request", http.StatusInternalServerError))
	}
}
