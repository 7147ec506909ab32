package storefront

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
)

var (
	// ErrNotAdmin is returned when an admin operation runs without an admin session.
	ErrNotAdmin = errors.New("storefront: admin session required")
	// ErrProductNotFound is returned when the target product does not exist.
	ErrProductNotFound = errors.New("storefront: product not found")
)

// ProductForm carries the fields of an add or edit submission. Image is
// optional on edit; the server keeps the existing photo without one.
type ProductForm struct {
	Name        string
	Price       float64
	Description string
	ImageName   string
	Image       io.Reader
}

// AdminCatalog drives the admin product management views. Every operation
// consults the session gate before touching the network: a guest never sees
// admin data, not even a request for it. The gate can still go stale, so a
// 401 from the API also maps to ErrNotAdmin.
type AdminCatalog struct {
	client *Client
	gate   *SessionGate
}

// NewAdminCatalog constructs the admin catalog controller behind the gate.
func NewAdminCatalog(client *Client, gate *SessionGate) *AdminCatalog {
	return &AdminCatalog{client: client, gate: gate}
}

func (a *AdminCatalog) authorize() error {
	if a.gate == nil || !a.gate.IsAdmin() {
		return ErrNotAdmin
	}
	return nil
}

// Products lists the catalog for the admin table view.
func (a *AdminCatalog) Products(ctx context.Context) ([]Product, error) {
	if err := a.authorize(); err != nil {
		return nil, err
	}
	var products []Product
	if err := a.client.getJSON(ctx, "/products", &products); err != nil {
		return nil, mapAdminError(err)
	}
	return products, nil
}

// LoadForEdit fetches the product the edit form opens with.
func (a *AdminCatalog) LoadForEdit(ctx context.Context, productID string) (Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Product{}, ErrProductNotFound
	}
	products, err := a.Products(ctx)
	if err != nil {
		return Product{}, err
	}
	for i := range products {
		if products[i].ID == productID {
			return products[i], nil
		}
	}
	return Product{}, ErrProductNotFound
}

// Add creates a product from the submitted form. The image is required.
func (a *AdminCatalog) Add(ctx context.Context, form ProductForm) (Product, error) {
	if err := a.authorize(); err != nil {
		return Product{}, err
	}
	body, contentType, err := encodeProductForm(form)
	if err != nil {
		return Product{}, err
	}
	var created Product
	if err := a.client.doMultipart(ctx, http.MethodPost, "/add_product", body, contentType, &created); err != nil {
		return Product{}, mapAdminError(err)
	}
	return created, nil
}

// Update overwrites a product with the submitted form.
func (a *AdminCatalog) Update(ctx context.Context, productID string, form ProductForm) (Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Product{}, fmt.Errorf("storefront: product id is required")
	}
	if err := a.authorize(); err != nil {
		return Product{}, err
	}
	body, contentType, err := encodeProductForm(form)
	if err != nil {
		return Product{}, err
	}
	var updated Product
	if err := a.client.doMultipart(ctx, http.MethodPut, "/products/"+productID, body, contentType, &updated); err != nil {
		return Product{}, mapAdminError(err)
	}
	return updated, nil
}

// Delete removes a product after the confirm callback approves it. The
// callback stands in for the "are you sure" dialog; a nil callback deletes
// without asking.
func (a *AdminCatalog) Delete(ctx context.Context, productID string, confirm func(Product) bool) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return fmt.Errorf("storefront: product id is required")
	}
	if err := a.authorize(); err != nil {
		return err
	}

	if confirm != nil {
		target, err := a.LoadForEdit(ctx, productID)
		if err != nil {
			return err
		}
		if !confirm(target) {
			return nil
		}
	}

	if err := a.client.doDelete(ctx, "/products/"+productID, nil); err != nil {
		return mapAdminError(err)
	}
	return nil
}

func encodeProductForm(form ProductForm) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("name", form.Name); err != nil {
		return nil, "", fmt.Errorf("storefront: encode form: %w", err)
	}
	if err := writer.WriteField("price", strconv.FormatFloat(form.Price, 'f', -1, 64)); err != nil {
		return nil, "", fmt.Errorf("storefront: encode form: %w", err)
	}
	if err := writer.WriteField("description", form.Description); err != nil {
		return nil, "", fmt.Errorf("storefront: encode form: %w", err)
	}
	if form.Image != nil {
		part, err := writer.CreateFormFile("image", form.ImageName)
		if err != nil {
			return nil, "", fmt.Errorf("storefront: encode form: %w", err)
		}
		if _, err := io.Copy(part, form.Image); err != nil {
			return nil, "", fmt.Errorf("storefront: encode form: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("storefront: encode form: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

func mapAdminError(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == http.StatusUnauthorized:
			return ErrNotAdmin
		case apiErr.Code == "product_not_found":
			return ErrProductNotFound
		}
	}
	return err
}
