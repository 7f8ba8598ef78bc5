package transport

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"ecommerce/pkg/domain/model"
	"ecommerce/pkg/domain/service"
)

type createBrandRequest struct {
	Name   string `form:"name" validate:"required,min=3,max=50"`
	Slogan string `form:"slogan" validate:"required,min=3,max=20"`
}

type updateBrandRequest struct {
	Name   *string `json:"name" validate:"omitempty,min=3,max=50"`
	Slogan *string `json:"slogan" validate:"omitempty,min=3,max=20"`
}

type createCategoryRequest struct {
	Name     string   `form:"name" validate:"required,min=3,max=50"`
	Brands   []string `form:"brands" validate:"dive,objectid"`
	ParentID string   `form:"parentId" validate:"omitempty,objectid"`
}

type updateCategoryRequest struct {
	Name   *string  `json:"name" validate:"omitempty,min=3,max=50"`
	Brands []string `json:"brands" validate:"omitempty,dive,objectid"`
}

type createProductRequest struct {
	Name        string `form:"name" validate:"required,min=3,max=50"`
	Description string `form:"description" validate:"required,min=10,max=100000"`
	Price       string `form:"price" validate:"required,numeric"`
	Discount    int    `form:"discount" validate:"min=0,max=100"`
	Quantity    int    `form:"quantity" validate:"required,min=1"`
	Stock       int    `form:"stock" validate:"min=0"`
	Brand       string `form:"brand" validate:"required,objectid"`
	Category    string `form:"category" validate:"required,objectid"`
}

type updateProductRequest struct {
	Name        *string          `json:"name" validate:"omitempty,min=3,max=50"`
	Description *string          `json:"description" validate:"omitempty,min=10,max=100000"`
	Price       *decimal.Decimal `json:"price"`
	Discount    *int             `json:"discount" validate:"omitempty,min=0,max=100"`
	Quantity    *int             `json:"quantity" validate:"omitempty,min=1"`
	Stock       *int             `json:"stock" validate:"omitempty,min=0"`
	Brand       *string          `json:"brand" validate:"omitempty,objectid"`
	Category    *string          `json:"category" validate:"omitempty,objectid"`
}

func (s *server) brandRoutes(r *mux.Router) {
	r.HandleFunc("", s.listBrands).Methods(http.MethodGet)
	r.HandleFunc("/all", s.allBrands).Methods(http.MethodGet)
	r.Handle("", s.admin(s.createBrand)).Methods(http.MethodPost)
	r.Handle("/update/{id}", s.admin(s.updateBrand)).Methods(http.MethodPatch)
	r.Handle("/updateImage/{id}", s.admin(s.updateBrandImage)).Methods(http.MethodPatch)
	r.Handle("/freezeBrand/{id}", s.admin(s.byID(s.Brands.Freeze))).Methods(http.MethodPatch)
	r.Handle("/restoreBrand/{id}", s.admin(s.byID(s.Brands.Restore))).Methods(http.MethodPatch)
	r.Handle("/deleteBrand/{id}", s.admin(s.byID(s.Brands.Delete))).Methods(http.MethodDelete)
}

func (s *server) categoryRoutes(r *mux.Router) {
	r.HandleFunc("", s.listCategories).Methods(http.MethodGet)
	r.Handle("", s.admin(s.createCategory)).Methods(http.MethodPost)
	r.Handle("/update/{id}", s.admin(s.updateCategory)).Methods(http.MethodPatch)
	r.Handle("/updateImage/{id}", s.admin(s.updateCategoryImage)).Methods(http.MethodPatch)
	r.Handle("/freezeCategory/{id}", s.admin(s.byID(s.Categories.Freeze))).Methods(http.MethodPatch)
	r.Handle("/restoreCategory/{id}", s.admin(s.byID(s.Categories.Restore))).Methods(http.MethodPatch)
	r.Handle("/deleteCategory/{id}", s.admin(s.byID(s.Categories.Delete))).Methods(http.MethodDelete)
}

func (s *server) productRoutes(r *mux.Router) {
	r.HandleFunc("", s.listProducts).Methods(http.MethodGet)
	r.HandleFunc("/{id}", s.getProduct).Methods(http.MethodGet)
	r.Handle("", s.admin(s.createProduct)).Methods(http.MethodPost)
	r.Handle("/update/{id}", s.admin(s.updateProduct)).Methods(http.MethodPatch)
	r.Handle("/updateImages/{id}", s.admin(s.updateProductImages)).Methods(http.MethodPatch)
	r.Handle("/freezeProduct/{id}", s.admin(s.byID(s.Products.Freeze))).Methods(http.MethodPatch)
	r.Handle("/restoreProduct/{id}", s.admin(s.byID(s.Products.Restore))).Methods(http.MethodPatch)
	r.Handle("/deleteProduct/{id}", s.admin(s.byID(s.Products.Delete))).Methods(http.MethodDelete)
	r.Handle("/wishlist/{id}", s.customer(s.toggleWishlist)).Methods(http.MethodPatch)
}

// byID adapts the freeze, restore and delete actions that only need the caller and a path id.
func (s *server) byID(action func(ctx context.Context, actor, id model.ObjectID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := action(r.Context(), currentUser(r).ID, id); err != nil {
			writeError(w, r, err)
			return
		}
		done(w, http.StatusOK, nil)
	}
}

func paginated[T any](p *model.Paginated[T]) payload {
	return payload{
		"currentPage": p.CurrentPage,
		"count":       p.TotalCount,
		"numOfPages":  p.PageCount,
		"docs":        p.Items,
	}
}

func (s *server) listBrands(w http.ResponseWriter, r *http.Request) {
	page, search, err := pageOf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	brands, err := s.Brands.List(r.Context(), search, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusOK, paginated(brands))
}

func (s *server) allBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := s.Brands.ListAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusOK, payload{"brands": brands})
}

func (s *server) createBrand(w http.ResponseWriter, r *http.Request) {
	form, err := s.uploads.parseForm(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req := createBrandRequest{Name: formValue(form, "name"), Slogan: formValue(form, "slogan")}
	if err := validateStruct(req); err != nil {
		writeError(w, r, err)
		return
	}
	image, err := s.uploads.requireFile(form, "attachment")
	if err != nil {
		writeError(w, r, err)
		return
	}

	brand, err := s.Brands.Create(r.Context(), currentUser(r).ID, service.CreateBrandInput{
		Name:   req.Name,
		Slogan: req.Slogan,
		Image:  image,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusCreated, payload{"brand": brand})
}

func (s *server) updateBrand(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateBrandRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	brand, err := s.Brands.Update(r.Context(), currentUser(r).ID, id, service.UpdateBrandInput{Name: req.Name, Slogan: req.Slogan})
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusOK, payload{"brand": brand})
}

func (s *server) updateBrandImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	image, err := s.singleImage(w, r, "attachment")
	if err != nil {
		writeError(w, r, err)
		return
	}
	brand, err := s.Brands.UpdateImage(r.Context(), currentUser(r).ID, id, image)
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusOK, payload{"brand": brand})
}

func (s *server) singleImage(w http.ResponseWriter, r *http.Request, field string) (model.File, error) {
	form, err := s.uploads.parseForm(w, r)
	if err != nil {
		return model.File{}, err
	}
	return s.uploads.requireFile(form, field)
}

func (s *server) listCategories(w http.ResponseWriter, r *http.Request) {
	page, search, err := pageOf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	categories, err := s.Categories.List(r.Context(), search, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusOK, paginated(categories))
}

func (s *server) createCategory(w http.ResponseWriter, r *http.Request) {
	form, err := s.uploads.parseForm(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req := createCategoryRequest{
		Name:     formValue(form, "name"),
		Brands:   formValues(form, "brands"),
		ParentID: formValue(form, "parentId"),
	}
	if err := validateStruct(req); err != nil {
		writeError(w, r, err)
		return
	}
	image, err := s.uploads.requireFile(form, "attachment")
	if err != nil {
		writeError(w, r, err)
		return
	}

	input := service.CreateCategoryInput{Name: req.Name, Image: image}
	if input.Brands, err = parseIDs(req.Brands); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ParentID != "" {
		parent, err := model.ParseID(req.ParentID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		input.ParentID = &parent
	}

	category, err := s.Categories.Create(r.Context(), currentUser(r).ID, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusCreated, payload{"category": category})
}

func (s *server) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	brands, err := parseIDs(req.Brands)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(brands) == 0 {
		brands = nil
	}
	category, err := s.Categories.Update(r.Context(), currentUser(r).ID, id, service.UpdateCategoryInput{Name: req.Name, Brands: brands})
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusOK, payload{"category": category})
}

func (s *server) updateCategoryImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	image, err := s.singleImage(w, r, "attachment")
	if err != nil {
		writeError(w, r, err)
		return
	}
	category, err := s.Categories.UpdateImage(r.Context(), currentUser(r).ID, id, image)
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusOK, payload{"category": category})
}

func (s *server) listProducts(w http.ResponseWriter, r *http.Request) {
	page, search, err := pageOf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	products, err := s.Products.List(r.Context(), search, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusOK, paginated(products))
}

func (s *server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	product, err := s.Products.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusOK, payload{"product": product})
}

func (s *server) createProduct(w http.ResponseWriter, r *http.Request) {
	form, err := s.uploads.parseForm(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req := createProductRequest{
		Name:        formValue(form, "name"),
		Description: formValue(form, "description"),
		Price:       formValue(form, "price"),
		Brand:       formValue(form, "brand"),
		Category:    formValue(form, "category"),
	}
	for field, dst := range map[string]*int{"discount": &req.Discount, "quantity": &req.Quantity, "stock": &req.Stock} {
		if *dst, err = queryInt(formValue(form, field)); err != nil {
			writeError(w, r, badRequest(field+" must be a number"))
			return
		}
	}
	if err := validateStruct(req); err != nil {
		writeError(w, r, err)
		return
	}

	input := service.CreateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Discount:    req.Discount,
		Quantity:    req.Quantity,
		Stock:       req.Stock,
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		writeError(w, r, badRequest("price must be a number"))
		return
	}
	if input.ListPriceCents, err = toCents(price); err != nil {
		writeError(w, r, err)
		return
	}
	input.BrandID, _ = model.ParseID(req.Brand)
	input.CategoryID, _ = model.ParseID(req.Category)
	if input.MainImage, err = s.uploads.requireFile(form, "mainImage"); err != nil {
		writeError(w, r, err)
		return
	}
	if input.SubImages, err = s.uploads.files(form, "subImages", 5); err != nil {
		writeError(w, r, err)
		return
	}

	product, err := s.Products.Create(r.Context(), currentUser(r).ID, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusCreated, payload{"product": product})
}

func (s *server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	input := service.UpdateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Discount:    req.Discount,
		Quantity:    req.Quantity,
		Stock:       req.Stock,
	}
	if req.Price != nil {
		cents, err := toCents(*req.Price)
		if err != nil {
			writeError(w, r, err)
			return
		}
		input.ListPriceCents = &cents
	}
	if input.BrandID, err = optionalID(req.Brand); err != nil {
		writeError(w, r, err)
		return
	}
	if input.CategoryID, err = optionalID(req.Category); err != nil {
		writeError(w, r, err)
		return
	}

	product, err := s.Products.Update(r.Context(), currentUser(r).ID, id, input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusOK, payload{"product": product})
}

func (s *server) updateProductImages(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	form, err := s.uploads.parseForm(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	main, err := s.uploads.file(form, "mainImage")
	if err != nil {
		writeError(w, r, err)
		return
	}
	subs, err := s.uploads.files(form, "subImages", 5)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if main == nil && len(subs) == 0 {
		writeError(w, r, badRequest("mainImage or subImages is required"))
		return
	}

	product, err := s.Products.UpdateImages(r.Context(), currentUser(r).ID, id, main, subs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusOK, payload{"product": product})
}

func (s *server) toggleWishlist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	added, err := s.Products.ToggleWishlist(r.Context(), currentUser(r).ID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	done(w, http.StatusOK, payload{"inWishlist": added})
}

// toCents converts a currency amount with at most two decimals to cents.
func toCents(amount decimal.Decimal) (int64, error) {
	if amount.IsNegative() {
		return 0, badRequest("price must not be negative")
	}
	cents := amount.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, badRequest("price has more than two decimals")
	}
	return cents.IntPart(), nil
}
