package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ecommerce/pkg/domain/model"
)

type CreateProductInput struct {
	Name           string
	Description    string
	ListPriceCents int64
	Discount       int
	Quantity       int
	Stock          int
	BrandID        model.ObjectID
	CategoryID     model.ObjectID
	MainImage      model.File
	SubImages      []model.File
}

type UpdateProductInput struct {
	Name           *string
	Description    *string
	ListPriceCents *int64
	Discount       *int
	Quantity       *int
	Stock          *int
	BrandID        *model.ObjectID
	CategoryID     *model.ObjectID
}

func (in UpdateProductInput) empty() bool {
	return in.Name == nil && in.Description == nil && in.ListPriceCents == nil && in.Discount == nil &&
		in.Quantity == nil && in.Stock == nil && in.BrandID == nil && in.CategoryID == nil
}

type ProductService interface {
	Create(ctx context.Context, actor model.ObjectID, input CreateProductInput) (*model.Product, error)
	Update(ctx context.Context, actor, id model.ObjectID, input UpdateProductInput) (*model.Product, error)
	// UpdateImages replaces the main image when main is set and the sub images when subs is non-empty.
	UpdateImages(ctx context.Context, actor, id model.ObjectID, main *model.File, subs []model.File) (*model.Product, error)
	Freeze(ctx context.Context, actor, id model.ObjectID) error
	Restore(ctx context.Context, actor, id model.ObjectID) error
	Delete(ctx context.Context, actor, id model.ObjectID) error
	Get(ctx context.Context, id model.ObjectID) (*model.Product, error)
	List(ctx context.Context, search string, page model.Page) (*model.Paginated[model.Product], error)
	ToggleWishlist(ctx context.Context, userID, productID model.ObjectID) (bool, error)
}

func NewProductService(
	repo model.ProductRepository,
	brands model.BrandRepository,
	categories model.CategoryRepository,
	users model.UserRepository,
	storage model.FileStorage,
) ProductService {
	return &productService{repo: repo, brands: brands, categories: categories, users: users, storage: storage}
}

type productService struct {
	repo       model.ProductRepository
	brands     model.BrandRepository
	categories model.CategoryRepository
	users      model.UserRepository
	storage    model.FileStorage
}

func (s *productService) Create(ctx context.Context, actor model.ObjectID, input CreateProductInput) (*model.Product, error) {
	if input.Stock > input.Quantity {
		return nil, model.ErrStockOverQuantity
	}
	if _, err := s.brands.Find(ctx, input.BrandID, false); err != nil {
		return nil, err
	}
	category, err := s.categories.Find(ctx, input.CategoryID, false)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product := &model.Product{
		ID:             s.repo.NextID(),
		Name:           input.Name,
		Slug:           model.Slugify(input.Name),
		Description:    input.Description,
		AssetFolderID:  uuid.NewString(),
		ListPriceCents: input.ListPriceCents,
		Discount:       input.Discount,
		Quantity:       input.Quantity,
		Stock:          input.Stock,
		BrandID:        input.BrandID,
		CategoryID:     input.CategoryID,
		SubImages:      []string{},
		Audit:          model.Audit{CreatedBy: actor, CreatedAt: now, UpdatedAt: now},
	}
	product.Reprice()

	folder := model.ProductAssetFolder(category, product.AssetFolderID)
	main, subs, err := s.uploadImages(ctx, folder, &input.MainImage, input.SubImages)
	if err != nil {
		return nil, err
	}
	product.MainImage = main
	if len(subs) > 0 {
		product.SubImages = subs
	}

	if err := s.repo.Create(ctx, product); err != nil {
		discardFiles(ctx, s.storage, product.Images()...)
		return nil, err
	}
	return product, nil
}

func (s *productService) Update(ctx context.Context, actor, id model.ObjectID, input UpdateProductInput) (*model.Product, error) {
	if input.empty() {
		return nil, model.ErrNothingToDo
	}

	product, err := s.repo.Find(ctx, id, false)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		product.Name = *input.Name
		product.Slug = model.Slugify(*input.Name)
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.BrandID != nil {
		if _, err := s.brands.Find(ctx, *input.BrandID, false); err != nil {
			return nil, err
		}
		product.BrandID = *input.BrandID
	}
	if input.CategoryID != nil {
		if _, err := s.categories.Find(ctx, *input.CategoryID, false); err != nil {
			return nil, err
		}
		product.CategoryID = *input.CategoryID
	}
	if input.ListPriceCents != nil {
		product.ListPriceCents = *input.ListPriceCents
	}
	if input.Discount != nil {
		product.Discount = *input.Discount
	}
	if input.Quantity != nil {
		product.Quantity = *input.Quantity
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if product.Stock > product.Quantity {
		return nil, model.ErrStockOverQuantity
	}

	product.Reprice()
	product.Touch(actor, time.Now().UTC())
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *productService) UpdateImages(ctx context.Context, actor, id model.ObjectID, main *model.File, subs []model.File) (*model.Product, error) {
	if main == nil && len(subs) == 0 {
		return nil, model.ErrNothingToDo
	}

	product, err := s.repo.Find(ctx, id, false)
	if err != nil {
		return nil, err
	}
	category, err := s.categories.Find(ctx, product.CategoryID, true)
	if err != nil {
		return nil, err
	}
	folder := model.ProductAssetFolder(category, product.AssetFolderID)

	mainKey, subKeys, err := s.uploadImages(ctx, folder, main, subs)
	if err != nil {
		return nil, err
	}
	var uploaded, replaced []string
	if main != nil {
		uploaded = append(uploaded, mainKey)
		replaced = append(replaced, product.MainImage)
		product.MainImage = mainKey
	}
	if len(subs) > 0 {
		uploaded = append(uploaded, subKeys...)
		replaced = append(replaced, product.SubImages...)
		product.SubImages = subKeys
	}

	product.Touch(actor, time.Now().UTC())
	if err := s.repo.Update(ctx, product); err != nil {
		discardFiles(ctx, s.storage, uploaded...)
		return nil, err
	}

	discardFiles(ctx, s.storage, replaced...)
	return product, nil
}

// uploadImages stores the main image and the sub images concurrently. When either
// side fails, whatever the other side stored is removed.
func (s *productService) uploadImages(ctx context.Context, folder string, main *model.File, subs []model.File) (string, []string, error) {
	var mainKeys, subKeys []string
	g, gctx := errgroup.WithContext(ctx)
	if main != nil {
		g.Go(func() error {
			keys, err := s.storage.UploadMany(gctx, folder+"/mainImage", []model.File{*main})
			mainKeys = keys
			return err
		})
	}
	if len(subs) > 0 {
		g.Go(func() error {
			keys, err := s.storage.UploadMany(gctx, folder+"/subImages", subs)
			subKeys = keys
			return err
		})
	}
	if err := g.Wait(); err != nil {
		discardFiles(ctx, s.storage, append(mainKeys, subKeys...)...)
		return "", nil, err
	}

	var mainKey string
	if len(mainKeys) > 0 {
		mainKey = mainKeys[0]
	}
	return mainKey, subKeys, nil
}

func (s *productService) Freeze(ctx context.Context, actor, id model.ObjectID) error {
	product, err := s.repo.Find(ctx, id, false)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if err := product.Freeze(now); err != nil {
		return err
	}
	product.Touch(actor, now)
	return s.repo.Update(ctx, product)
}

func (s *productService) Restore(ctx context.Context, actor, id model.ObjectID) error {
	product, err := s.repo.Find(ctx, id, true)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if err := product.Restore(now); err != nil {
		return err
	}
	product.Touch(actor, now)
	return s.repo.Update(ctx, product)
}

func (s *productService) Delete(ctx context.Context, actor, id model.ObjectID) error {
	product, err := s.repo.Find(ctx, id, true)
	if err != nil {
		return err
	}
	if !product.Frozen() {
		return model.ErrProductNotFound
	}
	if err := s.repo.Delete(ctx, product.ID); err != nil {
		return err
	}

	discardFiles(ctx, s.storage, product.Images()...)
	return nil
}

func (s *productService) Get(ctx context.Context, id model.ObjectID) (*model.Product, error) {
	return s.repo.Find(ctx, id, false)
}

func (s *productService) List(ctx context.Context, search string, page model.Page) (*model.Paginated[model.Product], error) {
	return s.repo.List(ctx, search, page)
}

func (s *productService) ToggleWishlist(ctx context.Context, userID, productID model.ObjectID) (bool, error) {
	if _, err := s.repo.Find(ctx, productID, false); err != nil {
		return false, err
	}
	user, err := s.users.Find(ctx, userID)
	if err != nil {
		return false, err
	}

	added := user.ToggleWishlist(productID)
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return false, err
	}
	return added, nil
}
