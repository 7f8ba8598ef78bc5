package model

import (
	"context"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrBrandNotFound      = newError(ErrNotFound, "brand doesn't exist or you're not the owner of this brand")
	ErrBrandExists        = newError(ErrConflict, "brand already exists")
	ErrSomeBrandsNotFound = newError(ErrNotFound, "some of the brands don't exist")

	ErrCategoryNotFound       = newError(ErrNotFound, "category doesn't exist or you're not the owner of this category")
	ErrParentCategoryNotFound = newError(ErrNotFound, "parent category not found")
	ErrCategoryExists         = newError(ErrConflict, "category already exists")
	ErrCategoryTreeNotFrozen  = newError(ErrBadRequest, "all categories must be frozen before delete")

	ErrProductNotFound   = newError(ErrNotFound, "product doesn't exist")
	ErrInsufficientStock = newError(ErrBadRequest, "product not found or out of stock")
	ErrStockOverQuantity = newError(ErrBadRequest, "stock must be less than or equal to quantity")
)

type Brand struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	Name       string             `bson:"name" json:"name"`
	Slogan     string             `bson:"slogan" json:"slogan"`
	Image      string             `bson:"image" json:"image"`
	Audit      `bson:",inline"`
	SoftDelete `bson:",inline"`
}

type BrandRepository interface {
	NextID() primitive.ObjectID
	Create(ctx context.Context, brand *Brand) error
	Update(ctx context.Context, brand *Brand) error
	Find(ctx context.Context, id primitive.ObjectID, includeDeleted bool) (*Brand, error)
	FindByName(ctx context.Context, name string) (*Brand, error)
	// CountExisting counts how many of ids name a visible brand.
	CountExisting(ctx context.Context, ids []primitive.ObjectID) (int, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, search string, page Page) (*Paginated[Brand], error)
	All(ctx context.Context) ([]Brand, error)
}

type Category struct {
	ID            primitive.ObjectID   `bson:"_id" json:"id"`
	Name          string               `bson:"name" json:"name"`
	Slug          string               `bson:"slug" json:"slug"`
	Image         string               `bson:"image" json:"image"`
	AssetFolderID string               `bson:"assetFolderId" json:"assetFolderId"`
	Brands        []primitive.ObjectID `bson:"brands" json:"brands"`
	ParentID      *primitive.ObjectID  `bson:"parentId,omitempty" json:"parentId,omitempty"`
	Audit         `bson:",inline"`
	SoftDelete    `bson:",inline"`
}

func (c *Category) IsSub() bool { return c.ParentID != nil }

func (c *Category) AssetFolder() string { return "categories/" + c.AssetFolderID }

type CategoryRepository interface {
	NextID() primitive.ObjectID
	Create(ctx context.Context, category *Category) error
	Update(ctx context.Context, category *Category) error
	Find(ctx context.Context, id primitive.ObjectID, includeDeleted bool) (*Category, error)
	FindByName(ctx context.Context, name string) (*Category, error)
	// Descendants walks the parentId tree below id, ignoring soft delete.
	// The category itself is not included.
	Descendants(ctx context.Context, id primitive.ObjectID) ([]Category, error)
	FreezeMany(ctx context.Context, ids []primitive.ObjectID, at time.Time, by primitive.ObjectID) error
	RestoreMany(ctx context.Context, ids []primitive.ObjectID, at time.Time, by primitive.ObjectID) error
	DeleteMany(ctx context.Context, ids []primitive.ObjectID) error
	List(ctx context.Context, search string, page Page) (*Paginated[Category], error)
}

type Product struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Slug           string             `bson:"slug" json:"slug"`
	Description    string             `bson:"description" json:"description"`
	MainImage      string             `bson:"mainImage" json:"mainImage"`
	SubImages      []string           `bson:"subImages" json:"subImages"`
	AssetFolderID  string             `bson:"assetFolderId" json:"assetFolderId"`
	ListPriceCents int64              `bson:"listPrice" json:"listPrice"`
	PriceCents     int64              `bson:"price" json:"price"`
	Discount       int                `bson:"discount" json:"discount"`
	Quantity       int                `bson:"quantity" json:"quantity"`
	Stock          int                `bson:"stock" json:"stock"`
	BrandID        primitive.ObjectID `bson:"brand" json:"brand"`
	CategoryID     primitive.ObjectID `bson:"category" json:"category"`
	Audit          `bson:",inline"`
	SoftDelete     `bson:",inline"`
}

// Reprice derives the selling price from the list price and discount.
func (p *Product) Reprice() {
	p.PriceCents = ApplyPercentOff(p.ListPriceCents, p.Discount)
}

func (p *Product) Images() []string {
	images := make([]string, 0, len(p.SubImages)+1)
	if p.MainImage != "" {
		images = append(images, p.MainImage)
	}
	return append(images, p.SubImages...)
}

func ProductAssetFolder(category *Category, productFolder string) string {
	return category.AssetFolder() + "/products/" + productFolder
}

type ProductRepository interface {
	NextID() primitive.ObjectID
	Create(ctx context.Context, product *Product) error
	Update(ctx context.Context, product *Product) error
	Find(ctx context.Context, id primitive.ObjectID, includeDeleted bool) (*Product, error)
	// DecrementStock atomically lowers stock by quantity when at least quantity
	// is available and returns the updated product.
	DecrementStock(ctx context.Context, id primitive.ObjectID, quantity int) (*Product, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, search string, page Page) (*Paginated[Product], error)
}

type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

type FileStorage interface {
	Upload(ctx context.Context, path string, file File) (string, error)
	UploadMany(ctx context.Context, path string, files []File) ([]string, error)
	Delete(ctx context.Context, key string) error
	DeleteMany(ctx context.Context, keys []string) error
	// DeletePrefix removes every object stored under the asset folder path.
	DeletePrefix(ctx context.Context, path string) error
}

type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}
