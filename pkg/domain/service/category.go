package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"ecommerce/pkg/domain/model"
)

type CreateCategoryInput struct {
	Name     string
	Brands   []model.ObjectID
	ParentID *model.ObjectID
	Image    model.File
}

type UpdateCategoryInput struct {
	Name   *string
	Brands []model.ObjectID
}

type CategoryService interface {
	Create(ctx context.Context, actor model.ObjectID, input CreateCategoryInput) (*model.Category, error)
	Update(ctx context.Context, actor, id model.ObjectID, input UpdateCategoryInput) (*model.Category, error)
	UpdateImage(ctx context.Context, actor, id model.ObjectID, image model.File) (*model.Category, error)
	// Freeze stamps the category and its whole subtree with one timestamp.
	Freeze(ctx context.Context, actor, id model.ObjectID) error
	Restore(ctx context.Context, actor, id model.ObjectID) error
	Delete(ctx context.Context, actor, id model.ObjectID) error
	List(ctx context.Context, search string, page model.Page) (*model.Paginated[model.Category], error)
}

func NewCategoryService(repo model.CategoryRepository, brands model.BrandRepository, storage model.FileStorage) CategoryService {
	return &categoryService{repo: repo, brands: brands, storage: storage}
}

type categoryService struct {
	repo    model.CategoryRepository
	brands  model.BrandRepository
	storage model.FileStorage
}

func (s *categoryService) Create(ctx context.Context, actor model.ObjectID, input CreateCategoryInput) (*model.Category, error) {
	if err := s.ensureNameFree(ctx, input.Name); err != nil {
		return nil, err
	}
	if err := s.ensureBrands(ctx, input.Brands); err != nil {
		return nil, err
	}
	if input.ParentID != nil {
		if _, err := s.repo.Find(ctx, *input.ParentID, false); err != nil {
			if errors.Is(err, model.ErrCategoryNotFound) {
				return nil, model.ErrParentCategoryNotFound
			}
			return nil, err
		}
	}

	now := time.Now().UTC()
	category := &model.Category{
		ID:            s.repo.NextID(),
		Name:          input.Name,
		Slug:          model.Slugify(input.Name),
		AssetFolderID: uuid.NewString(),
		Brands:        uniqueIDs(input.Brands),
		ParentID:      input.ParentID,
		Audit:         model.Audit{CreatedBy: actor, CreatedAt: now, UpdatedAt: now},
	}

	key, err := s.storage.Upload(ctx, category.AssetFolder(), input.Image)
	if err != nil {
		return nil, err
	}
	category.Image = key

	if err := s.repo.Create(ctx, category); err != nil {
		discardFiles(ctx, s.storage, key)
		return nil, err
	}
	return category, nil
}

func (s *categoryService) Update(ctx context.Context, actor, id model.ObjectID, input UpdateCategoryInput) (*model.Category, error) {
	if input.Name == nil && input.Brands == nil {
		return nil, model.ErrNothingToDo
	}

	category, err := s.findOwned(ctx, actor, id, false)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if *input.Name == category.Name {
			return nil, model.ErrCategoryExists
		}
		if err := s.ensureNameFree(ctx, *input.Name); err != nil {
			return nil, err
		}
		category.Name = *input.Name
		category.Slug = model.Slugify(*input.Name)
	}
	if input.Brands != nil {
		if err := s.ensureBrands(ctx, input.Brands); err != nil {
			return nil, err
		}
		category.Brands = uniqueIDs(input.Brands)
	}

	category.Touch(actor, time.Now().UTC())
	if err := s.repo.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *categoryService) UpdateImage(ctx context.Context, actor, id model.ObjectID, image model.File) (*model.Category, error) {
	category, err := s.findOwned(ctx, actor, id, false)
	if err != nil {
		return nil, err
	}

	key, err := s.storage.Upload(ctx, category.AssetFolder(), image)
	if err != nil {
		return nil, err
	}

	old := category.Image
	category.Image = key
	category.Touch(actor, time.Now().UTC())
	if err := s.repo.Update(ctx, category); err != nil {
		discardFiles(ctx, s.storage, key)
		return nil, err
	}

	discardFiles(ctx, s.storage, old)
	return category, nil
}

func (s *categoryService) Freeze(ctx context.Context, actor, id model.ObjectID) error {
	category, err := s.findOwned(ctx, actor, id, false)
	if err != nil {
		return err
	}

	// The cascade covers every descendant, whoever created it.
	tree, err := s.subtree(ctx, category)
	if err != nil {
		return err
	}
	return s.repo.FreezeMany(ctx, categoryIDs(tree), time.Now().UTC(), actor)
}

func (s *categoryService) Restore(ctx context.Context, actor, id model.ObjectID) error {
	category, err := s.findOwned(ctx, actor, id, true)
	if err != nil {
		return err
	}
	if !category.Frozen() {
		return model.ErrNotFrozen
	}

	tree, err := s.subtree(ctx, category)
	if err != nil {
		return err
	}
	return s.repo.RestoreMany(ctx, categoryIDs(tree), time.Now().UTC(), actor)
}

func (s *categoryService) Delete(ctx context.Context, actor, id model.ObjectID) error {
	category, err := s.findOwned(ctx, actor, id, true)
	if err != nil {
		return err
	}

	tree, err := s.subtree(ctx, category)
	if err != nil {
		return err
	}
	for _, c := range tree {
		if !c.Frozen() {
			return model.ErrCategoryTreeNotFrozen
		}
	}

	if err := s.repo.DeleteMany(ctx, categoryIDs(tree)); err != nil {
		return err
	}

	s.purgeAssets(ctx, tree)
	return nil
}

func (s *categoryService) List(ctx context.Context, search string, page model.Page) (*model.Paginated[model.Category], error) {
	return s.repo.List(ctx, search, page)
}

// subtree returns category followed by all of its descendants.
func (s *categoryService) subtree(ctx context.Context, category *model.Category) ([]model.Category, error) {
	descendants, err := s.repo.Descendants(ctx, category.ID)
	if err != nil {
		return nil, err
	}
	return append([]model.Category{*category}, descendants...), nil
}

func (s *categoryService) purgeAssets(ctx context.Context, tree []model.Category) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, c := range tree {
		c := c
		g.Go(func() error {
			if c.Image != "" {
				if err := s.storage.Delete(gctx, c.Image); err != nil {
					return err
				}
			}
			return s.storage.DeletePrefix(gctx, c.AssetFolder())
		})
	}
	if err := g.Wait(); err != nil {
		log.WithError(err).WithField("category", tree[0].ID.Hex()).Warn("failed to purge category assets")
	}
}

func (s *categoryService) ensureNameFree(ctx context.Context, name string) error {
	_, err := s.repo.FindByName(ctx, name)
	if err == nil {
		return model.ErrCategoryExists
	}
	if errors.Is(err, model.ErrCategoryNotFound) {
		return nil
	}
	return err
}

func (s *categoryService) ensureBrands(ctx context.Context, ids []model.ObjectID) error {
	unique := uniqueIDs(ids)
	if len(unique) == 0 {
		return nil
	}
	count, err := s.brands.CountExisting(ctx, unique)
	if err != nil {
		return err
	}
	if count != len(unique) {
		return model.ErrSomeBrandsNotFound
	}
	return nil
}

func (s *categoryService) findOwned(ctx context.Context, actor, id model.ObjectID, includeDeleted bool) (*model.Category, error) {
	category, err := s.repo.Find(ctx, id, includeDeleted)
	if err != nil {
		return nil, err
	}
	if category.CreatedBy != actor {
		return nil, model.ErrCategoryNotFound
	}
	return category, nil
}

func categoryIDs(categories []model.Category) []model.ObjectID {
	ids := make([]model.ObjectID, len(categories))
	for i, c := range categories {
		ids[i] = c.ID
	}
	return ids
}

func uniqueIDs(ids []model.ObjectID) []model.ObjectID {
	seen := make(map[model.ObjectID]struct{}, len(ids))
	out := make([]model.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
