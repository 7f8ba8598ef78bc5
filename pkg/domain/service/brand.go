package service

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"ecommerce/pkg/domain/model"
)

const brandsCacheKey = "brands"

type CreateBrandInput struct {
	Name   string
	Slogan string
	Image  model.File
}

type UpdateBrandInput struct {
	Name   *string
	Slogan *string
}

type BrandService interface {
	Create(ctx context.Context, actor model.ObjectID, input CreateBrandInput) (*model.Brand, error)
	Update(ctx context.Context, actor, id model.ObjectID, input UpdateBrandInput) (*model.Brand, error)
	UpdateImage(ctx context.Context, actor, id model.ObjectID, image model.File) (*model.Brand, error)
	Freeze(ctx context.Context, actor, id model.ObjectID) error
	Restore(ctx context.Context, actor, id model.ObjectID) error
	Delete(ctx context.Context, actor, id model.ObjectID) error
	List(ctx context.Context, search string, page model.Page) (*model.Paginated[model.Brand], error)
	ListAll(ctx context.Context) ([]model.Brand, error)
}

func NewBrandService(repo model.BrandRepository, storage model.FileStorage, cache model.Cache) BrandService {
	return &brandService{repo: repo, storage: storage, cache: cache}
}

type brandService struct {
	repo    model.BrandRepository
	storage model.FileStorage
	cache   model.Cache
}

func (s *brandService) Create(ctx context.Context, actor model.ObjectID, input CreateBrandInput) (*model.Brand, error) {
	if err := s.ensureNameFree(ctx, input.Name); err != nil {
		return nil, err
	}

	key, err := s.storage.Upload(ctx, "brands", input.Image)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	brand := &model.Brand{
		ID:     s.repo.NextID(),
		Name:   input.Name,
		Slogan: input.Slogan,
		Image:  key,
		Audit:  model.Audit{CreatedBy: actor, CreatedAt: now, UpdatedAt: now},
	}
	if err := s.repo.Create(ctx, brand); err != nil {
		discardFiles(ctx, s.storage, key)
		return nil, err
	}

	s.invalidate(ctx)
	return brand, nil
}

func (s *brandService) Update(ctx context.Context, actor, id model.ObjectID, input UpdateBrandInput) (*model.Brand, error) {
	if input.Name == nil && input.Slogan == nil {
		return nil, model.ErrNothingToDo
	}

	brand, err := s.findOwned(ctx, actor, id, false)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if *input.Name == brand.Name {
			return nil, model.ErrBrandExists
		}
		if err := s.ensureNameFree(ctx, *input.Name); err != nil {
			return nil, err
		}
		brand.Name = *input.Name
	}
	if input.Slogan != nil {
		brand.Slogan = *input.Slogan
	}

	brand.Touch(actor, time.Now().UTC())
	if err := s.repo.Update(ctx, brand); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return brand, nil
}

func (s *brandService) UpdateImage(ctx context.Context, actor, id model.ObjectID, image model.File) (*model.Brand, error) {
	brand, err := s.findOwned(ctx, actor, id, false)
	if err != nil {
		return nil, err
	}

	key, err := s.storage.Upload(ctx, "brands", image)
	if err != nil {
		return nil, err
	}

	old := brand.Image
	brand.Image = key
	brand.Touch(actor, time.Now().UTC())
	if err := s.repo.Update(ctx, brand); err != nil {
		discardFiles(ctx, s.storage, key)
		return nil, err
	}

	discardFiles(ctx, s.storage, old)
	s.invalidate(ctx)
	return brand, nil
}

func (s *brandService) Freeze(ctx context.Context, actor, id model.ObjectID) error {
	brand, err := s.findOwned(ctx, actor, id, false)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := brand.Freeze(now); err != nil {
		return err
	}
	brand.Touch(actor, now)
	if err := s.repo.Update(ctx, brand); err != nil {
		return err
	}

	s.invalidate(ctx)
	return nil
}

func (s *brandService) Restore(ctx context.Context, actor, id model.ObjectID) error {
	brand, err := s.findOwned(ctx, actor, id, true)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if err := brand.Restore(now); err != nil {
		return err
	}
	brand.Touch(actor, now)
	if err := s.repo.Update(ctx, brand); err != nil {
		return err
	}

	s.invalidate(ctx)
	return nil
}

func (s *brandService) Delete(ctx context.Context, actor, id model.ObjectID) error {
	brand, err := s.findOwned(ctx, actor, id, true)
	if err != nil {
		return err
	}
	if !brand.Frozen() {
		return model.ErrBrandNotFound
	}

	if err := s.repo.Delete(ctx, brand.ID); err != nil {
		return err
	}

	discardFiles(ctx, s.storage, brand.Image)
	s.invalidate(ctx)
	return nil
}

func (s *brandService) List(ctx context.Context, search string, page model.Page) (*model.Paginated[model.Brand], error) {
	return s.repo.List(ctx, search, page)
}

func (s *brandService) ListAll(ctx context.Context) ([]model.Brand, error) {
	var brands []model.Brand
	hit, err := s.cache.Get(ctx, brandsCacheKey, &brands)
	if err != nil {
		log.WithError(err).Warn("brand cache read failed")
	}
	if hit {
		return brands, nil
	}

	brands, err = s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, brandsCacheKey, brands); err != nil {
		log.WithError(err).Warn("brand cache write failed")
	}
	return brands, nil
}

func (s *brandService) ensureNameFree(ctx context.Context, name string) error {
	_, err := s.repo.FindByName(ctx, name)
	if err == nil {
		return model.ErrBrandExists
	}
	if errors.Is(err, model.ErrBrandNotFound) {
		return nil
	}
	return err
}

func (s *brandService) findOwned(ctx context.Context, actor, id model.ObjectID, includeDeleted bool) (*model.Brand, error) {
	brand, err := s.repo.Find(ctx, id, includeDeleted)
	if err != nil {
		return nil, err
	}
	if brand.CreatedBy != actor {
		return nil, model.ErrBrandNotFound
	}
	return brand, nil
}

func (s *brandService) invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, brandsCacheKey); err != nil {
		log.WithError(err).Warn("brand cache invalidation failed")
	}
}

// discardFiles removes stored objects that are no longer referenced.
// Failures only leave orphans behind and are logged.
func discardFiles(ctx context.Context, storage model.FileStorage, keys ...string) {
	var live []string
	for _, key := range keys {
		if key != "" {
			live = append(live, key)
		}
	}
	if len(live) == 0 {
		return
	}
	if err := storage.DeleteMany(ctx, live); err != nil {
		log.WithError(err).WithField("keys", live).Warn("failed to delete stored files")
	}
}
