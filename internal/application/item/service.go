package item

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rewear-api/internal/application/notification"
	"github.com/rewear-api/internal/domain"
	"github.com/rewear-api/internal/pkg/id"
	"github.com/rewear-api/internal/pkg/validate"
)

// MaxImages is the upper bound on images per item.
const MaxImages = 5

// ImageUpload is one image file submitted with a create or update request.
type ImageUpload struct {
	Reader      io.Reader
	Filename    string
	ContentType string
}

type Service interface {
	Create(ctx context.Context, ownerID string, req domain.CreateItemRequest, images []ImageUpload) (*domain.Item, error)
	List(ctx context.Context, filter domain.ItemFilter, limit int, cursor string) ([]domain.Item, string, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Item, error)
	Get(ctx context.Context, itemID string) (*domain.Item, error)
	Update(ctx context.Context, itemID, actorID string, req domain.UpdateItemRequest, newImages []ImageUpload) (*domain.Item, error)
	Delete(ctx context.Context, itemID, actorID string) error
}

type itemStore interface {
	Put(ctx context.Context, i *domain.Item) error
	Get(ctx context.Context, itemID string) (*domain.Item, error)
	Update(ctx context.Context, itemID string, updates map[string]interface{}) error
	Delete(ctx context.Context, itemID string) error
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Item, error)
	CountByOwner(ctx context.Context, ownerID string) (int, error)
	ScanPage(ctx context.Context, filter domain.ItemFilter, limit int32, cursor string) ([]domain.Item, string, error)
}

type bonusStore interface {
	ClaimFirstListingBonus(ctx context.Context, userID string) error
}

type ledger interface {
	Grant(ctx context.Context, userID string, amount int, reason string) error
}

type imageStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

type notifier interface {
	Emit(ctx context.Context, e notification.Event)
}

type service struct {
	repo     itemStore
	users    bonusStore
	points   ledger
	images   imageStore
	notifier notifier
}

func NewService(repo itemStore, users bonusStore, points ledger, images imageStore, notifier notifier) Service {
	return &service{repo: repo, users: users, points: points, images: images, notifier: notifier}
}

// Create lists a new item. A user's first-ever listing earns the one-shot
// listing bonus; the flag flip on the user record is a conditional write, so
// two concurrent first listings can't both claim it.
func (s *service) Create(ctx context.Context, ownerID string, req domain.CreateItemRequest, images []ImageUpload) (*domain.Item, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("at least one image is required to create an item: %w", domain.ErrBadRequest)
	}
	if len(images) > MaxImages {
		return nil, fmt.Errorf("you can upload a maximum of %d images: %w", MaxImages, domain.ErrBadRequest)
	}

	price := req.Price
	if req.ListingType == domain.ListingTypeSwap || req.ListingType == domain.ListingTypeGiveaway {
		price = 0
	}

	priorItems, err := s.repo.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	itemID := id.New()
	urls := make([]string, 0, len(images))
	for n, img := range images {
		key := fmt.Sprintf("items/%s/%s/%d-%s", ownerID, itemID, n, img.Filename)
		url, err := s.images.Upload(ctx, key, img.Reader, img.ContentType)
		if err != nil {
			return nil, fmt.Errorf("upload image %s: %w", img.Filename, err)
		}
		urls = append(urls, url)
	}

	now := time.Now().UTC()
	item := &domain.Item{
		ItemID:      itemID,
		OwnerID:     ownerID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Gender:      req.Gender,
		Size:        req.Size,
		Condition:   req.Condition,
		Tags:        req.Tags,
		Color:       req.Color,
		Brand:       req.Brand,
		Price:       price,
		Images:      urls,
		ListingType: req.ListingType,
		Status:      domain.ItemStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Put(ctx, item); err != nil {
		return nil, err
	}

	if priorItems == 0 {
		s.grantFirstListingBonus(ctx, ownerID, itemID)
	}
	return item, nil
}

// grantFirstListingBonus claims the one-shot flag and pays out. The count
// check done by the caller is only a hint; the conditional flag write is the
// guard that makes the bonus fire at most once per user.
func (s *service) grantFirstListingBonus(ctx context.Context, ownerID, itemID string) {
	if err := s.users.ClaimFirstListingBonus(ctx, ownerID); err != nil {
		slog.Debug("first-listing bonus not claimed", "user", ownerID, "err", err)
		return
	}
	if err := s.points.Grant(ctx, ownerID, domain.FirstListingBonus, domain.PointsReasonListing); err != nil {
		slog.Warn("first-listing bonus grant failed", "user", ownerID, "err", err)
		return
	}
	s.notifier.Emit(ctx, notification.Event{
		ReceiverID: ownerID,
		Type:       domain.NotifItemListed,
		ResourceID: itemID,
		Message:    fmt.Sprintf("You earned %d points for listing your first item", domain.FirstListingBonus),
	})
}

func (s *service) List(ctx context.Context, filter domain.ItemFilter, limit int, cursor string) ([]domain.Item, string, error) {
	if limit < 1 {
		limit = 10
	}
	return s.repo.ScanPage(ctx, filter, int32(limit), cursor)
}

func (s *service) ListByOwner(ctx context.Context, ownerID string) ([]domain.Item, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *service) Get(ctx context.Context, itemID string) (*domain.Item, error) {
	return s.repo.Get(ctx, itemID)
}

// Update edits an owner's listing. Images named in KeepImages stay; the rest
// of the existing images are removed from storage; newImages are appended.
func (s *service) Update(ctx context.Context, itemID, actorID string, req domain.UpdateItemRequest, newImages []ImageUpload) (*domain.Item, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	existing, err := s.repo.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if existing.OwnerID != actorID {
		return nil, fmt.Errorf("user does not have permission to update this item: %w", domain.ErrForbidden)
	}

	keep := make(map[string]bool, len(req.KeepImages))
	for _, url := range req.KeepImages {
		keep[url] = true
	}
	finalImages := append([]string{}, req.KeepImages...)
	for n, img := range newImages {
		key := fmt.Sprintf("items/%s/%s/%d-%d-%s", actorID, itemID, time.Now().Unix(), n, img.Filename)
		url, err := s.images.Upload(ctx, key, img.Reader, img.ContentType)
		if err != nil {
			return nil, fmt.Errorf("upload image %s: %w", img.Filename, err)
		}
		finalImages = append(finalImages, url)
	}
	if len(finalImages) > MaxImages {
		return nil, fmt.Errorf("max %d images are allowed per item: %w", MaxImages, domain.ErrBadRequest)
	}

	updates := map[string]interface{}{"images": finalImages}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Condition != nil {
		updates["condition"] = *req.Condition
	}
	if req.Size != nil {
		updates["size"] = *req.Size
	}
	if req.Price != nil && existing.ListingType == domain.ListingTypeRedeem {
		updates["price"] = *req.Price
	}
	if err := s.repo.Update(ctx, itemID, updates); err != nil {
		return nil, err
	}

	for _, url := range existing.Images {
		if !keep[url] {
			if err := s.images.Delete(ctx, url); err != nil {
				slog.Warn("image delete failed", "item", itemID, "url", url, "err", err)
			}
		}
	}
	return s.repo.Get(ctx, itemID)
}

// Delete removes an active listing and its images. Items caught up in an open
// exchange fail the store's conditional delete.
func (s *service) Delete(ctx context.Context, itemID, actorID string) error {
	existing, err := s.repo.Get(ctx, itemID)
	if err != nil {
		return err
	}
	if existing.OwnerID != actorID {
		return fmt.Errorf("user is not permitted to delete this item: %w", domain.ErrForbidden)
	}
	if err := s.repo.Delete(ctx, itemID); err != nil {
		return err
	}
	for _, url := range existing.Images {
		if err := s.images.Delete(ctx, url); err != nil {
			slog.Warn("image delete failed", "item", itemID, "url", url, "err", err)
		}
	}
	return nil
}
