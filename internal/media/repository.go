// File: internal/media/repository.go
package media

import (
	"context"
	"fmt"

	"carmarket_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository is the media ledger: ordered image and video rows per car detail.
type Repository interface {
	ListImages(ctx context.Context, carDetailID uuid.UUID) ([]CarImage, error)
	ListVideos(ctx context.Context, carDetailID uuid.UUID) ([]CarVideo, error)
	CreateImages(ctx context.Context, carDetailID uuid.UUID, inputs []ImageInput) ([]CarImage, error)
	CreateVideos(ctx context.Context, carDetailID uuid.UUID, inputs []VideoInput) ([]CarVideo, error)
	// ApplyImageOrder rewrites sortOrder and isPrimary for each proposed filename. It is idempotent.
	ApplyImageOrder(ctx context.Context, carDetailID uuid.UUID, proposed []ImageInput) error
	ApplyVideoOrder(ctx context.Context, carDetailID uuid.UUID, proposed []VideoInput) error
	// ReplaceImages deletes every image of the car detail and recreates the proposed list.
	ReplaceImages(ctx context.Context, carDetailID uuid.UUID, proposed []ImageInput) ([]CarImage, error)
	ReplaceVideos(ctx context.Context, carDetailID uuid.UUID, proposed []VideoInput) ([]CarVideo, error)
	// BumpRevision increments the car detail's revision counter for kind.
	BumpRevision(ctx context.Context, carDetailID uuid.UUID, kind Kind) error
	// WithTx returns a repository bound to an open transaction.
	WithTx(tx *gorm.DB) Repository
}

// Kind selects the image or video collection of a car detail.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// RevisionColumn is the car_details column counting writes to the collection.
func (k Kind) RevisionColumn() string {
	if k == KindVideo {
		return "video_revision"
	}
	return "image_revision"
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM media repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	return &gormRepository{db: tx}
}

func (r *gormRepository) ListImages(ctx context.Context, carDetailID uuid.UUID) ([]CarImage, error) {
	var images []CarImage
	err := r.db.WithContext(ctx).
		Where("car_detail_id = ?", carDetailID).
		Order("sort_order ASC").
		Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list images for car detail %s: %w", carDetailID, err)
	}
	return images, nil
}

func (r *gormRepository) ListVideos(ctx context.Context, carDetailID uuid.UUID) ([]CarVideo, error) {
	var videos []CarVideo
	err := r.db.WithContext(ctx).
		Where("car_detail_id = ?", carDetailID).
		Order("sort_order ASC").
		Find(&videos).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list videos for car detail %s: %w", carDetailID, err)
	}
	return videos, nil
}

func (r *gormRepository) CreateImages(ctx context.Context, carDetailID uuid.UUID, inputs []ImageInput) ([]CarImage, error) {
	images := NewImages(carDetailID, inputs)
	if len(images) == 0 {
		return images, nil
	}
	if err := r.db.WithContext(ctx).Create(&images).Error; err != nil {
		return nil, fmt.Errorf("failed to create images: %w", err)
	}
	return images, nil
}

func (r *gormRepository) CreateVideos(ctx context.Context, carDetailID uuid.UUID, inputs []VideoInput) ([]CarVideo, error) {
	videos := NewVideos(carDetailID, inputs)
	if len(videos) == 0 {
		return videos, nil
	}
	if err := r.db.WithContext(ctx).Create(&videos).Error; err != nil {
		return nil, fmt.Errorf("failed to create videos: %w", err)
	}
	return videos, nil
}

func (r *gormRepository) ApplyImageOrder(ctx context.Context, carDetailID uuid.UUID, proposed []ImageInput) error {
	names := make([]string, 0, len(proposed))
	for _, p := range proposed {
		names = append(names, p.Filename)
	}
	return r.applyOrder(ctx, &CarImage{}, carDetailID, names)
}

func (r *gormRepository) ApplyVideoOrder(ctx context.Context, carDetailID uuid.UUID, proposed []VideoInput) error {
	names := make([]string, 0, len(proposed))
	for _, p := range proposed {
		names = append(names, p.Filename)
	}
	return r.applyOrder(ctx, &CarVideo{}, carDetailID, names)
}

func (r *gormRepository) applyOrder(ctx context.Context, model interface{}, carDetailID uuid.UUID, filenames []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, name := range filenames {
			err := tx.Model(model).
				Where("car_detail_id = ? AND filename = ?", carDetailID, name).
				Updates(map[string]interface{}{"sort_order": i, "is_primary": i == 0}).Error
			if err != nil {
				return fmt.Errorf("failed to reorder %s: %w", name, err)
			}
		}
		return nil
	})
}

func (r *gormRepository) ReplaceImages(ctx context.Context, carDetailID uuid.UUID, proposed []ImageInput) ([]CarImage, error) {
	var created []CarImage
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("car_detail_id = ?", carDetailID).Delete(&CarImage{}).Error; err != nil {
			return fmt.Errorf("failed to delete images: %w", err)
		}
		var err error
		created, err = r.WithTx(tx).CreateImages(ctx, carDetailID, proposed)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *gormRepository) ReplaceVideos(ctx context.Context, carDetailID uuid.UUID, proposed []VideoInput) ([]CarVideo, error) {
	var created []CarVideo
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("car_detail_id = ?", carDetailID).Delete(&CarVideo{}).Error; err != nil {
			return fmt.Errorf("failed to delete videos: %w", err)
		}
		var err error
		created, err = r.WithTx(tx).CreateVideos(ctx, carDetailID, proposed)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *gormRepository) BumpRevision(ctx context.Context, carDetailID uuid.UUID, kind Kind) error {
	column := kind.RevisionColumn()
	result := r.db.WithContext(ctx).
		Table("car_details").
		Where("id = ?", carDetailID).
		UpdateColumn(column, gorm.Expr(column+" + 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to bump %s for car detail %s: %w", column, carDetailID, result.Error)
	}
	if result.RowsAffected == 0 {
		return common.ErrNotFound.WithDetails("Car detail not found.")
	}
	return nil
}
