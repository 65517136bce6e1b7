// File: internal/media/model.go
package media

import (
	"carmarket_backend/internal/common"

	"github.com/google/uuid"
)

// ImageType classifies what a car photo shows.
type ImageType string

const (
	ImageTypeExterior ImageType = "exterior"
	ImageTypeInterior ImageType = "interior"
	ImageTypeEngine   ImageType = "engine"
	ImageTypeOther    ImageType = "other"
)

// Valid reports whether t is a known image type. The empty value is accepted and means exterior.
func (t ImageType) Valid() bool {
	switch t {
	case "", ImageTypeExterior, ImageTypeInterior, ImageTypeEngine, ImageTypeOther:
		return true
	}
	return false
}

func (t ImageType) orDefault() ImageType {
	if t == "" {
		return ImageTypeExterior
	}
	return t
}

// CarImage is one ordered photo of a car detail. Filename is its identity across edits.
type CarImage struct {
	common.BaseModel
	CarDetailID  uuid.UUID `gorm:"type:uuid;not null;index:idx_car_images_detail_order" json:"car_detail_id"`
	Filename     string    `gorm:"type:varchar(255);not null" json:"filename"`
	OriginalName string    `gorm:"type:varchar(255)" json:"original_name"`
	URL          string    `gorm:"type:text;not null" json:"url"`
	Type         ImageType `gorm:"type:varchar(20);not null" json:"type"`
	SortOrder    int       `gorm:"not null;index:idx_car_images_detail_order" json:"sort_order"`
	IsPrimary    bool      `gorm:"not null" json:"is_primary"`
	Alt          *string   `gorm:"type:varchar(255)" json:"alt,omitempty"`
	FileSize     int64     `json:"file_size"`
	MimeType     string    `gorm:"type:varchar(100)" json:"mime_type"`
}

// TableName specifies the table name for GORM.
func (CarImage) TableName() string {
	return "car_images"
}

// CarVideo is one ordered video of a car detail.
type CarVideo struct {
	common.BaseModel
	CarDetailID  uuid.UUID `gorm:"type:uuid;not null;index:idx_car_videos_detail_order" json:"car_detail_id"`
	Filename     string    `gorm:"type:varchar(255);not null" json:"filename"`
	OriginalName string    `gorm:"type:varchar(255)" json:"original_name"`
	URL          string    `gorm:"type:text;not null" json:"url"`
	SortOrder    int       `gorm:"not null;index:idx_car_videos_detail_order" json:"sort_order"`
	IsPrimary    bool      `gorm:"not null" json:"is_primary"`
	Alt          *string   `gorm:"type:varchar(255)" json:"alt,omitempty"`
	FileSize     int64     `json:"file_size"`
	MimeType     string    `gorm:"type:varchar(100)" json:"mime_type"`
	Duration     *float64  `json:"duration,omitempty"`
	ThumbnailURL *string   `gorm:"type:text" json:"thumbnail_url,omitempty"`
}

// TableName specifies the table name for GORM.
func (CarVideo) TableName() string {
	return "car_videos"
}

// ImageInput is an already-uploaded image as supplied by the client, in display order.
type ImageInput struct {
	Filename     string    `json:"filename" binding:"required"`
	OriginalName string    `json:"originalName"`
	URL          string    `json:"url" binding:"required"`
	Type         ImageType `json:"type,omitempty" binding:"omitempty,oneof=exterior interior engine other"`
	Alt          *string   `json:"alt,omitempty"`
	FileSize     int64     `json:"fileSize"`
	MimeType     string    `json:"mimeType"`
}

// VideoInput is an already-uploaded video as supplied by the client, in display order.
type VideoInput struct {
	Filename     string   `json:"filename" binding:"required"`
	OriginalName string   `json:"originalName"`
	URL          string   `json:"url" binding:"required"`
	Alt          *string  `json:"alt,omitempty"`
	FileSize     int64    `json:"fileSize"`
	MimeType     string   `json:"mimeType"`
	Duration     *float64 `json:"duration,omitempty"`
	ThumbnailURL *string  `json:"thumbnailUrl,omitempty"`
}

// NewImages builds rows for inputs with sortOrder=index and the first item primary.
func NewImages(carDetailID uuid.UUID, inputs []ImageInput) []CarImage {
	out := make([]CarImage, 0, len(inputs))
	for i, in := range inputs {
		out = append(out, CarImage{
			CarDetailID:  carDetailID,
			Filename:     in.Filename,
			OriginalName: in.OriginalName,
			URL:          in.URL,
			Type:         in.Type.orDefault(),
			SortOrder:    i,
			IsPrimary:    i == 0,
			Alt:          in.Alt,
			FileSize:     in.FileSize,
			MimeType:     in.MimeType,
		})
	}
	return out
}

// NewVideos builds rows for inputs with sortOrder=index and the first item primary.
func NewVideos(carDetailID uuid.UUID, inputs []VideoInput) []CarVideo {
	out := make([]CarVideo, 0, len(inputs))
	for i, in := range inputs {
		out = append(out, CarVideo{
			CarDetailID:  carDetailID,
			Filename:     in.Filename,
			OriginalName: in.OriginalName,
			URL:          in.URL,
			SortOrder:    i,
			IsPrimary:    i == 0,
			Alt:          in.Alt,
			FileSize:     in.FileSize,
			MimeType:     in.MimeType,
			Duration:     in.Duration,
			ThumbnailURL: in.ThumbnailURL,
		})
	}
	return out
}

// ImageInputs converts stored rows back to inputs, keeping their order.
func ImageInputs(images []CarImage) []ImageInput {
	out := make([]ImageInput, 0, len(images))
	for _, img := range images {
		out = append(out, ImageInput{
			Filename:     img.Filename,
			OriginalName: img.OriginalName,
			URL:          img.URL,
			Type:         img.Type,
			Alt:          img.Alt,
			FileSize:     img.FileSize,
			MimeType:     img.MimeType,
		})
	}
	return out
}

// VideoInputs converts stored rows back to inputs, keeping their order.
func VideoInputs(videos []CarVideo) []VideoInput {
	out := make([]VideoInput, 0, len(videos))
	for _, v := range videos {
		out = append(out, VideoInput{
			Filename:     v.Filename,
			OriginalName: v.OriginalName,
			URL:          v.URL,
			Alt:          v.Alt,
			FileSize:     v.FileSize,
			MimeType:     v.MimeType,
			Duration:     v.Duration,
			ThumbnailURL: v.ThumbnailURL,
		})
	}
	return out
}
