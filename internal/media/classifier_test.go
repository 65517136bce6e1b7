package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func stored(names ...string) []CarImage {
	out := make([]CarImage, 0, len(names))
	for i, n := range names {
		out = append(out, CarImage{
			Filename: n, OriginalName: n, URL: "https://cdn.example/" + n,
			Type: ImageTypeExterior, SortOrder: i, IsPrimary: i == 0, FileSize: 1024, MimeType: "image/jpeg",
		})
	}
	return out
}

func proposed(names ...string) []ImageInput {
	out := make([]ImageInput, 0, len(names))
	for _, n := range names {
		out = append(out, ImageInput{
			Filename: n, OriginalName: n, URL: "https://cdn.example/" + n,
			FileSize: 1024, MimeType: "image/jpeg",
		})
	}
	return out
}

func TestClassifyImages(t *testing.T) {
	alt := "front view"

	tests := []struct {
		name     string
		existing []CarImage
		proposed []ImageInput
		want     ChangeKind
	}{
		{"nil proposal is no change", stored("a.jpg"), nil, ChangeNone},
		{"empty proposal is no change", stored("a.jpg"), []ImageInput{}, ChangeNone},
		{"reordered same content", stored("a.jpg", "b.jpg", "c.jpg"), proposed("c.jpg", "a.jpg", "b.jpg"), ChangeReorderOnly},
		{"same order same content", stored("a.jpg", "b.jpg"), proposed("a.jpg", "b.jpg"), ChangeReorderOnly},
		{"item removed", stored("a.jpg", "b.jpg", "c.jpg"), proposed("a.jpg", "b.jpg"), ChangeSubstantive},
		{"item added", stored("a.jpg"), proposed("a.jpg", "b.jpg"), ChangeSubstantive},
		{"first images on empty listing", nil, proposed("a.jpg"), ChangeSubstantive},
		{"same length different filename", stored("a.jpg", "b.jpg"), proposed("a.jpg", "z.jpg"), ChangeSubstantive},
		{"duplicate filename in proposal", stored("a.jpg", "b.jpg"), proposed("a.jpg", "a.jpg"), ChangeSubstantive},
		{"blank filename in proposal", stored("a.jpg"), proposed(""), ChangeSubstantive},
		{
			name:     "url changed",
			existing: stored("a.jpg", "b.jpg"),
			proposed: func() []ImageInput { p := proposed("b.jpg", "a.jpg"); p[0].URL = "https://other/b.jpg"; return p }(),
			want:     ChangeSubstantive,
		},
		{
			name:     "alt text added",
			existing: stored("a.jpg"),
			proposed: func() []ImageInput { p := proposed("a.jpg"); p[0].Alt = &alt; return p }(),
			want:     ChangeSubstantive,
		},
		{
			name:     "type changed",
			existing: stored("a.jpg"),
			proposed: func() []ImageInput { p := proposed("a.jpg"); p[0].Type = ImageTypeInterior; return p }(),
			want:     ChangeSubstantive,
		},
		{
			name:     "explicit exterior equals default",
			existing: stored("a.jpg"),
			proposed: func() []ImageInput { p := proposed("a.jpg"); p[0].Type = ImageTypeExterior; return p }(),
			want:     ChangeReorderOnly,
		},
		{
			name:     "size changed",
			existing: stored("a.jpg"),
			proposed: func() []ImageInput { p := proposed("a.jpg"); p[0].FileSize = 99; return p }(),
			want:     ChangeSubstantive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyImages(tt.existing, tt.proposed))
		})
	}
}

func TestClassifyVideos(t *testing.T) {
	dur := 12.5
	thumb := "https://cdn.example/t.jpg"
	existing := []CarVideo{
		{Filename: "walk.mp4", URL: "u1", MimeType: "video/mp4", Duration: &dur, ThumbnailURL: &thumb, SortOrder: 0, IsPrimary: true},
		{Filename: "engine.mp4", URL: "u2", MimeType: "video/mp4", SortOrder: 1},
	}

	reordered := []VideoInput{
		{Filename: "engine.mp4", URL: "u2", MimeType: "video/mp4"},
		{Filename: "walk.mp4", URL: "u1", MimeType: "video/mp4", Duration: &dur, ThumbnailURL: &thumb},
	}
	assert.Equal(t, ChangeReorderOnly, ClassifyVideos(existing, reordered))

	longer := 30.0
	changedDuration := []VideoInput{
		{Filename: "walk.mp4", URL: "u1", MimeType: "video/mp4", Duration: &longer, ThumbnailURL: &thumb},
		{Filename: "engine.mp4", URL: "u2", MimeType: "video/mp4"},
	}
	assert.Equal(t, ChangeSubstantive, ClassifyVideos(existing, changedDuration))

	droppedThumb := []VideoInput{
		{Filename: "walk.mp4", URL: "u1", MimeType: "video/mp4", Duration: &dur},
		{Filename: "engine.mp4", URL: "u2", MimeType: "video/mp4"},
	}
	assert.Equal(t, ChangeSubstantive, ClassifyVideos(existing, droppedThumb))

	assert.Equal(t, ChangeNone, ClassifyVideos(existing, nil))
}

// Equal-length lists over the same filename set are reorder-only exactly when content matches,
// and any filename mismatch is substantive regardless of other fields.
func TestClassifyImages_PermutationProperty(t *testing.T) {
	base := []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg"}
	perms := [][]string{
		{"a.jpg", "b.jpg", "c.jpg", "d.jpg"},
		{"d.jpg", "c.jpg", "b.jpg", "a.jpg"},
		{"b.jpg", "a.jpg", "d.jpg", "c.jpg"},
		{"c.jpg", "d.jpg", "a.jpg", "b.jpg"},
	}
	for _, p := range perms {
		assert.Equal(t, ChangeReorderOnly, ClassifyImages(stored(base...), proposed(p...)), "%v", p)

		swapped := append([]string(nil), p...)
		swapped[len(swapped)-1] = "x.jpg"
		assert.Equal(t, ChangeSubstantive, ClassifyImages(stored(base...), proposed(swapped...)), "%v", swapped)
	}
}
