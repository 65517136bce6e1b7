// File: internal/media/classifier.go
package media

// ChangeKind is the outcome of comparing an existing media collection with a proposed one.
type ChangeKind string

const (
	// ChangeNone means no media change was proposed.
	ChangeNone ChangeKind = "none"
	// ChangeReorderOnly means the same items with the same content in a new order.
	ChangeReorderOnly ChangeKind = "reorder_only"
	// ChangeSubstantive means items were added, removed or edited and need review.
	ChangeSubstantive ChangeKind = "substantive"
)

// ClassifyImages compares the stored images with a proposed list.
func ClassifyImages(existing []CarImage, proposed []ImageInput) ChangeKind {
	if len(proposed) == 0 {
		return ChangeNone
	}
	old := make([]entry[imageAttrs], 0, len(existing))
	for _, img := range existing {
		old = append(old, entry[imageAttrs]{img.Filename, imageAttrs{
			url: img.URL, originalName: img.OriginalName, typ: img.Type.orDefault(),
			alt: deref(img.Alt), fileSize: img.FileSize, mimeType: img.MimeType,
		}})
	}
	next := make([]entry[imageAttrs], 0, len(proposed))
	for _, in := range proposed {
		next = append(next, entry[imageAttrs]{in.Filename, imageAttrs{
			url: in.URL, originalName: in.OriginalName, typ: in.Type.orDefault(),
			alt: deref(in.Alt), fileSize: in.FileSize, mimeType: in.MimeType,
		}})
	}
	return classify(old, next)
}

// ClassifyVideos compares the stored videos with a proposed list.
func ClassifyVideos(existing []CarVideo, proposed []VideoInput) ChangeKind {
	if len(proposed) == 0 {
		return ChangeNone
	}
	old := make([]entry[videoAttrs], 0, len(existing))
	for _, v := range existing {
		old = append(old, entry[videoAttrs]{v.Filename, videoAttrs{
			url: v.URL, originalName: v.OriginalName, alt: deref(v.Alt), fileSize: v.FileSize,
			mimeType: v.MimeType, duration: derefFloat(v.Duration), thumbnailURL: deref(v.ThumbnailURL),
		}})
	}
	next := make([]entry[videoAttrs], 0, len(proposed))
	for _, in := range proposed {
		next = append(next, entry[videoAttrs]{in.Filename, videoAttrs{
			url: in.URL, originalName: in.OriginalName, alt: deref(in.Alt), fileSize: in.FileSize,
			mimeType: in.MimeType, duration: derefFloat(in.Duration), thumbnailURL: deref(in.ThumbnailURL),
		}})
	}
	return classify(old, next)
}

// imageAttrs and videoAttrs hold every non-ordering field that counts as content.
type imageAttrs struct {
	url, originalName string
	typ               ImageType
	alt               string
	fileSize          int64
	mimeType          string
}

type videoAttrs struct {
	url, originalName, alt string
	fileSize               int64
	mimeType               string
	duration               float64
	thumbnailURL           string
}

type entry[A comparable] struct {
	filename string
	attrs    A
}

func classify[A comparable](existing, proposed []entry[A]) ChangeKind {
	if len(proposed) == 0 {
		return ChangeNone
	}
	if len(proposed) != len(existing) {
		return ChangeSubstantive
	}

	oldByName, ok := index(existing)
	if !ok {
		return ChangeSubstantive
	}
	newByName, ok := index(proposed)
	if !ok {
		return ChangeSubstantive
	}

	for name, next := range newByName {
		prev, found := oldByName[name]
		if !found {
			return ChangeSubstantive
		}
		if prev != next {
			return ChangeSubstantive
		}
	}
	for name := range oldByName {
		if _, found := newByName[name]; !found {
			return ChangeSubstantive
		}
	}
	return ChangeReorderOnly
}

// index maps filename to attrs. A blank or repeated filename cannot be reconciled, so it is
// reported as not ok and the caller treats the change as substantive.
func index[A comparable](items []entry[A]) (map[string]A, bool) {
	m := make(map[string]A, len(items))
	for _, it := range items {
		if it.filename == "" {
			return nil, false
		}
		if _, dup := m[it.filename]; dup {
			return nil, false
		}
		m[it.filename] = it.attrs
	}
	return m, true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
