// Package gallery normalises the two image sections of a post and applies
// list edits sent by the dashboard.
package gallery

import (
	"sort"

	"github.com/drawing-gallery/core/internal/models"
)

// Image is a section-one image in its typed form. The first image of the
// section is always a Primary; every other one is a Secondary.
type Image interface {
	stored(priority int) models.Section1Image
}

// Primary is the lead image of section one. It has no downloadable files.
type Primary struct {
	MainImageURL string
	Title        string
}

// Secondary is any later section-one image, with its own image and PDF link.
type Secondary struct {
	MainImageURL string
	Title        string
	ImageURL     string
	PDFURL       string
}

func (p Primary) stored(priority int) models.Section1Image {
	return models.Section1Image{
		Kind:         models.ImagePrimary,
		MainImageURL: p.MainImageURL,
		Title:        p.Title,
		Priority:     priority,
	}
}

func (s Secondary) stored(priority int) models.Section1Image {
	return models.Section1Image{
		Kind:         models.ImageSecondary,
		MainImageURL: s.MainImageURL,
		Title:        s.Title,
		ImageURL:     s.ImageURL,
		PDFURL:       s.PDFURL,
		Priority:     priority,
	}
}

// classify builds the typed image for the given 0-based position.
func classify(position int, img models.Section1Image) Image {
	if position == 0 {
		return Primary{MainImageURL: img.MainImageURL, Title: img.Title}
	}
	return Secondary{
		MainImageURL: img.MainImageURL,
		Title:        img.Title,
		ImageURL:     img.ImageURL,
		PDFURL:       img.PDFURL,
	}
}

// NormalizeSection1 fills missing priorities with the 1-based input position,
// orders by priority (ties keep input order), renumbers 1..N and rebuilds every
// entry through classify. Nil stays nil.
func NormalizeSection1(in []models.Section1Image) []models.Section1Image {
	if in == nil {
		return nil
	}
	list := withDefaultPriorities(in, func(img *models.Section1Image) *int { return &img.Priority })

	out := make([]models.Section1Image, len(list))
	for i, img := range list {
		out[i] = classify(i, img).stored(i + 1)
	}
	return out
}

// NormalizeSection2 applies the same priority rules to section two.
func NormalizeSection2(in []models.Section2Image) []models.Section2Image {
	if in == nil {
		return nil
	}
	list := withDefaultPriorities(in, func(img *models.Section2Image) *int { return &img.Priority })
	for i := range list {
		list[i].Priority = i + 1
	}
	return list
}

func withDefaultPriorities[T any](in []T, priority func(*T) *int) []T {
	list := make([]T, len(in))
	copy(list, in)
	for i := range list {
		if p := priority(&list[i]); *p <= 0 {
			*p = i + 1
		}
	}
	sort.SliceStable(list, func(a, b int) bool {
		return *priority(&list[a]) < *priority(&list[b])
	})
	return list
}
