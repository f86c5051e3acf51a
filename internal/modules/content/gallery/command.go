package gallery

import (
	"github.com/drawing-gallery/core/internal/models"
	"github.com/drawing-gallery/core/internal/pkg/apperror"
)

// Op names a list edit.
type Op string

const (
	OpAppend  Op = "append"
	OpRemove  Op = "remove"
	OpReorder Op = "reorder"
	OpSet     Op = "set"
)

// Section selects which image list a command edits.
type Section string

const (
	Section1 Section = "section1"
	Section2 Section = "section2"
)

// ImageInput carries the fields of a new image for either section.
type ImageInput struct {
	MainImageURL string `json:"main_image_url"`
	Title        string `json:"title"`
	ImageURL     string `json:"imageUrl"`
	PDFURL       string `json:"pdfUrl"`
	Description  string `json:"description"`
}

// Command is one edit. Index and To are 0-based positions in the list as
// currently ordered.
type Command struct {
	Op      Op          `json:"op"`
	Section Section     `json:"section"`
	Index   int         `json:"index"`
	To      int         `json:"to"`
	Field   string      `json:"field"`
	Value   string      `json:"value"`
	Image   *ImageInput `json:"image,omitempty"`
}

// Lists holds both sections of a post.
type Lists struct {
	Section1 []models.Section1Image
	Section2 []models.Section2Image
}

// Apply runs cmds in order against copies of lists and returns the
// normalised result. Nothing is returned on the first invalid command.
func Apply(lists Lists, cmds []Command) (Lists, error) {
	s1 := append([]models.Section1Image{}, NormalizeSection1(lists.Section1)...)
	s2 := append([]models.Section2Image{}, NormalizeSection2(lists.Section2)...)

	for _, cmd := range cmds {
		var err error
		switch cmd.Section {
		case Section1:
			s1, err = applySection1(s1, cmd)
			s1 = NormalizeSection1(s1)
		case Section2:
			s2, err = applySection2(s2, cmd)
			s2 = NormalizeSection2(s2)
		default:
			err = apperror.Invalid("section", "unknown section %q", cmd.Section)
		}
		if err != nil {
			return Lists{}, err
		}
	}
	return Lists{Section1: s1, Section2: s2}, nil
}

func applySection1(list []models.Section1Image, cmd Command) ([]models.Section1Image, error) {
	switch cmd.Op {
	case OpAppend:
		if cmd.Image == nil {
			return nil, apperror.Invalid("image", "is required for append")
		}
		return append(list, models.Section1Image{
			MainImageURL: cmd.Image.MainImageURL,
			Title:        cmd.Image.Title,
			ImageURL:     cmd.Image.ImageURL,
			PDFURL:       cmd.Image.PDFURL,
			Priority:     len(list) + 1,
		}), nil
	case OpRemove:
		return remove(list, cmd.Index)
	case OpReorder:
		return move(list, cmd.Index, cmd.To, func(img *models.Section1Image, p int) { img.Priority = p })
	case OpSet:
		if err := checkIndex(len(list), cmd.Index, "index"); err != nil {
			return nil, err
		}
		img := &list[cmd.Index]
		switch cmd.Field {
		case "main_image_url":
			img.MainImageURL = cmd.Value
		case "title":
			img.Title = cmd.Value
		case "imageUrl", "pdfUrl":
			if cmd.Index == 0 {
				return nil, apperror.Invalid("field", "the primary image has no %s", cmd.Field)
			}
			if cmd.Field == "imageUrl" {
				img.ImageURL = cmd.Value
			} else {
				img.PDFURL = cmd.Value
			}
		default:
			return nil, apperror.Invalid("field", "unknown section1 field %q", cmd.Field)
		}
		return list, nil
	default:
		return nil, apperror.Invalid("op", "unknown operation %q", cmd.Op)
	}
}

func applySection2(list []models.Section2Image, cmd Command) ([]models.Section2Image, error) {
	switch cmd.Op {
	case OpAppend:
		if cmd.Image == nil {
			return nil, apperror.Invalid("image", "is required for append")
		}
		return append(list, models.Section2Image{
			ImageURL:    cmd.Image.ImageURL,
			Title:       cmd.Image.Title,
			Description: cmd.Image.Description,
			Priority:    len(list) + 1,
		}), nil
	case OpRemove:
		return remove(list, cmd.Index)
	case OpReorder:
		return move(list, cmd.Index, cmd.To, func(img *models.Section2Image, p int) { img.Priority = p })
	case OpSet:
		if err := checkIndex(len(list), cmd.Index, "index"); err != nil {
			return nil, err
		}
		img := &list[cmd.Index]
		switch cmd.Field {
		case "imageUrl":
			img.ImageURL = cmd.Value
		case "title":
			img.Title = cmd.Value
		case "description":
			img.Description = cmd.Value
		default:
			return nil, apperror.Invalid("field", "unknown section2 field %q", cmd.Field)
		}
		return list, nil
	default:
		return nil, apperror.Invalid("op", "unknown operation %q", cmd.Op)
	}
}

func checkIndex(n, i int, field string) error {
	if i < 0 || i >= n {
		return apperror.Invalid(field, "%d is out of range for %d images", i, n)
	}
	return nil
}

func remove[T any](list []T, i int) ([]T, error) {
	if err := checkIndex(len(list), i, "index"); err != nil {
		return nil, err
	}
	return append(list[:i:i], list[i+1:]...), nil
}

// move relocates list[from] to position to and rewrites priorities to match
// the new order so normalisation keeps it.
func move[T any](list []T, from, to int, setPriority func(*T, int)) ([]T, error) {
	if err := checkIndex(len(list), from, "index"); err != nil {
		return nil, err
	}
	if err := checkIndex(len(list), to, "to"); err != nil {
		return nil, err
	}

	item := list[from]
	rest := append(list[:from:from], list[from+1:]...)
	out := make([]T, 0, len(list))
	out = append(out, rest[:to]...)
	out = append(out, item)
	out = append(out, rest[to:]...)
	for i := range out {
		setPriority(&out[i], i+1)
	}
	return out, nil
}
