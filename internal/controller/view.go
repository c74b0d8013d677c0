package controller

import "fmt"

// ResultImage is one rendered result tile.
type ResultImage struct {
	Index int
	Path  string
	URL   string
	Alt   string
}

// View is the render model derived from a State.
type View struct {
	Loading     bool
	HasFile     bool
	CanSearch   bool
	ButtonLabel string
	Filename    string
	Error       string
	Preview     string
	Images      []ResultImage
}

// Render derives the render model from s. imageURL maps a result path to the
// URL used to display it. Render has no side effects.
func Render(s State, imageURL func(path string) string) View {
	v := View{
		Loading:     s.Loading,
		HasFile:     s.HasFile(),
		CanSearch:   s.CanSearch(),
		ButtonLabel: idleSearchButtonLabel,
		Error:       s.Error,
		Preview:     s.Preview,
	}
	if s.Loading {
		v.ButtonLabel = searchingButtonLabel
	}
	if s.File != nil {
		v.Filename = s.File.Filename
	}

	v.Images = make([]ResultImage, 0, len(s.Results))
	for i, path := range s.Results {
		url := path
		if imageURL != nil {
			url = imageURL(path)
		}
		v.Images = append(v.Images, ResultImage{
			Index: i + 1,
			Path:  path,
			URL:   url,
			Alt:   fmt.Sprintf("Result %d", i+1),
		})
	}
	return v
}
