// Package tui is a terminal front end over the same search controller the web
// page uses: pick a file, search, watch the spinner, read the result URLs.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cloo-solutions/vsearch/internal/controller"
	"github.com/cloo-solutions/vsearch/internal/domain"
	"github.com/cloo-solutions/vsearch/internal/preview"
)

// ImageExtensions are the files offered by the picker.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tif", ".tiff"}

// Options configures the UI.
type Options struct {
	Context    context.Context
	Controller *controller.Controller
	ImageURL   func(path string) string
	StartDir   string
}

// searchDoneMsg is sent when the in-flight search has finished.
type searchDoneMsg struct{}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx      context.Context
	ctrl     *controller.Controller
	imageURL func(string) string

	picker  filepicker.Model
	spinner spinner.Model
	keys    keyMap
	styles  Styles

	// prompt is a transient notice, e.g. searching without a selection
	prompt string
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	fp := filepicker.New()
	fp.AllowedTypes = ImageExtensions
	if opts.StartDir != "" {
		fp.CurrentDirectory = opts.StartDir
	}

	s := spinner.New()
	s.Spinner = spinner.Dot

	return Model{
		ctx:      ctx,
		ctrl:     opts.Controller,
		imageURL: opts.ImageURL,
		picker:   fp,
		spinner:  s,
		keys:     DefaultKeyMap(),
		styles:   defaultStyles(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.picker.Init(), m.spinner.Tick)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Search):
			return m.startSearch()
		case key.Matches(msg, m.keys.Clear):
			m.prompt = ""
			return m, nil
		}

	case searchDoneMsg:
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.selectPath(path)
	}
	if ok, path := m.picker.DidSelectDisabledFile(msg); ok {
		m.prompt = fmt.Sprintf("%s is not a supported image type.", path)
	}

	return m, cmd
}

func (m *Model) selectPath(path string) {
	img, err := preview.ReadFile(path)
	if err != nil {
		m.prompt = err.Error()
		return
	}
	m.prompt = ""
	m.ctrl.SelectFile(img)
}

func (m Model) startSearch() (tea.Model, tea.Cmd) {
	done, err := m.ctrl.SubmitSearch(m.ctx)
	switch {
	case errors.Is(err, domain.ErrNoFileSelected):
		m.prompt = controller.PromptNoFile
		return m, nil
	case errors.Is(err, domain.ErrSearchInFlight):
		return m, nil
	case err != nil:
		m.prompt = err.Error()
		return m, nil
	}
	m.prompt = ""
	return m, waitForSearch(done)
}

func waitForSearch(done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-done
		return searchDoneMsg{}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	view := controller.Render(m.ctrl.Snapshot(), m.imageURL)
	st := m.styles

	var b strings.Builder
	b.WriteString(st.Title.Render("Visual Search Engine"))
	b.WriteString("\n")
	b.WriteString(st.Subtitle.Render("Upload an image of a clothing item to find similar products."))
	b.WriteString("\n\n")

	b.WriteString("Choose an image:\n")
	b.WriteString(m.picker.View())
	b.WriteString("\n")

	if view.HasFile {
		b.WriteString("Your Image: " + view.Filename + "\n")
	}
	b.WriteString("\n")

	if view.CanSearch {
		b.WriteString(st.Button.Render(view.ButtonLabel))
	} else {
		b.WriteString(st.Disabled.Render(view.ButtonLabel))
	}
	if view.Loading {
		b.WriteString(" " + m.spinner.View())
	}
	b.WriteString("\n")

	if m.prompt != "" {
		b.WriteString(st.Prompt.Render(m.prompt) + "\n")
	}
	if view.Error != "" {
		b.WriteString(st.Error.Render(view.Error) + "\n")
	}

	if len(view.Images) > 0 {
		b.WriteString(st.Section.Render("Similar Items Found") + "\n")
		for _, img := range view.Images {
			b.WriteString(st.Index.Render(fmt.Sprintf("%2d.", img.Index)))
			b.WriteString(" " + img.URL + "\n")
		}
	}

	b.WriteString("\n" + st.Muted.Render(m.keys.helpLine()))
	return b.String()
}
