package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

// progressKeys are the bindings of the progress view. Hiding the view does
// not stop ingestion; the upload command keeps waiting in plain mode.
type progressKeys struct {
	Hide key.Binding
	Help key.Binding
}

func defaultProgressKeys() progressKeys {
	return progressKeys{
		Hide: key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "hide")),
		Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	}
}

func (k progressKeys) ShortHelp() []key.Binding  { return []key.Binding{k.Hide, k.Help} }
func (k progressKeys) FullHelp() [][]key.Binding { return [][]key.Binding{{k.Hide, k.Help}} }

// Poll loop messages.
type (
	statusPolled struct{ status *domain.IngestionStatus }
	pollFailed   struct{ err error }
	pollDue      struct{}
)
