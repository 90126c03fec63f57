package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// visibleChoices bounds the list drawn under the text.
const visibleChoices = 12

type exploreModel struct {
	nav     navigator
	choices []choice
	cursor  int
	status  string
}

func newExploreModel(nav navigator) exploreModel {
	return exploreModel{nav: nav, choices: nav.Choices()}
}

func (m exploreModel) Init() tea.Cmd { return nil }

func (m exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	m.status = ""
	switch key.String() {
	case "ctrl+c", "esc", "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		}
	case "enter", "right", "l":
		if err := m.nav.Choose(m.cursor); err != nil {
			m.status = err.Error()
			break
		}
		m.choices = m.nav.Choices()
		m.cursor = 0
	case "left", "h", "backspace":
		if err := m.nav.Back(); err != nil {
			m.status = err.Error()
			break
		}
		m.choices = m.nav.Choices()
		m.cursor = 0
	}
	return m, nil
}

func (m exploreModel) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s▌\n\n", m.nav.Text())

	start := max(0, m.cursor-visibleChoices+1)
	end := min(len(m.choices), start+visibleChoices)
	for i := start; i < end; i++ {
		c := m.choices[i]
		marker := "  "
		if i == m.cursor {
			marker = "> "
		}
		fmt.Fprintf(&b, "%s%-4q %5.1f%% %s\n", marker, c.Text, 100*c.Share, strings.Repeat("█", int(40*c.Share+0.5)))
	}
	if m.status != "" {
		fmt.Fprintf(&b, "\n%s\n", m.status)
	}
	b.WriteString("\n↑/↓ choose  →/enter write  ← back  q quit\n")
	return b.String()
}

func newExploreCmd(a *app) *cobra.Command {
	var learn bool
	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Write text by stepping through the model's predictions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, store, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			nav, err := e.Navigator(learn)
			if err != nil {
				return err
			}
			_, err = tea.NewProgram(newExploreModel(nav)).Run()
			text := nav.Text()
			nav.Close()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)

			if !learn {
				return nil
			}
			saved, err := store.Save(cmd.Context(), e.Model(), snapshotManifest(e, "explore"))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", saved.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&learn, "learn", false, "learn written symbols and save a snapshot on exit")
	return cmd
}
