package ui

import (
	"github.com/charmbracelet/huh"

	"github.com/vanderheijden86/arbor/pkg/tree"
)

// settingsValues is the form's backing store.
type settingsValues struct {
	Mode          string
	SingleBranch  bool
	ToggleOnClick bool
	ShowHelp      bool
}

func newSettingsForm(v *settingsValues) *huh.Form {
	modes := []string{
		tree.SelectionNone.String(),
		tree.SelectionBiState.String(),
		tree.SelectionCascading.String(),
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Selection mode").
				Options(huh.NewOptions(modes...)...).
				Value(&v.Mode),
			huh.NewConfirm().
				Title("Single branch expand").
				Description("Expanding a node collapses its siblings").
				Value(&v.SingleBranch),
			huh.NewConfirm().
				Title("Toggle on click").
				Value(&v.ToggleOnClick),
			huh.NewConfirm().
				Title("Show help bar").
				Value(&v.ShowHelp),
		),
	).WithShowHelp(true)
}

func (m *Model) currentSettings() *settingsValues {
	return &settingsValues{
		Mode:          m.tree.SelectionMode().String(),
		SingleBranch:  m.tree.SingleBranchExpand(),
		ToggleOnClick: m.tree.ToggleNodeOnClick(),
		ShowHelp:      m.cfg.UI.ShowHelp,
	}
}

// applySettings pushes the form values into the tree and config. Changing
// the mode clears the selection.
func (m *Model) applySettings(v *settingsValues) error {
	mode, err := tree.ParseSelectionMode(v.Mode)
	if err != nil {
		return err
	}
	if mode != m.tree.SelectionMode() {
		m.tree.SetSelectionMode(mode)
	}
	m.tree.SetSingleBranchExpand(v.SingleBranch)
	m.tree.SetToggleNodeOnClick(v.ToggleOnClick)

	m.cfg.Tree.SelectionMode = mode.String()
	m.cfg.Tree.SingleBranchExpand = v.SingleBranch
	m.cfg.Tree.ToggleNodeOnClick = v.ToggleOnClick
	m.cfg.UI.ShowHelp = v.ShowHelp
	if m.saveConfig != nil {
		return m.saveConfig(m.cfg)
	}
	return nil
}
