package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/glabrego/conch/internal/config"
)

type KeyMap struct {
	Down      key.Binding
	Up        key.Binding
	Top       key.Binding
	Stick     key.Binding
	PageDown  key.Binding
	PageUp    key.Binding
	Refresh   key.Binding
	Yank      key.Binding
	Open      key.Binding
	Back      key.Binding
	PrevBlast key.Binding
	NextBlast key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.Stick, k.Top, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Down, k.Up, k.PageDown, k.PageUp},
		{k.Top, k.Stick, k.Refresh},
		{k.Open, k.Back, k.PrevBlast, k.NextBlast},
		{k.Yank, k.Help, k.Quit},
	}
}

// DetailHelp is the short help shown while a blast is open.
func (k KeyMap) DetailHelp() []key.Binding {
	return []key.Binding{k.Back, k.Down, k.Up, k.PrevBlast, k.NextBlast, k.Yank, k.Quit}
}

func NewKeyMap(cfg config.KeyMapConfig) KeyMap {
	return KeyMap{
		Down:      binding(cfg.Down, "down"),
		Up:        binding(cfg.Up, "up"),
		Top:       binding(cfg.Top, "to top"),
		Stick:     binding(cfg.Stick, "stick to top"),
		PageDown:  binding(cfg.PageDown, "page down"),
		PageUp:    binding(cfg.PageUp, "page up"),
		Refresh:   binding(cfg.Refresh, "poll now"),
		Yank:      binding(cfg.Yank, "copy blast"),
		Open:      binding(cfg.Open, "open blast"),
		Back:      binding(cfg.Back, "back"),
		PrevBlast: binding(cfg.PrevBlast, "newer blast"),
		NextBlast: binding(cfg.NextBlast, "older blast"),
		Help:      binding(cfg.Help, "help"),
		Quit:      binding(cfg.Quit, "quit"),
	}
}

func DefaultKeyMap() KeyMap {
	return NewKeyMap(config.DefaultKeyMap())
}

// binding labels the help entry with the first configured key. A binding
// with no keys is disabled.
func binding(list, desc string) key.Binding {
	keys := config.Keys(list)
	if len(keys) == 0 {
		return key.NewBinding(key.WithDisabled())
	}
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(keys[0], desc))
}
