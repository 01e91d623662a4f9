package menu

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Menu kinds understood by StaticMenu.
const (
	KindOptions = "options"
	KindInput   = "input"
	KindEnd     = "end"
)

const defaultPageSize = 5

// Definitions is the menus file: a map of menu id to its definition.
type Definitions struct {
	Menus map[string]Definition `yaml:"menus"`
}

type Definition struct {
	Kind     string   `yaml:"kind"`
	Title    string   `yaml:"title,omitempty"`
	Prompt   string   `yaml:"prompt,omitempty"`
	Text     string   `yaml:"text,omitempty"`
	Next     string   `yaml:"next,omitempty"`
	PageSize int      `yaml:"page_size,omitempty"`
	Options  []Option `yaml:"options,omitempty"`
}

type Option struct {
	Label string `yaml:"label"`
	Next  string `yaml:"next"`
}

func LoadFile(path string) (*Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read menus file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Definitions, error) {
	var defs Definitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("failed to parse menus: %w", err)
	}
	if len(defs.Menus) == 0 {
		return nil, fmt.Errorf("menus file defines no menus")
	}
	return &defs, nil
}

// Validate checks that home exists and every next target resolves.
func (d *Definitions) Validate(home string) error {
	if _, ok := d.Menus[home]; !ok {
		return fmt.Errorf("%w: home menu %q is not defined", ErrUnknownMenu, home)
	}

	for _, id := range d.ids() {
		def := d.Menus[id]
		switch def.Kind {
		case KindOptions:
			if len(def.Options) == 0 {
				return fmt.Errorf("menu %q: options menu has no options", id)
			}
			if def.PageSize < 0 {
				return fmt.Errorf("menu %q: page_size must not be negative", id)
			}
			for i, opt := range def.Options {
				if opt.Label == "" {
					return fmt.Errorf("menu %q: option %d has no label", id, i+1)
				}
				if err := d.checkTarget(id, opt.Next); err != nil {
					return err
				}
			}
		case KindInput:
			if def.Prompt == "" {
				return fmt.Errorf("menu %q: input menu has no prompt", id)
			}
			if err := d.checkTarget(id, def.Next); err != nil {
				return err
			}
		case KindEnd:
			if def.Text == "" && id != ErrorMenu {
				return fmt.Errorf("menu %q: end menu has no text", id)
			}
		default:
			return fmt.Errorf("menu %q: unknown kind %q", id, def.Kind)
		}
	}
	return nil
}

func (d *Definitions) checkTarget(id, next string) error {
	if next == "" {
		return fmt.Errorf("menu %q: missing next menu", id)
	}
	if next == ExitMenu {
		return nil
	}
	if _, ok := d.Menus[next]; !ok {
		return fmt.Errorf("%w: menu %q points to %q", ErrUnknownMenu, id, next)
	}
	return nil
}

// Register validates the definitions and installs one StaticMenu per entry.
func (d *Definitions) Register(r *Registry, home string) error {
	if err := d.Validate(home); err != nil {
		return err
	}
	for _, id := range d.ids() {
		def := d.Menus[id]
		if def.PageSize == 0 {
			def.PageSize = defaultPageSize
		}
		if err := r.Register(id, &StaticMenu{ID: id, Def: def, IsHome: id == home}); err != nil {
			return err
		}
	}
	return nil
}

func (d *Definitions) ids() []string {
	ids := make([]string, 0, len(d.Menus))
	for id := range d.Menus {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
