package command

import (
	"fmt"
	"slices"
	"strings"
)

// categoryOrder is the display order of command categories in help output.
var categoryOrder = []string{CategoryFurni, CategorySystem}

// Registry resolves chat command names and aliases, case-insensitively.
type Registry struct {
	byName map[string]*Command // lowercased name or alias → command
	sorted []*Command          // by canonical name
}

// NewRegistry creates a Registry from cmds.
//
// Precondition: Every command has a non-empty Name and Handler.
// Postcondition: Returns an error if a name or alias is used twice.
func NewRegistry(cmds []Command) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Command, len(cmds)*2)}
	for i := range cmds {
		cmd := &cmds[i]
		if cmd.Name == "" || cmd.Handler == "" {
			return nil, fmt.Errorf("command %d: name and handler are required", i)
		}
		for _, key := range append([]string{cmd.Name}, cmd.Aliases...) {
			key = strings.ToLower(key)
			if existing, ok := r.byName[key]; ok {
				return nil, fmt.Errorf("%q of command %q is already taken by %q", key, cmd.Name, existing.Name)
			}
			r.byName[key] = cmd
		}
		r.sorted = append(r.sorted, cmd)
	}
	slices.SortFunc(r.sorted, func(a, b *Command) int { return strings.Compare(a.Name, b.Name) })
	return r, nil
}

// DefaultRegistry creates a Registry with the built-in commands.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(BuiltinCommands())
	if err != nil {
		panic(fmt.Sprintf("building default registry: %v", err))
	}
	return r
}

// Resolve looks up a command by name or alias.
func (r *Registry) Resolve(name string) (*Command, bool) {
	cmd, ok := r.byName[strings.ToLower(name)]
	return cmd, ok
}

// Commands returns the registered commands ordered by name.
func (r *Registry) Commands() []*Command {
	return slices.Clone(r.sorted)
}

// Categories returns the categories in use, known ones first in display order
// and any others alphabetically after them.
func (r *Registry) Categories() []string {
	seen := make(map[string]bool)
	for _, cmd := range r.sorted {
		seen[cmd.Category] = true
	}
	var out []string
	for _, c := range categoryOrder {
		if seen[c] {
			out = append(out, c)
			delete(seen, c)
		}
	}
	var rest []string
	for c := range seen {
		rest = append(rest, c)
	}
	slices.Sort(rest)
	return append(out, rest...)
}

// InCategory returns the commands of category ordered by name.
func (r *Registry) InCategory(category string) []*Command {
	var out []*Command
	for _, cmd := range r.sorted {
		if cmd.Category == category {
			out = append(out, cmd)
		}
	}
	return out
}
