package monitor

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Command is a monitor command. Run receives the arguments after the
// command name.
type Command struct {
	Name    string
	Aliases []string
	Usage   string
	Desc    string
	Run     func(ctx context.Context, args []string) error
}

type registry struct {
	primary map[string]Command
	lookup  map[string]string
}

func newRegistry() *registry {
	return &registry{
		primary: make(map[string]Command),
		lookup:  make(map[string]string),
	}
}

func (r *registry) register(cmd Command) error {
	cmd.Name = strings.TrimSpace(cmd.Name)
	if cmd.Name == "" {
		return fmt.Errorf("monitor: empty command name")
	}
	if cmd.Run == nil {
		return fmt.Errorf("monitor: %q has no handler", cmd.Name)
	}
	if _, ok := r.lookup[cmd.Name]; ok {
		return fmt.Errorf("monitor: duplicate command %q", cmd.Name)
	}

	aliases := make([]string, 0, len(cmd.Aliases))
	for _, alias := range cmd.Aliases {
		alias = strings.TrimSpace(alias)
		if alias == "" {
			continue
		}
		if _, ok := r.lookup[alias]; ok || alias == cmd.Name {
			return fmt.Errorf("monitor: duplicate alias %q", alias)
		}
		aliases = append(aliases, alias)
	}

	r.primary[cmd.Name] = cmd
	r.lookup[cmd.Name] = cmd.Name
	for _, alias := range aliases {
		r.lookup[alias] = cmd.Name
	}
	return nil
}

func (r *registry) resolve(name string) (Command, bool) {
	primary, ok := r.lookup[strings.TrimSpace(name)]
	if !ok {
		return Command{}, false
	}
	cmd, ok := r.primary[primary]
	return cmd, ok
}

func (r *registry) names() []string {
	out := make([]string, 0, len(r.primary))
	for name := range r.primary {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
