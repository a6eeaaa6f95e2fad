package handler

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// CommandFunc handles one console command. now is the tick's clock reading.
type CommandFunc func(out Replier, args []string, now time.Time, deps *Deps)

type commandEntry struct {
	name  string
	usage string
	fn    CommandFunc
}

// Registry maps command names (and aliases) to handlers.
type Registry struct {
	commands map[string]*commandEntry
	deps     *Deps
}

func NewRegistry(deps *Deps) *Registry {
	return &Registry{
		commands: make(map[string]*commandEntry),
		deps:     deps,
	}
}

// Register maps a command name and its aliases to fn.
func (reg *Registry) Register(name, usage string, fn CommandFunc, aliases ...string) {
	e := &commandEntry{name: name, usage: usage, fn: fn}
	reg.commands[name] = e
	for _, a := range aliases {
		reg.commands[a] = e
	}
}

// Dispatch parses one console line and runs its handler. A leading "." or
// "convoy." is accepted so in-game GM syntax works too. Returns an error for
// unknown commands; the caller replies with it.
func (reg *Registry) Dispatch(out Replier, line string, now time.Time) error {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, ".")
	line = strings.TrimPrefix(line, "convoy.")
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}
	cmd := strings.ToLower(parts[0])
	e, ok := reg.commands[cmd]
	if !ok {
		return fmt.Errorf("unknown command %q, type help for a list", cmd)
	}
	e.fn(out, parts[1:], now, reg.deps)
	return nil
}

// Usage lists each command once, sorted by name.
func (reg *Registry) Usage() []string {
	seen := make(map[*commandEntry]bool)
	var out []string
	for _, e := range reg.commands {
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e.usage)
	}
	sort.Strings(out)
	return out
}
