package command

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/roomfurni/internal/game/operation"
)

// Executor parses command lines and dispatches them to their handlers.
type Executor struct {
	registry *Registry
	furni    *FurniHandler
	ops      *operation.Manager
	out      Output
	logger   *zap.Logger
}

// NewExecutor creates an Executor.
//
// Precondition: All arguments must be non-nil.
func NewExecutor(registry *Registry, furni *FurniHandler, ops *operation.Manager, out Output, logger *zap.Logger) *Executor {
	return &Executor{
		registry: registry,
		furni:    furni,
		ops:      ops,
		out:      out,
		logger:   logger,
	}
}

// Execute runs one command line. Operations started by the line outlive the
// call and are bound to ctx, so ctx should span the application's lifetime.
//
// Postcondition: Returns a non-nil error only for failures that are not user errors.
func (e *Executor) Execute(ctx context.Context, line string) error {
	parsed := Parse(line)
	if parsed.Command == "" {
		return nil
	}
	cmd, ok := e.registry.Resolve(parsed.Command)
	if !ok {
		e.out.Message(fmt.Sprintf("Unknown command: %s", parsed.Command))
		return nil
	}

	e.logger.Debug("executing command",
		zap.String("command", cmd.Name),
		zap.String("line", parsed.Line),
	)

	switch cmd.Handler {
	case HandlerFurni:
		_, err := e.furni.Handle(ctx, parsed.Command, parsed.Args)
		return err
	case HandlerCancel:
		if n := e.ops.CancelAll(); n == 0 {
			e.out.Message("No operation to cancel.")
		}
		return nil
	case HandlerHelp:
		e.out.Message(e.help())
		return nil
	default:
		return fmt.Errorf("command %q has unknown handler %q", cmd.Name, cmd.Handler)
	}
}

func (e *Executor) help() string {
	var b strings.Builder
	b.WriteString("Commands:")
	for _, cat := range e.registry.Categories() {
		fmt.Fprintf(&b, "\n [%s]", cat)
		for _, c := range e.registry.InCategory(cat) {
			names := append([]string{c.Name}, c.Aliases...)
			fmt.Fprintf(&b, "\n  /%s - %s", strings.Join(names, ", /"), c.Help)
		}
	}
	return b.String()
}
