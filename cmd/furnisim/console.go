package main

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/cory-johannsen/roomfurni/internal/scenario"
)

// runConsole executes one command per input line until in is exhausted or
// ctx is cancelled, then waits for started operations to finish.
//
// Postcondition: Returns nil on end of input or cancellation, or the first
// command or read error.
func runConsole(ctx context.Context, in io.Reader, commands scenario.CommandRunner, ops scenario.OperationWaiter, logger *zap.Logger) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		s := bufio.NewScanner(in)
		for s.Scan() {
			select {
			case lines <- s.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- s.Err()
	}()

	n := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				logger.Debug("end of input", zap.Int("lines", n))
				ops.Wait()
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("reading commands: %w", err)
					}
				default:
				}
				return nil
			}
			n++
			if err := commands.Execute(ctx, line); err != nil {
				return fmt.Errorf("line %d: %w", n, err)
			}
		}
	}
}
