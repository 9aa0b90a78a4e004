package telnet

import (
	"context"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"
)

// CommandRunner executes one command line.
type CommandRunner interface {
	Execute(ctx context.Context, line string) error
}

// RunnerFactory builds the command runner of one session. Replies written to
// reply reach that session only.
type RunnerFactory func(reply func(text string)) CommandRunner

const (
	prompt   = "> "
	greeting = "Room furni console. Type /help for commands, quit to disconnect."
)

// CommandSession is a SessionHandler that executes every line as a chat command.
type CommandSession struct {
	newRunner RunnerFactory
	color     bool
	logger    *zap.Logger
}

// NewCommandSession creates a CommandSession.
//
// Precondition: newRunner and logger must be non-nil.
func NewCommandSession(newRunner RunnerFactory, color bool, logger *zap.Logger) *CommandSession {
	return &CommandSession{newRunner: newRunner, color: color, logger: logger}
}

// HandleSession reads command lines until the client quits or disconnects.
//
// Postcondition: Returns nil when the client quits or closes the connection.
func (s *CommandSession) HandleSession(ctx context.Context, conn *Conn) error {
	runner := s.newRunner(func(text string) {
		if s.color {
			text = Highlight(text)
		}
		if err := conn.WriteLine(text); err != nil {
			s.logger.Debug("dropping console reply", zap.Error(err))
		}
	})

	if err := conn.WriteLine(greeting); err != nil {
		return err
	}
	for {
		if err := conn.WritePrompt(prompt); err != nil {
			return err
		}
		line, err := conn.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
			continue
		case "quit", "exit":
			return conn.WriteLine("Bye.")
		}
		if err := runner.Execute(ctx, line); err != nil {
			s.logger.Error("console command failed", zap.String("line", line), zap.Error(err))
			_ = conn.WriteLine("Command failed.")
		}
	}
}
