package command

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/roomfurni/internal/game/furni"
	"github.com/cory-johannsen/roomfurni/internal/game/operation"
	"github.com/cory-johannsen/roomfurni/internal/game/room"
)

// Room is the room state the furni commands act on.
type Room interface {
	IsInRoom() bool
	IsOwner() bool
	Furni() []furni.Furni
	HideFurni(f furni.Furni)
	ShowFurni(f furni.Furni)
	Pickup(key furni.Key) error
}

// Output receives user-facing messages.
type Output interface {
	Message(text string)
}

// OutputFunc adapts a function to the Output interface.
type OutputFunc func(text string)

// Message calls f(text).
func (f OutputFunc) Message(text string) { f(text) }

// Session describes the signed-in user.
type Session struct {
	// Origins selects the Origins client rules.
	Origins bool
	// UserID is the signed-in user. 0 means user data is unavailable.
	UserID int64
	// PickupInterval spaces consecutive pickups.
	PickupInterval time.Duration
}

// cancelHintThreshold is the total pickup delay above which the cancel hint is shown.
const cancelHintThreshold = 2500 * time.Millisecond

// FurniHandler executes the furni sub-commands.
type FurniHandler struct {
	room    Room
	names   furni.NameResolver
	ops     *operation.Manager
	session Session
	out     Output
	logger  *zap.Logger
}

// NewFurniHandler creates a FurniHandler.
//
// Precondition: All arguments must be non-nil.
func NewFurniHandler(r Room, names furni.NameResolver, ops *operation.Manager, session Session, out Output, logger *zap.Logger) *FurniHandler {
	return &FurniHandler{
		room:    r,
		names:   names,
		ops:     ops,
		session: session,
		out:     out,
		logger:  logger,
	}
}

// WildcardPattern compiles a case-insensitive whole-name pattern in which
// '*' matches any run of characters and '?' matches exactly one.
func WildcardPattern(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?is)^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

func (h *FurniHandler) name(f furni.Furni) (string, bool) {
	return h.names.FurniName(f.Descriptor())
}

// Handle runs "furni <sub> <pattern...>". Unknown or missing sub-commands are ignored.
//
// Postcondition: For pickup and eject, returns the started operation's ID, if any.
func (h *FurniHandler) Handle(ctx context.Context, command string, args []string) (string, error) {
	if len(args) < 1 {
		return "", nil
	}
	sub, ok := ResolveSub(strings.ToLower(args[0]))
	if !ok {
		return "", nil
	}
	pattern := strings.Join(args[1:], " ")

	switch sub {
	case SubShow:
		h.setVisible(pattern, true)
		return "", nil
	case SubHide:
		h.setVisible(pattern, false)
		return "", nil
	case SubEject:
		if h.session.Origins {
			h.out.Message("Origins does not support ejecting furni.")
			return "", nil
		}
		return h.pickup(ctx, command, args[0], pattern, true)
	default:
		return h.pickup(ctx, command, args[0], pattern, false)
	}
}

// setVisible shows or hides every named furni in the room matching pattern.
func (h *FurniHandler) setVisible(pattern string, visible bool) int {
	if !h.room.IsInRoom() {
		return 0
	}
	re := WildcardPattern(pattern)
	n := 0
	for _, f := range h.room.Furni() {
		name, ok := h.name(f)
		if !ok || !re.MatchString(name) {
			continue
		}
		if visible {
			h.room.ShowFurni(f)
		} else {
			h.room.HideFurni(f)
		}
		n++
	}
	h.logger.Debug("furni visibility command",
		zap.String("pattern", pattern),
		zap.Bool("visible", visible),
		zap.Int("matched", n),
	)
	return n
}

func verb(eject bool) string {
	if eject {
		return "eject"
	}
	return "pick up"
}

// selectTargets applies the ownership and pattern rules.
// It returns the candidates considered and the furni that matched.
func (h *FurniHandler) selectTargets(pattern string, all bool, eject bool) (candidates, matched []furni.Furni) {
	for _, f := range h.room.Furni() {
		// Flash: pickup takes own furni, eject takes everyone else's.
		if !h.session.Origins && eject == (f.OwnerID == h.session.UserID) {
			continue
		}
		candidates = append(candidates, f)
	}
	if all {
		return candidates, candidates
	}
	re := WildcardPattern(pattern)
	for _, f := range candidates {
		if name, ok := h.name(f); ok && re.MatchString(name) {
			matched = append(matched, f)
		}
	}
	return candidates, matched
}

func (h *FurniHandler) pickup(ctx context.Context, command, sub, pattern string, eject bool) (string, error) {
	if h.session.UserID == 0 || !h.room.IsInRoom() {
		if h.session.UserID == 0 {
			h.out.Message("User data is currently unavailable.")
		} else {
			h.out.Message("Room state is unavailable, please re-enter the room.")
		}
		return "", nil
	}
	if h.session.Origins && !h.room.IsOwner() {
		h.out.Message("You must be the room owner to pick up furni.")
		return "", nil
	}
	if strings.TrimSpace(pattern) == "" {
		return "", nil
	}

	all := strings.EqualFold(pattern, "all")
	candidates, matched := h.selectTargets(pattern, all, eject)
	if len(matched) == 0 {
		h.out.Message(fmt.Sprintf("No furni to %s.", verb(eject)))
		return "", nil
	}
	if len(matched) == len(candidates) && !all {
		h.out.Message(fmt.Sprintf("[Warning] Pattern matched all furni. Use '/%s %s all' to %s all furni.", command, sub, verb(eject)))
		return "", nil
	}

	interval := h.session.PickupInterval
	// Eject reports the same progress text as pickup.
	msg := fmt.Sprintf("Picking up %d furni...", len(matched))
	if interval*time.Duration(len(matched)) >= cancelHintThreshold {
		msg += " Use /c to cancel."
	}

	kind := "pickup"
	if eject {
		kind = "eject"
	}
	id, err := h.ops.Start(ctx, kind, func(ctx context.Context) error {
		return h.pickupAll(ctx, matched, interval)
	}, func(err error) {
		if errors.Is(err, context.Canceled) {
			h.out.Message(fmt.Sprintf("Cancelled %s.", kind))
		} else if err != nil {
			h.out.Message(fmt.Sprintf("Failed to %s furni: %v", verb(eject), err))
		}
	})
	if err != nil {
		if errors.Is(err, operation.ErrBusy) {
			h.out.Message("An operation is already in progress.")
			return "", nil
		}
		return "", fmt.Errorf("starting %s: %w", kind, err)
	}
	h.out.Message(msg)
	return id, nil
}

// pickupAll picks up targets in order, waiting interval between requests.
// Furni that vanished in the meantime are skipped; leaving the room ends the run.
func (h *FurniHandler) pickupAll(ctx context.Context, targets []furni.Furni, interval time.Duration) error {
	for i, f := range targets {
		if i > 0 && interval > 0 {
			timer := time.NewTimer(interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := h.room.Pickup(f.Key()); err != nil {
			if errors.Is(err, room.ErrNotInRoom) {
				return err
			}
			h.logger.Debug("pickup skipped", zap.Stringer("key", f.Key()), zap.Error(err))
		}
	}
	return nil
}
