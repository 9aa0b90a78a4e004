// Package command provides the command registry, parser, and the furni and
// operation commands.
package command

// Categories for organizing commands.
const (
	CategoryFurni  = "furni"
	CategorySystem = "system"
)

// Handler identifiers mapping commands to their executor.
const (
	HandlerFurni  = "furni"
	HandlerCancel = "cancel"
	HandlerHelp   = "help"
)

// Command defines a user-invocable command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Help is the short help text displayed to users.
	Help string
	// Category groups the command (furni, system).
	Category string
	// Handler selects the executor branch for this command.
	Handler string
}

// BuiltinCommands returns all built-in commands.
func BuiltinCommands() []Command {
	return []Command{
		{Name: "furni", Aliases: []string{"f"}, Help: "Show, hide, pick up or eject furni by name (furni <show|hide|pickup|eject> <pattern|all>)", Category: CategoryFurni, Handler: HandlerFurni},

		{Name: "cancel", Aliases: []string{"c"}, Help: "Cancel the running furni operation", Category: CategorySystem, Handler: HandlerCancel},
		{Name: "help", Aliases: []string{"?"}, Help: "Show available commands", Category: CategorySystem, Handler: HandlerHelp},
	}
}

// Furni sub-commands.
const (
	SubShow   = "show"
	SubHide   = "hide"
	SubPickup = "pickup"
	SubEject  = "eject"
)

// ResolveSub maps a furni sub-command or its alias to the canonical name.
//
// Postcondition: Returns ("", false) for unknown sub-commands.
func ResolveSub(s string) (string, bool) {
	switch s {
	case "show", "s":
		return SubShow, true
	case "hide", "h":
		return SubHide, true
	case "pickup", "pick", "p":
		return SubPickup, true
	case "eject", "e":
		return SubEject, true
	default:
		return "", false
	}
}
