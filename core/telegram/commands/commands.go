package commands

import "github.com/m3rciful/woofinder/core/wizard"

// Command is the menu metadata of a slash command. Handling goes through the
// wizard dispatcher, so no handler is stored here.
type Command struct {
	Description string
	AdminOnly   bool
	Hidden      bool
}

// FromTriggers collects the command triggers keyed by their slash name.
func FromTriggers(triggers []wizard.Trigger) map[string]Command {
	out := make(map[string]Command)
	for _, t := range triggers {
		if t.Kind != wizard.TriggerCommand {
			continue
		}
		out["/"+t.Token] = Command{
			Description: t.Description,
			AdminOnly:   t.AdminOnly,
			Hidden:      t.Hidden,
		}
	}
	return out
}
