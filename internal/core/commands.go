package core

// Command is a slash command the bridge answers.
type Command struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Reply replaces the deferred "thinking" response.
	Reply string `yaml:"reply"`
	// Echo posts the command's first text option as a new message in the
	// invoking channel. Echoed messages are federated.
	Echo bool `yaml:"echo"`
}

// CommandSet represents the structure of the commands file.
type CommandSet struct {
	// Fallback is the reply to commands not listed below.
	Fallback string    `yaml:"fallback"`
	Commands []Command `yaml:"commands"`
}

// DefaultCommandSet returns the commands used when no file is configured.
func DefaultCommandSet() *CommandSet {
	return &CommandSet{
		Fallback: "Sorry, I don't know that command.",
		Commands: []Command{
			{Name: "ping", Description: "Check that the bridge is alive", Reply: "Pong!"},
		},
	}
}

// Lookup finds a command by name.
func (s *CommandSet) Lookup(name string) (Command, bool) {
	for _, c := range s.Commands {
		if c.Name == name {
			return c, true
		}
	}
	return Command{}, false
}
