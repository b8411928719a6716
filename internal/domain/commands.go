package domain

// CommandDef describes a slash command available to the user.
type CommandDef struct {
	Name        string
	Description string
	Group       string // display group for /help
}

// CommandDefs is the single source of truth for all slash commands.
var CommandDefs = []CommandDef{
	// Session
	{Name: "/new", Description: "start a new session", Group: "session"},
	{Name: "/sessions", Description: "list and switch sessions", Group: "session"},
	{Name: "/continue", Description: "resume a session by ID", Group: "session"},
	{Name: "/rename", Description: "rename current session", Group: "session"},
	// Composer
	{Name: "/attach", Description: "attach a file to the next message", Group: "composer"},
	{Name: "/images", Description: "list images staged in this session", Group: "composer"},
	// General
	{Name: "/help", Description: "show this help", Group: "general"},
	{Name: "/set", Description: "set a preference key", Group: "general"},
	{Name: "/clear", Description: "clear chat", Group: "general"},
	{Name: "/exit", Description: "quit plume", Group: "general"},
}

// CommandGroups defines the display order and labels for help groups.
var CommandGroups = []struct {
	Key   string
	Label string
}{
	{"session", "Sessions"},
	{"composer", "Composer"},
	{"general", "General"},
}
