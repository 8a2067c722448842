package tools

// Registry returns all built-in tool definitions wired for a workspace.
func Registry(w *Workspace) []Definition {
	return []Definition{
		w.ReadFileDefinition(),
		w.WriteFileDefinition(),
		w.RunBashDefinition(),
	}
}
