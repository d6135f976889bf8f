package model

// KnownModel is one entry in the model picker catalog.
type KnownModel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DefaultModel is used when no model has been chosen or persisted.
const DefaultModel = "gemini-2.5-pro"

// Catalog lists the models offered by the picker.
var Catalog = []KnownModel{
	{ID: "gemini-2.5-pro", Name: "Gemini 2.5 Pro"},
	{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash"},
	{ID: "claude-4.0-sonnet", Name: "Claude 4.0 Sonnet"},
	{ID: "deepseek-v3", Name: "DeepSeek V3"},
	{ID: "gemma3_27b", Name: "Gemma 3"},
	{ID: "llama-3.3", Name: "LlaMA 3.3"},
	{ID: "deepseek-r1-70b", Name: "DeepSeek R1"},
	{ID: "phi4-14b", Name: "Phi 4"},
}

// KnownModelID reports whether id is in the catalog.
func KnownModelID(id string) bool {
	for _, m := range Catalog {
		if m.ID == id {
			return true
		}
	}
	return false
}

// DisplayName returns the human-readable name for a model id, falling
// back to the id itself for models the catalog does not know.
func DisplayName(id string) string {
	for _, m := range Catalog {
		if m.ID == id {
			return m.Name
		}
	}
	return id
}
