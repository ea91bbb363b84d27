package config

// NewLLMForTest creates an LLM config for testing purposes
func NewLLMForTest(provider, apiKey, model string) *LLM {
	return &LLM{
		provider: provider,
		apiKey:   apiKey,
		model:    model,
	}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend, dbPath string) *Repository {
	return &Repository{
		backend: backend,
		dbPath:  dbPath,
	}
}

// NewProfileForTest creates a Profile config for testing purposes
func NewProfileForTest(path string) *Profile {
	return &Profile{path: path}
}
