package services

import (
	"strings"

	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// loadPrompt returns the named prompt from store, falling back to the built-in text.
func loadPrompt(store driven.PromptStore, name string) string {
	if store != nil {
		p, err := store.Load(name)
		if err == nil && strings.TrimSpace(p) != "" {
			return p
		}
		if err != nil {
			logger.Warn("Failed to load prompt %q, using built-in: %v", name, err)
		}
	}
	p, _ := driven.DefaultPrompt(name)
	return p
}

// renderSystemPrompt substitutes context into the chat system template.
func renderSystemPrompt(store driven.PromptStore, contextText string) string {
	if strings.TrimSpace(contextText) == "" {
		return loadPrompt(store, driven.PromptChatSystemNoContext)
	}
	tmpl := loadPrompt(store, driven.PromptChatSystem)
	if !strings.Contains(tmpl, driven.ContextPlaceholder) {
		return tmpl + "\n\n" + contextText
	}
	return strings.ReplaceAll(tmpl, driven.ContextPlaceholder, contextText)
}
