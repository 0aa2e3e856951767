package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Provider identifies an AI chat backend
type Provider int

const (
	Claude Provider = iota
	Grok
	OpenAI
	Gemini
)

// Providers lists every provider in cycling order
var Providers = []Provider{Claude, Grok, OpenAI, Gemini}

// ErrUnknownProvider is returned by ParseProvider for unrecognized names
var ErrUnknownProvider = errors.New("unknown provider")

// ParseProvider maps a CLI/config name to a provider
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "claude":
		return Claude, nil
	case "grok":
		return Grok, nil
	case "gpt", "openai":
		return OpenAI, nil
	case "gemini":
		return Gemini, nil
	}
	return Claude, fmt.Errorf("%w: %q", ErrUnknownProvider, s)
}

// Name returns the display name
func (p Provider) Name() string {
	switch p {
	case Claude:
		return "Claude"
	case Grok:
		return "Grok"
	case OpenAI:
		return "GPT"
	case Gemini:
		return "Gemini"
	}
	return "Unknown"
}

// Key returns the name used to store the provider's history
func (p Provider) Key() string {
	switch p {
	case Claude:
		return "claude"
	case Grok:
		return "grok"
	case OpenAI:
		return "openai"
	case Gemini:
		return "gemini"
	}
	return "unknown"
}

// Color returns the accent color used for the provider in the UI
func (p Provider) Color() lipgloss.Color {
	switch p {
	case Claude:
		return lipgloss.Color("208") // orange
	case Grok:
		return lipgloss.Color("252") // light gray
	case OpenAI:
		return lipgloss.Color("42") // green
	case Gemini:
		return lipgloss.Color("33") // blue
	}
	return lipgloss.Color("15")
}

// Next returns the provider after p in cycling order
func (p Provider) Next() Provider {
	return Providers[(int(p)+1)%len(Providers)]
}

func (p Provider) String() string {
	return p.Key()
}

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation
type Message struct {
	Role    string `yaml:"role"`
	Content string `yaml:"content"`
}

// Client sends a conversation to an AI provider and returns its reply
type Client interface {
	Send(ctx context.Context, messages []Message) (string, error)
}
