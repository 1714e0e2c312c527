package installer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

var apiKeyEnv = map[string]string{
	"anthropic":  "ANTHROPIC_API_KEY",
	"openai":     "OPENAI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
	"custom":     "CUSTOM_OPENAI_API_KEY",
	"ollama":     "OLLAMA_API_KEY",
}

var defaultModels = map[string]string{
	"ollama":     "gemma3:1b",
	"openai":     "gpt-4o-mini",
	"anthropic":  "claude-3-5-haiku-latest",
	"openrouter": "openai/gpt-4o-mini",
}

var defaultEmbeddingModels = map[string]string{
	"ollama": "nomic-embed-text",
	"openai": "text-embedding-3-small",
}

// Steps returns the wizard screens in order.
func Steps() []Step {
	provider := func(s *InstallState) string { return s.EnvVars["LLM_PROVIDER"] }
	telegramOff := func(s *InstallState) bool { return s.EnvVars["ENABLE_TELEGRAM"] != "true" }

	return []Step{
		newChoiceStep("Select the language model provider:", "LLM_PROVIDER",
			[]string{"ollama", "openai", "anthropic", "openrouter", "custom"}),
		&inputStep{
			title: "Ollama base URL", key: fixed("OLLAMA_BASE_URL"), def: constant("http://localhost:11434"),
			skip: func(s *InstallState) bool { return provider(s) != "ollama" },
		},
		&inputStep{
			title: "Base URL of the OpenAI-compatible endpoint", key: fixed("CUSTOM_OPENAI_BASE_URL"), required: true,
			skip: func(s *InstallState) bool { return provider(s) != "custom" },
		},
		&inputStep{
			title:    "API key",
			key:      func(s *InstallState) string { return apiKeyEnv[provider(s)] },
			secret:   true,
			required: true,
			optional: func(s *InstallState) bool { return provider(s) == "ollama" },
		},
		&inputStep{
			title: "Model", key: fixed("LLM_MODEL"), required: true,
			def: func(s *InstallState) string { return defaultModels[provider(s)] },
		},
		newChoiceStep("Select the embedding provider:", "EMBEDDING_PROVIDER", []string{"ollama", "openai"}),
		&inputStep{
			title: "Embedding model", key: fixed("EMBEDDING_MODEL"), required: true,
			def: func(s *InstallState) string { return defaultEmbeddingModels[s.EnvVars["EMBEDDING_PROVIDER"]] },
		},
		&inputStep{title: "URL of the document listing page", key: fixed("HARVEST_URL")},
		newChoiceStep("Serve the documents over a Telegram bot?", "ENABLE_TELEGRAM", []string{"false", "true"}),
		&inputStep{title: "Telegram bot token", key: fixed("TELEGRAM_TOKEN"), secret: true, required: true, skip: telegramOff},
		&inputStep{
			title: "Telegram user ID of the owner", key: fixed("TELEGRAM_OWNER_ID"), required: true, skip: telegramOff,
			validate: func(v string) error {
				if _, err := strconv.ParseInt(v, 10, 64); err != nil {
					return fmt.Errorf("owner id must be a number")
				}
				return nil
			},
		},
		&saveStep{},
	}
}

func fixed(key string) func(*InstallState) string {
	return func(*InstallState) string { return key }
}

func constant(v string) func(*InstallState) string {
	return func(*InstallState) string { return v }
}

// choiceStep picks one of a fixed list of values.
type choiceStep struct {
	title   string
	key     string
	choices []string
	cursor  int
}

func newChoiceStep(title, key string, choices []string) *choiceStep {
	return &choiceStep{title: title, key: key, choices: choices}
}

func (s *choiceStep) Init() tea.Cmd {
	return nil
}

func (s *choiceStep) Update(msg tea.Msg, state *InstallState) (Step, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "up", "k":
			if s.cursor > 0 {
				s.cursor--
			}
		case "down", "j":
			if s.cursor < len(s.choices)-1 {
				s.cursor++
			}
		case "enter":
			state.EnvVars[s.key] = s.choices[s.cursor]
			return nil, nil
		}
	}
	return s, nil
}

func (s *choiceStep) View(state *InstallState) string {
	var b strings.Builder
	b.WriteString(s.title + "\n\n")
	for i, choice := range s.choices {
		if s.cursor == i {
			b.WriteString(selStyle.Render("❯ "+choice) + "\n")
		} else {
			b.WriteString(itemStyle.Render("  "+choice) + "\n")
		}
	}
	b.WriteString(hintStyle.Render("\n(press ctrl+c to quit)") + "\n")
	return b.String()
}

// inputStep reads one free-text value.
type inputStep struct {
	title    string
	key      func(*InstallState) string
	def      func(*InstallState) string
	skip     func(*InstallState) bool
	optional func(*InstallState) bool
	validate func(string) error
	secret   bool
	required bool

	input   textinput.Model
	started bool
	err     error
}

func (s *inputStep) Skip(state *InstallState) bool {
	return s.skip != nil && s.skip(state)
}

func (s *inputStep) Init() tea.Cmd {
	return textinput.Blink
}

func (s *inputStep) start(state *InstallState) {
	s.input = textinput.New()
	s.input.Focus()
	s.input.CharLimit = 255
	s.input.Width = 50
	if s.def != nil {
		s.input.Placeholder = s.def(state)
	}
	if s.secret {
		s.input.EchoMode = textinput.EchoPassword
		s.input.EchoCharacter = '•'
	}
	s.started = true
}

func (s *inputStep) isRequired(state *InstallState) bool {
	if s.optional != nil && s.optional(state) {
		return false
	}
	return s.required
}

func (s *inputStep) Update(msg tea.Msg, state *InstallState) (Step, tea.Cmd) {
	if !s.started {
		s.start(state)
	}

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		value := strings.TrimSpace(s.input.Value())
		if value == "" && s.def != nil {
			value = s.def(state)
		}
		if value == "" {
			if s.isRequired(state) {
				s.err = fmt.Errorf("%s is required", strings.ToLower(s.title))
				return s, nil
			}
			return nil, nil
		}
		if s.validate != nil {
			if err := s.validate(value); err != nil {
				s.err = err
				return s, nil
			}
		}
		state.EnvVars[s.key(state)] = value
		return nil, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *inputStep) View(state *InstallState) string {
	if !s.started {
		s.start(state)
	}

	hint := "(press enter to confirm)"
	if !s.isRequired(state) {
		hint = "(optional, press enter to skip)"
	}

	out := fmt.Sprintf("%s:\n\n%s\n\n%s\n", s.title, s.input.View(), hintStyle.Render(hint))
	if s.err != nil {
		out += "\n" + errorStyle.Render(s.err.Error()) + "\n"
	}
	return out
}

// saveStep writes the .env file as soon as it is reached.
type saveStep struct {
	err   error
	saved bool
}

func (s *saveStep) Init() tea.Cmd {
	return next
}

func (s *saveStep) Update(msg tea.Msg, state *InstallState) (Step, tea.Cmd) {
	if s.saved || s.err != nil {
		return nil, nil
	}
	if err := state.Save(); err != nil {
		s.err = err
		return nil, nil
	}
	s.saved = true
	return nil, nil
}

func (s *saveStep) View(state *InstallState) string {
	if s.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", s.err)) + "\n"
	}
	return "Saving configuration...\n"
}
