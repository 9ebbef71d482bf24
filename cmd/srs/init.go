// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SemanticRetrievalSystem Contributors

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/PluginsX/SemanticRetrievalSystem/internal/config"
	googleprov "github.com/PluginsX/SemanticRetrievalSystem/internal/provider/google"
	localprov "github.com/PluginsX/SemanticRetrievalSystem/internal/provider/local"
	openaiprov "github.com/PluginsX/SemanticRetrievalSystem/internal/provider/openai"
	"github.com/PluginsX/SemanticRetrievalSystem/internal/secrets"
	srserr "github.com/PluginsX/SemanticRetrievalSystem/pkg/errors"
)

// initWizardStep tracks which step of the wizard is active.
type initWizardStep int

const (
	stepEmbedding    initWizardStep = iota // select embedding provider
	stepEmbeddingKey                       // enter embedding API key
	stepValidateKey                        // test embedding (spinner)
	stepLLM                                // select llm provider
	stepLLMKey                             // enter llm API key
	stepDone
	stepError
)

// embeddingChoice is one selectable embedding backend and the model and
// vector size written for it.
type embeddingChoice struct {
	Name       string
	Model      string
	Dimensions int
	NeedsKey   bool
}

var embeddingChoices = []embeddingChoice{
	{Name: "openai", Model: openaiprov.DefaultEmbeddingModel, Dimensions: 1536, NeedsKey: true},
	{Name: "google", Model: googleprov.DefaultEmbeddingModel, Dimensions: 768, NeedsKey: true},
	{Name: "local", Model: "", Dimensions: localprov.DefaultDimensions},
}

var llmChoices = []string{"openai", "anthropic", "google", "none"}

// initResult holds the collected wizard configuration.
type initResult struct {
	Embedding    embeddingChoice
	EmbeddingKey string
	LLM          string
	LLMKey       string
}

type (
	validationSuccessMsg struct{}
	validationErrorMsg   struct{ err error }
	configWrittenMsg     struct{ path string }
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	promptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	boxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
)

// validateEmbeddingKey embeds a short test string with the given credentials.
// Declared as a variable so tests can avoid network calls.
var validateEmbeddingKey = func(ctx context.Context, choice embeddingChoice, key string) error {
	factory, ok := embedderFactories[choice.Name]
	if !ok {
		return srserr.Errorf(srserr.CodeCLIInputInvalid, "unknown embedding provider %q", choice.Name)
	}
	emb, err := factory(config.EmbeddingConfig{
		APIKey:    key,
		Model:     choice.Model,
		BatchSize: 1,
		Timeout:   10 * time.Second,
	}, choice.Dimensions)
	if err != nil {
		return err
	}
	_, err = emb.Embed(ctx, "connection test")
	return err
}

// initModel is the bubbletea model for the init wizard.
type initModel struct {
	step          initWizardStep
	embeddingIdx  int
	llmIdx        int
	keyInput      textinput.Model
	spinner       spinner.Model
	result        initResult
	validationErr string
	configPath    string
	secretStore   secrets.Store
	errFinal      error
	force         bool
}

func newInitModel(store secrets.Store) initModel {
	key := textinput.New()
	key.Placeholder = "paste API key here"
	key.EchoMode = textinput.EchoPassword
	key.EchoCharacter = '•'

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return initModel{
		step:        stepEmbedding,
		keyInput:    key,
		spinner:     sp,
		secretStore: store,
	}
}

func (m initModel) Init() tea.Cmd {
	return nil
}

func (m initModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case validationSuccessMsg:
		m.step = stepLLM
		return m, nil

	case validationErrorMsg:
		m.validationErr = msg.err.Error()
		m.step = stepEmbeddingKey
		m.keyInput.Focus()
		return m, nil

	case configWrittenMsg:
		m.step = stepDone
		m.configPath = msg.path
		return m, tea.Quit

	case error:
		m.step = stepError
		m.errFinal = msg
		return m, tea.Quit
	}

	if m.step == stepEmbeddingKey || m.step == stepLLMKey {
		var cmd tea.Cmd
		m.keyInput, cmd = m.keyInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m initModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.step {
	case stepEmbedding:
		return m.handleEmbeddingKey(msg)
	case stepEmbeddingKey, stepLLMKey:
		return m.handleKeyInput(msg)
	case stepLLM:
		return m.handleLLMKey(msg)
	}
	return m, nil
}

func (m initModel) handleEmbeddingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.embeddingIdx > 0 {
			m.embeddingIdx--
		}
	case "down", "j":
		if m.embeddingIdx < len(embeddingChoices)-1 {
			m.embeddingIdx++
		}
	case "enter":
		m.result.Embedding = embeddingChoices[m.embeddingIdx]
		m.validationErr = ""
		if !m.result.Embedding.NeedsKey {
			m.step = stepLLM
			return m, nil
		}
		m.step = stepEmbeddingKey
		m.keyInput.SetValue("")
		m.keyInput.Focus()
		return m, textinput.Blink
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m initModel) handleLLMKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.llmIdx > 0 {
			m.llmIdx--
		}
	case "down", "j":
		if m.llmIdx < len(llmChoices)-1 {
			m.llmIdx++
		}
	case "enter":
		m.result.LLM = llmChoices[m.llmIdx]
		m.validationErr = ""
		switch {
		case m.result.LLM == "none":
			return m, writeConfigCmd(m.result, m.secretStore, m.force)
		case m.result.LLM == m.result.Embedding.Name:
			// Same vendor, same key.
			m.result.LLMKey = m.result.EmbeddingKey
			return m, writeConfigCmd(m.result, m.secretStore, m.force)
		}
		m.step = stepLLMKey
		m.keyInput.SetValue("")
		m.keyInput.Focus()
		return m, textinput.Blink
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m initModel) handleKeyInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		key := strings.TrimSpace(m.keyInput.Value())
		if key == "" {
			m.validationErr = "API key must not be empty"
			return m, nil
		}
		m.validationErr = ""
		if m.step == stepLLMKey {
			m.result.LLMKey = key
			return m, writeConfigCmd(m.result, m.secretStore, m.force)
		}
		m.result.EmbeddingKey = key
		m.step = stepValidateKey
		return m, tea.Batch(m.spinner.Tick, validateKeyCmd(m.result.Embedding, key))
	case "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.keyInput, cmd = m.keyInput.Update(msg)
	return m, cmd
}

func (m initModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("  srs setup  ") + "\n\n")

	switch m.step {
	case stepEmbedding:
		b.WriteString(promptStyle.Render("Step 1/2: Embedding provider") + "\n\n")
		for i, c := range embeddingChoices {
			b.WriteString(renderChoice(c.Name, i == m.embeddingIdx))
		}
		b.WriteString("\n" + dimStyle.Render("↑/↓ to navigate  enter to select  q to quit"))

	case stepEmbeddingKey, stepLLMKey:
		name := m.result.Embedding.Name
		if m.step == stepLLMKey {
			name = m.result.LLM
		}
		b.WriteString(promptStyle.Render(name+" API key") + "\n\n")
		b.WriteString(m.keyInput.View() + "\n")
		if m.validationErr != "" {
			b.WriteString("\n" + errorStyle.Render("  "+m.validationErr) + "\n")
		}
		b.WriteString("\n" + dimStyle.Render("enter to continue  ctrl+c to quit"))

	case stepValidateKey:
		b.WriteString(m.spinner.View() + " Testing " + m.result.Embedding.Name + " embeddings…\n")

	case stepLLM:
		b.WriteString(promptStyle.Render("Step 2/2: Answer provider") + "\n\n")
		for i, name := range llmChoices {
			b.WriteString(renderChoice(name, i == m.llmIdx))
		}
		b.WriteString("\n" + dimStyle.Render("↑/↓ to navigate  enter to select  q to quit"))

	case stepDone:
		b.WriteString(successStyle.Render("  Setup complete!  ") + "\n\n")
		if m.configPath != "" {
			b.WriteString(dimStyle.Render("Config written to: "+m.configPath) + "\n\n")
		}
		b.WriteString("Run " + promptStyle.Render("srs serve") + " to start the API.\n")

	case stepError:
		b.WriteString(errorStyle.Render("Setup failed: "+m.errFinal.Error()) + "\n")
	}

	return boxStyle.Render(b.String())
}

func renderChoice(name string, selected bool) string {
	if selected {
		return selectedStyle.Render("  > "+name) + "\n"
	}
	return dimStyle.Render("    "+name) + "\n"
}

func validateKeyCmd(choice embeddingChoice, key string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := validateEmbeddingKey(ctx, choice, key); err != nil {
			return validationErrorMsg{err: err}
		}
		return validationSuccessMsg{}
	}
}

func writeConfigCmd(result initResult, store secrets.Store, force bool) tea.Cmd {
	return func() tea.Msg {
		path, err := storeSecretsAndWriteConfig(result, store, force)
		if err != nil {
			return err
		}
		return configWrittenMsg{path: path}
	}
}

func keyringRef(providerName string) string {
	return fmt.Sprintf("keyring://%s/%s-api-key", secrets.DefaultService, providerName)
}

// wizardConfig applies the wizard choices to the default configuration.
// Credentials appear only as keyring references.
func wizardConfig(result initResult) *config.Config {
	cfg := config.Default()
	cfg.Embedding.Provider = result.Embedding.Name
	cfg.Embedding.Model = result.Embedding.Model
	cfg.Embedding.APIKey = ""
	if result.Embedding.NeedsKey {
		cfg.Embedding.APIKey = keyringRef(result.Embedding.Name)
	}
	cfg.Vector.Dimensions = result.Embedding.Dimensions

	cfg.LLM.Provider = result.LLM
	cfg.LLM.APIKey = ""
	if result.LLM != "none" && result.LLM != "" {
		cfg.LLM.APIKey = keyringRef(result.LLM)
	}
	return cfg
}

// storeSecretsAndWriteConfig saves the keys to the keyring and writes the
// config to configPathForWrite. Keys already stored are not rolled back if
// the write fails.
func storeSecretsAndWriteConfig(result initResult, store secrets.Store, force bool) (string, error) {
	stored := map[string]string{}
	if result.Embedding.NeedsKey && result.EmbeddingKey != "" {
		stored[result.Embedding.Name] = result.EmbeddingKey
	}
	if result.LLM != "none" && result.LLMKey != "" {
		stored[result.LLM] = result.LLMKey
	}
	for name, key := range stored {
		if err := store.Set(secrets.DefaultService, name+"-api-key", key); err != nil {
			return "", srserr.Wrapf(err, srserr.CodeSecretStoreFailure, "storing %s API key", name)
		}
	}

	cfgPath, err := configPathForWrite()
	if err != nil {
		return "", err
	}
	if !force {
		if _, statErr := os.Stat(cfgPath); statErr == nil {
			return "", srserr.Errorf(srserr.CodeCLIInputInvalid,
				"config file already exists at %s; use --force to overwrite", cfgPath)
		}
	}

	data, err := config.Render(wizardConfig(result))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o700); err != nil {
		return "", srserr.Errorf(srserr.CodeConfigLoadReadFailure, "creating config directory: %w", err)
	}
	if err := os.WriteFile(cfgPath, data, 0o600); err != nil {
		return "", srserr.Errorf(srserr.CodeConfigLoadReadFailure, "writing config to %s: %w", cfgPath, err)
	}
	return cfgPath, nil
}

// configPathForWrite is a variable so tests can redirect it.
var configPathForWrite = config.DefaultConfigPath

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactive setup wizard",
		Long: `Run an interactive wizard that picks an embedding provider and an
answer provider. API keys are stored in the OS keyring and referenced via
keyring:// URIs in the config file.`,
		RunE: runInit,
	}
	cmd.Flags().Bool("force", false, "overwrite an existing config file")
	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !isTerminal(f) {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(),
			"srs init requires an interactive terminal.\n"+
				"Use 'srs config init' to write the default config instead.")
		return srserr.New(srserr.CodeCLISetupFailure, "srs init: not an interactive terminal")
	}

	m := newInitModel(secretStoreFactory())
	m.force, _ = cmd.Flags().GetBool("force")

	finalModel, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return srserr.Errorf(srserr.CodeCLISetupFailure, "init wizard: %w", err)
	}
	fm, ok := finalModel.(initModel)
	if !ok {
		return srserr.New(srserr.CodeCLISetupFailure, "unexpected model type after wizard")
	}
	if fm.errFinal != nil {
		return srserr.Errorf(srserr.CodeCLISetupFailure, "init failed: %w", fm.errFinal)
	}
	if fm.configPath != "" {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", fm.configPath)
	}
	return nil
}

// isTerminal reports whether f is a terminal file descriptor.
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
