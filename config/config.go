package config

import (
	"net/http"
	"os"
	"strings"

	"github.com/curtisnewbie/miso/errs"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
	EnvTavilyAPIKey  = "TAVILY_API_KEY"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"

	DefaultOpenAIBaseURL      = "https://api.openai.com/v1"
	DefaultMaxSteps           = 12
	DefaultCheckpointCapacity = 1000
)

// Config of the web agent, it's not supposed to be changed once the agent is created.
type Config struct {
	OpenAIAPIKey  string
	TavilyAPIKey  string
	OpenAIBaseURL string

	// System prompt of the agent.
	Prompt string

	// Summarize earlier messages once the conversation gets too long, disabled by default.
	EnableSummarization bool

	// Register the slow and expensive tavily research tool.
	EnableResearch bool

	// Count tokens with tiktoken instead of approximation.
	UseTiktoken bool

	MaxSteps           int
	CheckpointCapacity int
	VisualizeDir       string

	// Client used for outbound requests, see certs.Setup.
	HTTPClient *http.Client
}

func Default() Config {
	return Config{
		OpenAIBaseURL:      DefaultOpenAIBaseURL,
		Prompt:             DefaultPrompt,
		MaxSteps:           DefaultMaxSteps,
		CheckpointCapacity: DefaultCheckpointCapacity,
	}
}

// Load config from environment variables, variables in envFiles (e.g., .env) are loaded first without overriding the
// existing ones. Missing env files are ignored.
//
// Credentials are not validated here, the clients fail on construction if they are missing.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return Config{}, errs.Wrapf(err, "failed to load env file %v", f)
		}
	}
	c := Default()
	c.OpenAIAPIKey = os.Getenv(EnvOpenAIAPIKey)
	c.TavilyAPIKey = os.Getenv(EnvTavilyAPIKey)
	if v := os.Getenv(EnvOpenAIBaseURL); v != "" {
		c.OpenAIBaseURL = v
	}
	return c, nil
}

// PromptFile overrides the built-in prompts.
//
//	system_prompt: |
//	  You are ...
type PromptFile struct {
	SystemPrompt string `yaml:"system_prompt"`
}

func LoadPromptFile(path string) (PromptFile, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return PromptFile{}, errs.Wrapf(err, "failed to read prompt file %v", path)
	}
	var p PromptFile
	if err := yaml.Unmarshal(buf, &p); err != nil {
		return PromptFile{}, errs.Wrapf(err, "failed to parse prompt file %v", path)
	}
	return p, nil
}

// Apply prompt file, empty prompts are ignored.
func (c *Config) ApplyPromptFile(p PromptFile) {
	if s := strings.TrimSpace(p.SystemPrompt); s != "" {
		c.Prompt = s
	}
}
