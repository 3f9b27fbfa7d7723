package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	PrimaryDeepL = "deepl"
	PrimaryAzure = "azure"

	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 1200
)

// Config carries every credential and preference the handler needs. It is
// built once at entry and passed down explicitly.
type Config struct {
	ListenAddr string
	Verbose    bool

	CompletionAPIKey  string
	CompletionBaseURL string
	Organization      string
	Project           string
	Model             string
	Temperature       float64
	MaxTokens         int

	TranslatePrimary string

	DeepLKey      string
	DeepLEndpoint string
	DeepLGlossary []string

	AzureKey      string
	AzureRegion   string
	AzureEndpoint string

	FreeTierTimeout time.Duration

	SearchAPIKey   string
	SearchEndpoint string

	FetchUserAgent string
}

// Default returns a Config with no credentials.
func Default() Config {
	return Config{
		ListenAddr:        ":8100",
		CompletionBaseURL: DefaultBaseURL,
		Model:             DefaultModel,
		Temperature:       DefaultTemperature,
		MaxTokens:         DefaultMaxTokens,
		FreeTierTimeout:   8 * time.Second,
		FetchUserAgent:    "FirmSiteCopilot/1.0 (+content fetcher for the site assistant)",
	}
}

// HasDirectTranslator reports whether translation can run without the
// completion endpoint.
func (c Config) HasDirectTranslator() bool {
	switch c.Primary() {
	case PrimaryDeepL, PrimaryAzure:
		return true
	}
	return c.DeepLKey != "" || c.AzureKey != ""
}

// Primary returns the normalized translation preference, or "" for default.
func (c Config) Primary() string {
	p := strings.ToLower(strings.TrimSpace(c.TranslatePrimary))
	switch p {
	case PrimaryDeepL, PrimaryAzure:
		return p
	}
	return ""
}

// Redacted returns key with all but the last three characters masked.
func Redacted(key string) string {
	if len(key) > 3 {
		return strings.Repeat("*", len(key)-3) + key[len(key)-3:]
	}
	return key
}

func (c Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "listen: %s\n", c.ListenAddr)
	fmt.Fprintf(&b, "openaikey: %s\n", Redacted(c.CompletionAPIKey))
	fmt.Fprintf(&b, "openaiurl: %s\n", c.CompletionBaseURL)
	fmt.Fprintf(&b, "model: %s\n", c.Model)
	fmt.Fprintf(&b, "temperature: %f\n", c.Temperature)
	fmt.Fprintf(&b, "maxtokens: %d\n", c.MaxTokens)
	fmt.Fprintf(&b, "translateprimary: %s\n", c.Primary())
	fmt.Fprintf(&b, "deeplkey: %s\n", Redacted(c.DeepLKey))
	fmt.Fprintf(&b, "deeplglossary: %v\n", c.DeepLGlossary)
	fmt.Fprintf(&b, "azurekey: %s\n", Redacted(c.AzureKey))
	fmt.Fprintf(&b, "azureregion: %s\n", c.AzureRegion)
	fmt.Fprintf(&b, "searchkey: %s\n", Redacted(c.SearchAPIKey))
	return b.String()
}

// LoadDotEnv loads .env.local and .env if present. Variables already set in
// the process environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env.local", ".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// YamlSource implements cli.ValueSource for a key of a YAML config file.
type YamlSource struct {
	data map[string]any
	key  string
}

func (y *YamlSource) Lookup() (string, bool) {
	v, ok := y.data[y.key]
	if !ok || v == nil {
		return "", false
	}
	if slice, ok := v.([]any); ok {
		strs := make([]string, 0, len(slice))
		for _, item := range slice {
			strs = append(strs, fmt.Sprintf("%v", item))
		}
		return strings.Join(strs, ","), true
	}
	return fmt.Sprintf("%v", v), true
}

func (y *YamlSource) String() string   { return "yaml key " + y.key }
func (y *YamlSource) GoString() string { return "&YamlSource{key:" + y.key + "}" }

// ReadYAML decodes a flat YAML config file. A missing path returns nil.
func ReadYAML(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	data := map[string]any{}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return data, nil
}

// Flags returns the command line flags. Each flag resolves env var, then
// YAML key, then its default.
func Flags(yamlData map[string]any) []cli.Flag {
	src := func(key string, env ...string) cli.ValueSourceChain {
		chain := cli.ValueSourceChain{}
		for _, e := range env {
			chain.Chain = append(chain.Chain, cli.EnvVar(e))
		}
		if yamlData != nil {
			chain.Chain = append(chain.Chain, &YamlSource{data: yamlData, key: key})
		}
		return chain
	}
	def := Default()

	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML configuration file", Sources: cli.EnvVars("COPILOT_CONFIG")},
		&cli.StringFlag{Name: "listen", Aliases: []string{"l"}, Value: def.ListenAddr, Usage: "address the HTTP server listens on", Sources: src("listen", "COPILOT_LISTEN")},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"V"}, Usage: "enable debug logging", Sources: src("verbose", "COPILOT_VERBOSE")},

		// Completion endpoint
		&cli.StringFlag{Name: "openaikey", Usage: "chat completion API key", Sources: src("openaikey", "OPENAI_API_KEY")},
		&cli.StringFlag{Name: "openaiurl", Value: def.CompletionBaseURL, Usage: "chat completion API base URL", Sources: src("openaiurl", "OPENAI_BASE_URL")},
		&cli.StringFlag{Name: "openaiorg", Usage: "organization header sent with completion requests", Sources: src("openaiorg", "OPENAI_ORG_ID", "OPENAI_ORGANIZATION")},
		&cli.StringFlag{Name: "openaiproject", Usage: "project header sent with completion requests", Sources: src("openaiproject", "OPENAI_PROJECT_ID", "OPENAI_PROJECT")},
		&cli.StringFlag{Name: "model", Value: def.Model, Usage: "default completion model", Sources: src("model", "OPENAI_MODEL")},
		&cli.FloatFlag{Name: "temperature", Value: def.Temperature, Usage: "default completion temperature", Sources: src("temperature", "OPENAI_TEMPERATURE")},
		&cli.IntFlag{Name: "maxtokens", Value: def.MaxTokens, Usage: "default completion max tokens", Sources: src("maxtokens", "OPENAI_MAX_TOKENS")},

		// Translation
		&cli.StringFlag{Name: "translateprimary", Usage: "preferred translation provider: deepl, azure or empty", Sources: src("translateprimary", "TRANSLATE_PRIMARY")},
		&cli.StringFlag{Name: "deeplkey", Usage: "DeepL API key", Sources: src("deeplkey", "DEEPL_API_KEY")},
		&cli.StringFlag{Name: "deeplurl", Usage: "DeepL API base URL override", Sources: src("deeplurl", "DEEPL_API_URL")},
		&cli.StringSliceFlag{Name: "glossary", Usage: "comma-separated terms DeepL must leave untouched", Sources: src("glossary", "DEEPL_GLOSSARY")},
		&cli.StringFlag{Name: "azurekey", Usage: "Azure Translator key", Sources: src("azurekey", "AZURE_TRANSLATOR_KEY")},
		&cli.StringFlag{Name: "azureregion", Usage: "Azure Translator region", Sources: src("azureregion", "AZURE_TRANSLATOR_REGION")},
		&cli.StringFlag{Name: "azureurl", Usage: "Azure Translator endpoint", Sources: src("azureurl", "AZURE_TRANSLATOR_ENDPOINT")},
		&cli.DurationFlag{Name: "freetimeout", Value: def.FreeTierTimeout, Usage: "timeout for each free-tier translation call", Sources: src("freetimeout", "FREE_TRANSLATE_TIMEOUT")},

		// Search
		&cli.StringFlag{Name: "searchkey", Usage: "web search API key", Sources: src("searchkey", "SEARCH_API_KEY", "BRAVE_SEARCH_API_KEY")},
		&cli.StringFlag{Name: "searchurl", Usage: "web search API endpoint override", Sources: src("searchurl", "SEARCH_API_URL")},
	}
}

// FromCommand builds a Config from parsed flags.
func FromCommand(c *cli.Command) Config {
	cfg := Default()
	cfg.ListenAddr = c.String("listen")
	cfg.Verbose = c.Bool("verbose")

	cfg.CompletionAPIKey = strings.TrimSpace(c.String("openaikey"))
	if v := strings.TrimSpace(c.String("openaiurl")); v != "" {
		cfg.CompletionBaseURL = strings.TrimRight(v, "/")
	}
	cfg.Organization = c.String("openaiorg")
	cfg.Project = c.String("openaiproject")
	if v := c.String("model"); v != "" {
		cfg.Model = v
	}
	cfg.Temperature = c.Float("temperature")
	if v := c.Int("maxtokens"); v > 0 {
		cfg.MaxTokens = v
	}

	cfg.TranslatePrimary = c.String("translateprimary")
	cfg.DeepLKey = strings.TrimSpace(c.String("deeplkey"))
	cfg.DeepLEndpoint = c.String("deeplurl")
	cfg.DeepLGlossary = normalizeTerms(c.StringSlice("glossary"))
	cfg.AzureKey = strings.TrimSpace(c.String("azurekey"))
	cfg.AzureRegion = c.String("azureregion")
	cfg.AzureEndpoint = c.String("azureurl")
	if d := c.Duration("freetimeout"); d > 0 {
		cfg.FreeTierTimeout = d
	}

	cfg.SearchAPIKey = strings.TrimSpace(c.String("searchkey"))
	cfg.SearchEndpoint = c.String("searchurl")
	return cfg
}

// ConfigPath finds --config/-c in args or COPILOT_CONFIG before flags are
// parsed, so YAML values can feed flag sources.
func ConfigPath(args []string) string {
	if v := os.Getenv("COPILOT_CONFIG"); v != "" {
		return v
	}
	for i, arg := range args {
		if arg == "--config" || arg == "-c" {
			if i+1 < len(args) {
				return args[i+1]
			}
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	return ""
}

func normalizeTerms(values []string) []string {
	out := make([]string, 0, len(values))
	seen := map[string]bool{}
	for _, v := range values {
		for _, term := range strings.Split(v, ",") {
			term = strings.TrimSpace(term)
			key := strings.ToLower(term)
			if term == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, term)
		}
	}
	return out
}
