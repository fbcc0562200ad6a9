package cli

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/0xknstntn/news-checker/internal/model"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage newscheck configuration",
	Long: `Manage newscheck configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (NEWSCHECK_*, e.g. NEWSCHECK_QUEUE_ADDR)
3. Config file (~/.newscheck/config.yaml)
4. Defaults

Credentials are read from OPENAI_API_KEY, ANTHROPIC_API_KEY, OLLAMA_BASE_URL,
SERPAPI_API_KEY, TELEGRAM_BOT_TOKEN and REDIS_PASSWORD, and from a .env file
in the working directory.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Display the configuration after merging defaults, config file, environment and flags. Secrets are masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		if err := writeConfigYAML(cmd.OutOrStdout(), redact(*cfg)); err != nil {
			return err
		}

		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "\n⚠️  Configuration is not valid:\n%v\n", err)
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.newscheck/config.yaml with all available options.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		configDir, err := defaultConfigDir()
		if err != nil {
			return err
		}
		configPath := configDir + "/config.yaml"

		// Check if config already exists
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists: %s\nUse 'newscheck config show' to view it, or delete it first to recreate", configPath)
		}

		if err := os.MkdirAll(configDir, 0o755); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}

		f, err := os.Create(configPath)
		if err != nil {
			return fmt.Errorf("error creating config file: %w", err)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close config file: %w", closeErr)
			}
		}()

		header := `# newscheck configuration file
#
# Configuration hierarchy (highest to lowest priority):
#   1. CLI flags
#   2. Environment variables (NEWSCHECK_*)
#   3. This config file
#   4. Built-in defaults

`
		if _, err := io.WriteString(f, header); err != nil {
			return fmt.Errorf("error writing config: %w", err)
		}
		if err := writeConfigYAML(f, *model.DefaultConfig()); err != nil {
			return err
		}

		footer := `
# Credentials (recommended to use environment variables or .env instead):
#   export TELEGRAM_BOT_TOKEN=123456:ABC...
#   export SERPAPI_API_KEY=...
#   export OPENAI_API_KEY=sk-...
#   export ANTHROPIC_API_KEY=sk-ant-...
#   export OLLAMA_BASE_URL=http://localhost:11434
#   export REDIS_PASSWORD=...
`
		if _, err := io.WriteString(f, footer); err != nil {
			return fmt.Errorf("error writing config: %w", err)
		}

		fmt.Printf("✓ Created default configuration: %s\n", configPath)
		fmt.Printf("\nTo view the configuration:\n")
		fmt.Printf("  newscheck config show\n\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

// redact masks credentials before display
func redact(cfg model.Config) model.Config {
	mask := func(s *string) {
		if *s != "" {
			*s = "***"
		}
	}
	mask(&cfg.Queue.Password)
	mask(&cfg.Search.SerpAPIKey)
	mask(&cfg.LLM.OpenAIAPIKey)
	mask(&cfg.LLM.AnthropicAPIKey)
	mask(&cfg.Dispatch.TelegramToken)
	return cfg
}

func writeConfigYAML(w io.Writer, cfg model.Config) error {
	node, err := yamlNode(reflect.ValueOf(cfg))
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}
	return enc.Close()
}

var durationType = reflect.TypeOf(time.Duration(0))

// yamlNode renders v in struct field order with durations as "1m30s"
func yamlNode(v reflect.Value) (*yaml.Node, error) {
	if v.Type() == durationType {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: time.Duration(v.Int()).String()}, nil
	}
	if v.Kind() != reflect.Struct {
		var n yaml.Node
		if err := n.Encode(v.Interface()); err != nil {
			return nil, err
		}
		return &n, nil
	}

	mapping := &yaml.Node{Kind: yaml.MappingNode}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, opts, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			continue
		}
		if strings.Contains(opts, "omitempty") && v.Field(i).IsZero() {
			continue
		}
		value, err := yamlNode(v.Field(i))
		if err != nil {
			return nil, err
		}
		mapping.Content = append(mapping.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: name}, value)
	}
	return mapping, nil
}
