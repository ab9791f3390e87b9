package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/threadpull/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config directory with an example config",
	RunE:  initAction,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func initAction(_ *cobra.Command, _ []string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	configPath := filepath.Join(configDir, config.DefaultConfigFile)
	wrote, err := writeIfNotExists(configPath, []byte(exampleConfig))
	if err != nil {
		return err
	}

	if !wrote {
		fmt.Printf("Config directory %s already initialized.\n", configDir)
	} else {
		fmt.Printf("Initialized %s.\n", configDir)
	}
	return nil
}

// writeIfNotExists writes data to path if the file does not exist.
// Returns true if the file was created.
func writeIfNotExists(path string, data []byte) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("  exists: %s\n", path)
		return false, nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("  created: %s\n", path)
	return true, nil
}

const exampleConfig = `# threadpull configuration

cache:
  # dir: ~/.cache/threadpull     # or set THREADPULL_CACHE_DIR
  backend: file                  # file | sqlite | bolt
  days: 4                        # posts created more than this many days ago are never re-fetched

http:
  timeout: 30s
  user_agent: threadpull/1.0     # or set THREADPULL_USER_AGENT
  pause: 200ms                   # delay between requests to the forum

output:
  format: markdown               # markdown | json
  redact:
    enabled: false
    patterns: []
    # - "ghp_[A-Za-z0-9]{36}"
`
