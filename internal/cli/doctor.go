package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/ppiankov/threadpull/internal/cache"
	"github.com/ppiankov/threadpull/internal/config"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and cache health",
	RunE:  doctorAction,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func doctorAction(_ *cobra.Command, _ []string) error {
	ok := true

	// Config dir
	if info, err := os.Stat(configDir); err != nil || !info.IsDir() {
		printInfo("config directory %s not found (defaults in use; run threadpull init)", configDir)
	} else {
		printCheck(true, "config directory %s", configDir)
	}

	// Config file
	cfg, err := config.Load(configDir)
	if err != nil {
		printCheck(false, "config: %v", err)
		return fmt.Errorf("some checks failed")
	}
	printCheck(true, "config (backend %s, trust posts older than %d days, pause %s)",
		cfg.Cache.Backend, cfg.Cache.Days, cfg.HTTP.Pause.Duration)

	// Cache root writable
	if err := os.MkdirAll(cfg.Cache.Dir, 0o755); err != nil {
		printCheck(false, "cache directory %s: %v", cfg.Cache.Dir, err)
		ok = false
	} else if f, err := os.CreateTemp(cfg.Cache.Dir, ".doctor-*"); err != nil {
		printCheck(false, "cache directory %s not writable: %v", cfg.Cache.Dir, err)
		ok = false
	} else {
		_ = f.Close()
		_ = os.Remove(f.Name())
		printCheck(true, "cache directory %s", cfg.Cache.Dir)
	}

	// Backend opens
	if ok {
		if err := cache.Check(cfg.Cache.Backend, cfg.Cache.Dir); err != nil {
			printCheck(false, "cache backend %s: %v", cfg.Cache.Backend, err)
			ok = false
		} else {
			printCheck(true, "cache backend %s", cfg.Cache.Backend)
		}
	}

	// Cache usage (info-level)
	if size, files, err := dirUsage(cfg.Cache.Dir); err == nil && files > 0 {
		printInfo("cache holds %d files, %s", files, humanize.Bytes(size))
	}

	if !ok {
		return fmt.Errorf("some checks failed")
	}
	fmt.Println("\nAll checks passed.")
	return nil
}

func dirUsage(root string) (uint64, int, error) {
	var size uint64
	files := 0
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		size += uint64(info.Size())
		files++
		return nil
	})
	return size, files, err
}

func printCheck(pass bool, format string, args ...any) {
	mark := "FAIL"
	if pass {
		mark = " OK "
	}
	fmt.Printf("[%s] %s\n", mark, fmt.Sprintf(format, args...))
}

func printInfo(format string, args ...any) {
	fmt.Printf("[INFO] %s\n", fmt.Sprintf(format, args...))
}
