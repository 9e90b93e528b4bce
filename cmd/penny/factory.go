package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/penny/internal/config"
	"github.com/ShayCichocki/penny/internal/oracle"
	"github.com/ShayCichocki/penny/internal/orchestrator"
	"github.com/ShayCichocki/penny/internal/state"
)

// buildOracle constructs the reasoning client from config. modelOverride,
// when non-empty, wins over the configured model.
func buildOracle(cfg *config.Config, modelOverride string) (*oracle.Client, error) {
	model := cfg.Anthropic.Model
	if modelOverride != "" {
		model = modelOverride
	}

	clientCfg := oracle.ClientConfig{
		Model: anthropic.Model(model),
	}

	if cfg.Bedrock.Enabled {
		clientCfg.UseAWSBedrock = true
		clientCfg.AWSRegion = cfg.Bedrock.Region
		clientCfg.AWSProfile = cfg.Bedrock.Profile
	} else {
		apiKey, err := config.GetAPIKey(cfg)
		if err != nil {
			return nil, err
		}
		clientCfg.APIKey = apiKey
	}

	client, err := oracle.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create oracle client: %w", err)
	}
	return client, nil
}

// openStore opens and migrates the run database, honoring a configured
// path override. The caller owns the returned DB.
func openStore(cfg *config.Config) (*state.RunStore, *state.DB, error) {
	var (
		db  *state.DB
		err error
	)
	switch {
	case cfg.Database.Path != "":
		db, err = state.Open(cfg.Database.Path)
	case projectRoot() != "":
		db, err = state.Open(state.ProjectDBPath(projectRoot()))
	default:
		db, err = state.OpenGlobal()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open run database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate run database: %w", err)
	}
	return state.NewRunStore(db), db, nil
}

// projectRoot returns the working directory when it already carries a
// .penny directory, so runs in an initialized project stay project-local.
func projectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	if info, err := os.Stat(filepath.Join(dir, ".penny")); err == nil && info.IsDir() {
		return dir
	}
	return ""
}

// buildLogger returns a file-backed debug logger when PENNY_DEBUG is set,
// otherwise a no-op logger.
func buildLogger() *orchestrator.DebugLogger {
	if os.Getenv("PENNY_DEBUG") == "" {
		return orchestrator.NopLogger()
	}
	dir, err := os.Getwd()
	if err != nil {
		return orchestrator.NopLogger()
	}
	return orchestrator.NewDebugLoggerForDir(dir)
}
