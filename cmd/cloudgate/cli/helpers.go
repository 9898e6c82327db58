package cli

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/cloudgate-project/cloudgate/internal/audit"
	"github.com/cloudgate-project/cloudgate/internal/catalog"
	"github.com/cloudgate-project/cloudgate/internal/config"
	"github.com/cloudgate-project/cloudgate/internal/db"
	"github.com/cloudgate-project/cloudgate/internal/gateway"
	"github.com/cloudgate-project/cloudgate/internal/logging"
)

// loadGateway wires up a gateway from the on-disk config. The returned
// cleanup closes the audit database.
func loadGateway() (*gateway.Gateway, config.GlobalConfig, func(), error) {
	cfg, err := config.LoadGlobalConfig()
	if err != nil {
		return nil, cfg, nil, fmt.Errorf("loading config: %w", err)
	}

	cat, err := catalog.Load()
	if err != nil {
		return nil, cfg, nil, fmt.Errorf("loading catalog: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, "")

	auditDB, auditLog, err := openAudit(cfg, logger)
	if err != nil {
		return nil, cfg, nil, err
	}
	cleanup := func() {
		if auditDB != nil {
			auditDB.Close()
		}
	}

	return gateway.New(cat, cfg, logger, auditLog), cfg, cleanup, nil
}

func openAudit(cfg config.GlobalConfig, logger zerolog.Logger) (*sql.DB, *audit.Logger, error) {
	if cfg.AuditDBPath == "" {
		return nil, nil, nil
	}
	auditDB, err := db.OpenAuditDB(cfg.AuditDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening audit db: %w", err)
	}
	auditLog, err := audit.NewLogger(auditDB)
	if err != nil {
		auditDB.Close()
		return nil, nil, fmt.Errorf("initializing audit log: %w", err)
	}
	logger.Debug().Str("path", cfg.AuditDBPath).Msg("audit log open")
	return auditDB, auditLog, nil
}

// credentialsFromEnv reads the standard credential variables.
func credentialsFromEnv() gateway.Credentials {
	return gateway.Credentials{
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
	}
}

func printJSON(v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
