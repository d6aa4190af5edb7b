package main

import (
	"context"
	"fmt"
	"path"

	"github.com/medalizaidi/nifi-jar-automation-option2/internal/cicd"
	"github.com/medalizaidi/nifi-jar-automation-option2/internal/config"
	"github.com/medalizaidi/nifi-jar-automation-option2/internal/nifi"
	"github.com/medalizaidi/nifi-jar-automation-option2/internal/vault"
	"github.com/medalizaidi/nifi-jar-automation-option2/pkg/logging"
)

// app bundles the wiring every command needs: config, logger, and
// constructors for the server client and the snapshot vault.
type app struct {
	cfg    config.Config
	logger *logging.Logger
}

func newApp() (*app, error) {
	cfgPath := configPath
	if cfgPath == "" {
		cfgPath = config.DefaultPath()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return &app{cfg: cfg, logger: logging.New(cfg.LoggerConfig("nifictl"))}, nil
}

func (a *app) close() {
	_ = a.logger.Close()
}

func (a *app) nifiClient() *nifi.HTTPClient {
	return nifi.NewHTTPClient(nifi.Options{
		BaseURL:     a.cfg.NiFi.Host,
		Username:    a.cfg.NiFi.Username,
		Password:    a.cfg.NiFi.Password,
		InsecureTLS: a.cfg.NiFi.InsecureTLS,
		Logger:      a.logger,
	})
}

// openVault builds the snapshot vault: GCS when a bucket is
// configured, the local filesystem otherwise. The returned cleanup
// releases the store.
func (a *app) openVault(ctx context.Context) (*vault.Vault, func(), error) {
	if a.cfg.Backup.Bucket != "" {
		store, err := vault.NewGCSStore(ctx, a.cfg.Backup.Bucket, a.cfg.Backup.ServiceAccountKey)
		if err != nil {
			return nil, nil, err
		}
		return vault.New(store, a.cfg.Backup.Prefix, a.logger),
			func() { _ = store.Close() }, nil
	}

	dir := a.cfg.Backup.LocalDir
	if dir == "" {
		dir = "backups"
	}
	store, err := vault.NewFSStore(dir)
	if err != nil {
		return nil, nil, err
	}
	return vault.New(store, a.cfg.Backup.Prefix, a.logger), func() {}, nil
}

// resolveSnapshotKey turns the --key / --date,--time / --latest flags
// into a snapshot folder key.
func (a *app) resolveSnapshotKey(ctx context.Context, v *vault.Vault) (string, error) {
	switch {
	case snapshotKey != "":
		return snapshotKey, nil
	case snapshotDate != "" || snapshotTime != "":
		if err := cicd.ValidateDate(snapshotDate); err != nil {
			return "", err
		}
		if err := cicd.ValidateTime(snapshotTime); err != nil {
			return "", err
		}
		return path.Join(a.cfg.Backup.Prefix, snapshotDate, snapshotTime), nil
	case useLatest:
		latest, err := v.Latest(ctx)
		if err != nil {
			return "", err
		}
		return latest.Key, nil
	default:
		return "", fmt.Errorf("choose a snapshot: --key, --date/--time, or --latest")
	}
}
