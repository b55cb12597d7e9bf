// Command admin provides account maintenance for Warbler operators.
package main

import (
	"fmt"
	"os"

	"warbler/internal/bootstrap"
	"warbler/internal/config"
	"warbler/internal/database"
)

func main() {
	var rt *runtime
	open := func() (*runtime, error) {
		cfg, err := config.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		// Same Redis as the server so deleted or reset users drop out of its cache.
		db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{})
		if err != nil {
			return nil, err
		}
		rt = &runtime{db: db, rdb: rdb, bcryptCost: cfg.BcryptCost}
		return rt, nil
	}

	err := newRootCmd(open).Execute()
	if rt != nil {
		if rt.rdb != nil {
			_ = rt.rdb.Close()
		}
		_ = database.Close(rt.db)
	}
	if err != nil {
		os.Exit(1)
	}
}
