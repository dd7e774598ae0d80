package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func doctorCmd() *cli.Command {
	return &cli.Command{
		Name:   "doctor",
		Usage:  "verify vault and backend connectivity",
		Action: doctorAction,
	}
}

func doctorAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	fmt.Printf("Service: %s\n", cfg.Service)

	v := openVault(cfg)
	if !v.Exists() {
		fmt.Printf("  Vault: none (%s)\n", v.Path())
	} else if _, err := v.Unlock(c.String("passphrase")); err != nil {
		fmt.Printf("  Vault: FAIL (%v)\n", err)
		return fmt.Errorf("vault check failed")
	} else {
		fmt.Printf("  Vault: ok\n")
	}

	ctx, cancel := contextWithTimeout(c)
	defer cancel()

	client, err := newSyncClient(ctx, c, cfg)
	if err != nil {
		fmt.Printf("  Backend: FAIL (%v)\n", err)
		return fmt.Errorf("backend check failed")
	}

	p, ok := client.(prober)
	if !ok {
		fmt.Printf("  Backend: ok (no probe)\n")
		return nil
	}
	if err := p.Probe(ctx); err != nil {
		fmt.Printf("  Backend: FAIL (%v)\n", err)
		return fmt.Errorf("backend check failed")
	}
	fmt.Printf("  Backend: ok\n")
	return nil
}
