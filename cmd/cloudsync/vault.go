package main

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"
)

func vaultCmd() *cli.Command {
	return &cli.Command{
		Name:  "vault",
		Usage: "manage the encrypted secrets vault",
		Subcommands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "create an empty vault",
				Action: vaultInitAction,
			},
			{
				Name:      "get",
				Usage:     "print one vault entry",
				ArgsUsage: "<key>",
				Action:    vaultGetAction,
			},
			{
				Name:      "set",
				Usage:     "set one vault entry (value parsed as JSON, else string)",
				ArgsUsage: "<key> <value>",
				Action:    vaultSetAction,
			},
		},
	}
}

func vaultInitAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	v := openVault(cfg)
	if v.Exists() {
		return fmt.Errorf("vault already exists at %s", v.Path())
	}
	if err := v.Store(map[string]any{}, c.String("passphrase")); err != nil {
		return err
	}
	fmt.Printf("Created vault at %s\n", v.Path())
	return nil
}

func vaultGetAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: cloudsync vault get <key>")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	val, err := openVault(cfg).Get(
		c.Args().Get(0), nil, c.String("passphrase"),
	)
	if err != nil {
		return err
	}
	if val == nil {
		return fmt.Errorf("no such key: %s", c.Args().Get(0))
	}
	out, err := json.Marshal(val)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func vaultSetAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: cloudsync vault set <key> <value>")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	key := c.Args().Get(0)
	raw := c.Args().Get(1)

	// structured values (service-account JSON) may be passed verbatim
	var val any
	if err := json.Unmarshal([]byte(raw), &val); err != nil {
		val = raw
	}
	if err := openVault(cfg).Set(key, val, c.String("passphrase")); err != nil {
		return err
	}
	fmt.Printf("Set %s\n", key)
	return nil
}
