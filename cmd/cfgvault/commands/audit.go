package commands

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/rlabuda/cfgvault/internal/configstore"
)

func auditCommand() *cli.Command {
	return &cli.Command{
		Name:  "audit",
		Usage: "scan every service document and report secrets past the rotation threshold",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "all",
				Usage: "list every secret, not only those due for rotation",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, store, err := setup(cmd)
			if err != nil {
				return err
			}

			services, err := store.Services()
			if err != nil {
				return err
			}

			// Read-only fan-out; the store performs no writes here, so
			// concurrent loads cannot race a rename.
			type serviceSecrets struct {
				service string
				secrets []configstore.SecretInfo
			}
			var (
				mu      sync.Mutex
				results []serviceSecrets
			)
			g, gCtx := errgroup.WithContext(ctx)
			g.SetLimit(4)
			for _, service := range services {
				g.Go(func() error {
					secrets := store.Secrets(gCtx, service)
					mu.Lock()
					results = append(results, serviceSecrets{service: service, secrets: secrets})
					mu.Unlock()
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			sort.Slice(results, func(i, j int) bool { return results[i].service < results[j].service })

			threshold := store.RotationWarnDays()
			due := 0
			for _, r := range results {
				for _, secret := range r.secrets {
					stale := secret.HasMetadata && secret.AgeDays > threshold
					if stale {
						due++
					}
					if !stale && !cmd.Bool("all") {
						continue
					}
					age := "age unknown"
					if secret.HasMetadata {
						age = fmt.Sprintf("%d days old", secret.AgeDays)
					}
					marker := " "
					if stale {
						marker = "!"
					}
					fmt.Printf("%s %s.%s (%s)\n", marker, r.service, secret.Path, age)
				}
			}
			if due > 0 {
				fmt.Printf("%d secret(s) past the %d-day rotation threshold\n", due, threshold)
			}
			return nil
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:      "migrate",
		Usage:     "move legacy plaintext secrets into the vault",
		ArgsUsage: "<service>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() < 1 {
				return fmt.Errorf("usage: migrate <service>")
			}
			service := cmd.Args().Get(0)

			_, store, err := setup(cmd)
			if err != nil {
				return err
			}

			migrated, err := store.Migrate(ctx, service)
			if err != nil {
				return err
			}
			if migrated {
				fmt.Printf("migrated %s\n", service)
			} else {
				fmt.Printf("%s has no plaintext secrets\n", service)
			}
			return nil
		},
	}
}

func backupsCommand() *cli.Command {
	return &cli.Command{
		Name:      "backups",
		Usage:     "list retained backup snapshots for a service, newest first",
		ArgsUsage: "<service>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() < 1 {
				return fmt.Errorf("usage: backups <service>")
			}
			service := cmd.Args().Get(0)

			_, store, err := setup(cmd)
			if err != nil {
				return err
			}

			backups, err := store.Backups(service)
			if err != nil {
				return err
			}
			for _, name := range backups {
				fmt.Println(name)
			}
			return nil
		},
	}
}
