package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/rlabuda/cfgvault/internal/document"
)

func getCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "print the resolved value of one field",
		ArgsUsage: "<service> <key.path>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			service, keyPath, err := serviceAndPath(cmd)
			if err != nil {
				return err
			}

			_, store, err := setup(cmd)
			if err != nil {
				return err
			}

			data, err := store.Load(ctx, service)
			if err != nil {
				return err
			}
			value, ok := document.Lookup(data, keyPath)
			if !ok {
				return fmt.Errorf("no value at %s.%s", service, keyPath)
			}
			return printValue(value)
		},
	}
}

func setCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "set a field and save; prompts without echo when the value is omitted",
		ArgsUsage: "<service> <key.path> [value]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			service, keyPath, err := serviceAndPath(cmd)
			if err != nil {
				return err
			}

			_, store, err := setup(cmd)
			if err != nil {
				return err
			}

			value := cmd.Args().Get(2)
			if cmd.Args().Len() < 3 {
				if value, err = promptSecret(keyPath); err != nil {
					return err
				}
			}

			data, err := store.Load(ctx, service)
			if err != nil {
				return err
			}
			if !document.Set(data, keyPath, value) {
				return fmt.Errorf("cannot set %s.%s: intermediate field is not an object", service, keyPath)
			}
			return store.Save(ctx, service, data)
		},
	}
}

func unsetCommand() *cli.Command {
	return &cli.Command{
		Name:      "unset",
		Usage:     "delete a field (and its metadata) and save",
		ArgsUsage: "<service> <key.path>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			service, keyPath, err := serviceAndPath(cmd)
			if err != nil {
				return err
			}

			_, store, err := setup(cmd)
			if err != nil {
				return err
			}

			data, err := store.Load(ctx, service)
			if err != nil {
				return err
			}
			container, key, ok := document.Container(data, keyPath)
			if !ok {
				return fmt.Errorf("no value at %s.%s", service, keyPath)
			}
			if _, exists := container[key]; !exists {
				return fmt.Errorf("no value at %s.%s", service, keyPath)
			}
			delete(container, key)
			delete(container, document.MetaKey(key))
			return store.Save(ctx, service, data)
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "print the resolved document with secret values masked",
		ArgsUsage: "<service>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "reveal",
				Usage: "print secret values in full",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() < 1 {
				return fmt.Errorf("usage: show <service>")
			}
			service := cmd.Args().Get(0)

			cfg, store, err := setup(cmd)
			if err != nil {
				return err
			}

			data, err := store.Load(ctx, service)
			if err != nil {
				return err
			}
			if !cmd.Bool("reveal") {
				data, _ = maskSensitive(data, cfg.Store.SensitiveKeys).(map[string]any)
			}

			out, err := json.MarshalIndent(data, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func ageCommand() *cli.Command {
	return &cli.Command{
		Name:      "age",
		Usage:     "print the age in days of a secret's created_at timestamp",
		ArgsUsage: "<service> <key.path>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			service, keyPath, err := serviceAndPath(cmd)
			if err != nil {
				return err
			}

			_, store, err := setup(cmd)
			if err != nil {
				return err
			}

			days, ok := store.SecretAge(ctx, service, keyPath)
			if !ok {
				return fmt.Errorf("no age metadata for %s.%s", service, keyPath)
			}
			fmt.Println(days)
			return nil
		},
	}
}

func serviceAndPath(cmd *cli.Command) (string, string, error) {
	if cmd.Args().Len() < 2 {
		return "", "", fmt.Errorf("usage: %s <service> <key.path>", cmd.Name)
	}
	return cmd.Args().Get(0), cmd.Args().Get(1), nil
}

func printValue(value any) error {
	if s, ok := value.(string); ok {
		fmt.Println(s)
		return nil
	}
	out, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// promptSecret reads a value from the terminal without echoing it, so
// secrets stay out of shell history and scrollback.
func promptSecret(keyPath string) (string, error) {
	fmt.Fprintf(os.Stderr, "Value for %s: ", keyPath)
	value, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading value: %w", err)
	}
	return string(value), nil
}

// maskSensitive replaces string values under sensitive field names with a
// masked rendering that keeps the last 4 characters.
func maskSensitive(tree any, sensitiveKeys []string) any {
	sensitive := make(map[string]struct{}, len(sensitiveKeys))
	for _, k := range sensitiveKeys {
		sensitive[k] = struct{}{}
	}
	return maskTree(tree, sensitive)
}

func maskTree(tree any, sensitive map[string]struct{}) any {
	switch node := tree.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, v := range node {
			if _, ok := sensitive[k]; ok {
				if s, isString := v.(string); isString {
					out[k] = mask(s)
					continue
				}
			}
			out[k] = maskTree(v, sensitive)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, item := range node {
			out[i] = maskTree(item, sensitive)
		}
		return out
	default:
		return tree
	}
}

// mask keeps the last 4 characters of a secret.
func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
