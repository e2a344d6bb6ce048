package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/beyondbrewing/brewery-kv/config"
	"github.com/beyondbrewing/brewery-kv/db"
	"github.com/beyondbrewing/brewery-kv/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	errNotFound = errors.New("key not found")
	errRejected = errors.New("write rejected by the store")
)

func newRootCommand(out io.Writer) *cobra.Command {
	var configDir string

	root := &cobra.Command{
		Use:          config.APP_NAME,
		Short:        "Prefixed key-value access to an embedded store",
		Version:      config.APP_VERSION,
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory holding the .env file")
	config.RegisterFlags(root.PersistentFlags())

	run := func(fn func(*db.Database, []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, configDir, func(store *db.Database) error {
				return fn(store, args)
			})
		}
	}

	var def string
	get := &cobra.Command{
		Use:   "get KEY",
		Short: "Print the value stored under KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var fallback []byte
			if cmd.Flags().Changed("default") {
				fallback = []byte(def)
			}
			return withStore(cmd, configDir, func(store *db.Database) error {
				v := store.Get(args[0], fallback)
				if v == nil {
					return fmt.Errorf("%w: %s", errNotFound, args[0])
				}
				fmt.Fprintln(out, string(v))
				return nil
			})
		},
	}
	get.Flags().StringVar(&def, "default", "", "value printed when KEY does not exist")

	put := &cobra.Command{
		Use:   "put KEY VALUE",
		Short: "Store VALUE under KEY, replacing any existing value",
		Args:  cobra.ExactArgs(2),
		RunE: run(func(store *db.Database, args []string) error {
			if !store.Put(args[0], []byte(args[1])) {
				return errRejected
			}
			return nil
		}),
	}

	has := &cobra.Command{
		Use:   "has KEY",
		Short: "Report whether KEY exists",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(store *db.Database, args []string) error {
			fmt.Fprintln(out, store.Has(args[0]))
			return nil
		}),
	}

	forget := &cobra.Command{
		Use:   "forget KEY",
		Short: "Delete KEY and report whether anything was deleted",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(store *db.Database, args []string) error {
			fmt.Fprintln(out, store.Forget(args[0]))
			return nil
		}),
	}

	many := &cobra.Command{
		Use:   "many KEY...",
		Short: "Print KEY=VALUE for each key, in argument order",
		Args:  cobra.MinimumNArgs(1),
		RunE: run(func(store *db.Database, args []string) error {
			values := store.Many(args...)
			for _, k := range args {
				if v := values[k]; v != nil {
					fmt.Fprintf(out, "%s=%s\n", k, v)
				} else {
					fmt.Fprintf(out, "%s (missing)\n", k)
				}
			}
			return nil
		}),
	}

	flush := &cobra.Command{
		Use:   "flush",
		Short: "Delete every key in the store",
		Args:  cobra.NoArgs,
		RunE: run(func(store *db.Database, _ []string) error {
			ok, err := store.Flush()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, ok)
			return nil
		}),
	}

	root.AddCommand(get, put, has, forget, many, flush)
	return root
}

// withStore opens the configured store, runs fn and always closes the
// store before returning.
func withStore(cmd *cobra.Command, configDir string, fn func(*db.Database) error) (err error) {
	settings, err := config.Load(configDir, cmd.Flags())
	if err != nil {
		return err
	}

	driver, err := db.DriverByName(settings.Engine)
	if err != nil {
		return err
	}

	store, err := db.New(settings.Path,
		db.WithMode(db.Mode(settings.Mode)),
		db.WithSize(settings.Size),
		db.WithPrefix(settings.Prefix),
		db.WithDriver(driver),
		db.WithLogger(logger.Default().With("command", cmd.Name())),
	)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return fn(store)
}
