// The passkeep command is the CLI front end for the vault. It maps
// subcommands onto the vault session operations; all storage and crypto
// behavior lives in the library packages.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/apex/log"
	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gorm.io/gorm/logger"

	"github.com/passkeep/passkeep"
	"github.com/passkeep/passkeep/config"
	"github.com/passkeep/passkeep/vault"
)

var (
	// vaultDir overrides the vault directory
	vaultDir string
	// passwordFlag master password for non-interactive use
	passwordFlag string
	// verbose enable debug logging
	verbose bool
)

// loadConfig resolve the effective configuration, merging an optional
// config.yaml in the vault directory over the defaults
func loadConfig() (config.Config, error) {
	cfg, err := config.Default()
	if err != nil {
		return config.Config{}, err
	}
	if vaultDir != "" {
		cfg = config.DefaultAt(vaultDir)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(cfg.BaseDir)
	viper.SetDefault("base_dir", cfg.BaseDir)
	viper.SetDefault("vault_file", cfg.VaultFile)
	viper.SetDefault("salt_file", cfg.SaltFile)
	viper.SetDefault("kdf_iterations", cfg.KDFIterations)

	if err := viper.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return config.Config{}, fmt.Errorf("failed to read config file [%w]", err)
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		return config.Config{}, fmt.Errorf("failed to parse config file [%w]", err)
	}

	return cfg, nil
}

// promptMasterPassword read the master password without echo
func promptMasterPassword() (string, error) {
	if passwordFlag != "" {
		return passwordFlag, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("no terminal available, pass the master password via --password")
	}
	fmt.Fprint(os.Stderr, "Master password: ")
	bytePassword, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read master password [%w]", err)
	}
	return string(bytePassword), nil
}

// openSession unlock the vault and arrange for the working copy to be
// discarded on interrupt
func openSession(ctx context.Context) (vault.Session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	masterPassword, err := promptMasterPassword()
	if err != nil {
		return nil, err
	}

	dbLogLevel := logger.Silent
	if verbose {
		log.SetLevel(log.DebugLevel)
		dbLogLevel = logger.Error
	}

	session, err := passkeep.Open(
		ctx, cfg, vault.ClipboardFunc(clipboard.WriteAll), dbLogLevel, masterPassword,
	)
	if err != nil {
		return nil, err
	}

	// Erase the scratch working copy on interrupt as well
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-interrupts
		_ = session.Close()
		os.Exit(1)
	}()

	return session, nil
}

var rootCmd = &cobra.Command{
	Use:           "passkeep",
	Short:         "Local encrypted password vault",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var addCmd = &cobra.Command{
	Use:   "add <service>",
	Short: "Add a new password entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		notes, _ := cmd.Flags().GetString("notes")
		secret, _ := cmd.Flags().GetString("secret")

		if secret == "" {
			fmt.Fprint(os.Stderr, "Password to store: ")
			byteSecret, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return fmt.Errorf("failed to read password [%w]", err)
			}
			secret = string(byteSecret)
		}

		session, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = session.Close() }()

		id, err := session.Insert(cmd.Context(), args[0], secret, username, notes)
		if err != nil {
			return err
		}
		if username != "" {
			fmt.Printf("Added password for '%s' (%s) with ID %d\n", args[0], username, id)
		} else {
			fmt.Printf("Added password for '%s' with ID %d\n", args[0], id)
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all password entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		session, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = session.Close() }()

		records, err := session.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("The vault is empty")
			return nil
		}
		for _, record := range records {
			fmt.Printf("%4d  %-24s %-24s %s\n", record.ID, record.Service, record.Username, record.Notes)
		}
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <service>",
	Short: "Show entries for a service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = session.Close() }()

		records, err := session.GetByService(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return fmt.Errorf("no entries for service '%s'", args[0])
		}
		showSecret, _ := cmd.Flags().GetBool("show")
		for _, record := range records {
			if showSecret {
				fmt.Printf("%4d  %-24s %-24s %-24s %s\n",
					record.ID, record.Service, record.Username, record.Password, record.Notes)
			} else {
				fmt.Printf("%4d  %-24s %-24s %s\n",
					record.ID, record.Service, record.Username, record.Notes)
			}
		}
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <fragment>",
	Short: "Search entries by service name fragment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = session.Close() }()

		records, err := session.Search(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Printf("No entries matching '%s'\n", args[0])
			return nil
		}
		for _, record := range records {
			fmt.Printf("%4d  %-24s %-24s %s\n", record.ID, record.Service, record.Username, record.Notes)
		}
		return nil
	},
}

var copyCmd = &cobra.Command{
	Use:   "copy [service]",
	Short: "Copy a password to the clipboard",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		idFlag, _ := cmd.Flags().GetUint("id")

		var selector vault.Selector
		switch {
		case idFlag != 0:
			selector = vault.ByID(idFlag)
		case len(args) == 1 && username != "":
			selector = vault.ByServiceAndUsername(args[0], username)
		case len(args) == 1:
			selector = vault.ByService(args[0])
		default:
			return errors.New("give a service name or --id")
		}

		session, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = session.Close() }()

		confirmation, err := session.CopyToClipboard(cmd.Context(), selector)
		if err != nil {
			var ambiguity *vault.AmbiguousMatchError
			if errors.As(err, &ambiguity) {
				fmt.Fprintf(os.Stderr, "Multiple entries match '%s':\n", ambiguity.Service)
				for _, candidate := range ambiguity.Candidates {
					fmt.Fprintf(os.Stderr, "%4d  %-24s %-24s %s\n",
						candidate.ID, candidate.Service, candidate.Username, candidate.Notes)
				}
				fmt.Fprintln(os.Stderr, "Re-run with --id to pick one")
			}
			return err
		}
		fmt.Println(confirmation)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a password entry by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("'%s' is not a record ID", args[0])
		}

		session, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = session.Close() }()

		service, username, err := session.Delete(cmd.Context(), uint(id))
		if err != nil {
			return err
		}
		if username != "" {
			fmt.Printf("Deleted password for '%s' (%s)\n", service, username)
		} else {
			fmt.Printf("Deleted password for '%s'\n", service)
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the vault activity history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		session, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = session.Close() }()

		events, err := session.History(cmd.Context())
		if err != nil {
			return err
		}
		for _, event := range events {
			fmt.Printf("%s  %-16s %s\n",
				event.CreatedAt.Format("2006-01-02 15:04:05"), event.EventType, string(event.Metadata))
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&vaultDir, "dir", "", "vault directory (default $HOME/.passkeep)")
	rootCmd.PersistentFlags().StringVar(&passwordFlag, "password", "", "master password (for scripting; prefer the prompt)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	addCmd.Flags().StringP("username", "u", "", "username for the entry")
	addCmd.Flags().StringP("notes", "n", "", "notes for the entry")
	addCmd.Flags().StringP("secret", "p", "", "password to store (prompted when omitted)")

	getCmd.Flags().Bool("show", false, "print stored passwords")

	copyCmd.Flags().StringP("username", "u", "", "username to disambiguate the service")
	copyCmd.Flags().Uint("id", 0, "record ID to copy")

	rootCmd.AddCommand(addCmd, listCmd, getCmd, searchCmd, copyCmd, deleteCmd, historyCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
