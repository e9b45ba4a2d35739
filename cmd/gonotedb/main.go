package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/softwarefactory-project/gonotedb/internal/app"
	"github.com/softwarefactory-project/gonotedb/internal/config"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer
// a.Close(). operation identifies the CLI command being run.
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		// The tool is usable without a config file: every remote can
		// be given on the command line.
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		cfg = config.NewConfig(defaults["base_dir"])
	}

	a, err := app.New(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// confirm asks for interactive confirmation of a destructive action
// when stdin is a terminal. Non-interactive runs must pass --yes.
func confirm(prompt string, yes bool) error {
	if yes {
		return nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("refusing to run non-interactively without --yes")
	}
	fmt.Printf("%s [y/N] ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading confirmation: %w", err)
	}
	if s := strings.ToLower(strings.TrimSpace(line)); s != "y" && s != "yes" {
		return fmt.Errorf("aborted")
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "gonotedb",
	Short: "Administer a Gerrit NoteDb account database",
	Long: `gonotedb manipulates the refs and files Gerrit stores in the
All-Users project: admin bootstrap, external ids, user and group
deletion, and identity scheme migrations.`,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Cache Dir: %s\n", cfg.CacheDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Cache Dir:    %s\n", cfg.CacheDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("All-Users:    %s\n", cfg.Remotes.AllUsers)
		fmt.Printf("All-Projects: %s\n", cfg.Remotes.AllProjects)
		return nil
	},
}

// create-admin-user command
var createAdminCmd = &cobra.Command{
	Use:   "create-admin-user",
	Short: "Ensure the initial admin account exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		fqdn, _ := cmd.Flags().GetString("fqdn")
		email, _ := cmd.Flags().GetString("email")
		pubkey, _ := cmd.Flags().GetString("pubkey")
		allUsers, _ := cmd.Flags().GetString("all-users")
		scheme, _ := cmd.Flags().GetString("scheme")

		if email == "" && fqdn != "" {
			email = "admin@" + fqdn
		}
		if email == "" || pubkey == "" {
			return fmt.Errorf("create-admin-user: needs --pubkey and --email (or --fqdn)")
		}

		a, err := newApp("CreateAdminUser")
		if err != nil {
			return err
		}
		defer a.Close()

		url, err := a.AllUsersURL(allUsers)
		if err != nil {
			return err
		}

		if err := a.CreateAdminUser(cmd.Context(), url, email, pubkey, scheme); err != nil {
			return fmt.Errorf("creating admin user: %w", err)
		}

		fmt.Printf("Admin user ready (email %s)\n", email)
		return nil
	},
}

// add-external-id command
var addExternalIDCmd = &cobra.Command{
	Use:   "add-external-id USERNAME ACCOUNT_ID",
	Short: "Add gerrit and username external ids for an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		allUsers, _ := cmd.Flags().GetString("all-users")

		a, err := newApp("AddAccountExternalID")
		if err != nil {
			return err
		}
		defer a.Close()

		url, err := a.AllUsersURL(allUsers)
		if err != nil {
			return err
		}

		if err := a.AddAccountExternalID(cmd.Context(), url, args[0], args[1]); err != nil {
			return fmt.Errorf("adding external id: %w", err)
		}

		fmt.Printf("Added external ids for %s (account %s)\n", args[0], args[1])
		return nil
	},
}

// delete-user command
var deleteUserCmd = &cobra.Command{
	Use:   "delete-user NAME",
	Short: "Delete a user's external ids and account ref",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		allUsers, _ := cmd.Flags().GetString("all-users")
		email, _ := cmd.Flags().GetString("email")
		yes, _ := cmd.Flags().GetBool("yes")

		if err := confirm(fmt.Sprintf("Delete user %q and all its identities?", args[0]), yes); err != nil {
			return err
		}

		a, err := newApp("DeleteUser")
		if err != nil {
			return err
		}
		defer a.Close()

		url, err := a.AllUsersURL(allUsers)
		if err != nil {
			return err
		}

		if err := a.DeleteUser(cmd.Context(), url, args[0], email); err != nil {
			return fmt.Errorf("deleting user: %w", err)
		}

		fmt.Printf("Deleted user %s\n", args[0])
		return nil
	},
}

// delete-group command
var deleteGroupCmd = &cobra.Command{
	Use:   "delete-group NAME",
	Short: "Delete a group ref and its group-names record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		allUsers, _ := cmd.Flags().GetString("all-users")
		yes, _ := cmd.Flags().GetBool("yes")

		if err := confirm(fmt.Sprintf("Delete group %q?", args[0]), yes); err != nil {
			return err
		}

		a, err := newApp("DeleteGroup")
		if err != nil {
			return err
		}
		defer a.Close()

		url, err := a.AllUsersURL(allUsers)
		if err != nil {
			return err
		}

		if err := a.DeleteGroup(cmd.Context(), url, args[0]); err != nil {
			return fmt.Errorf("deleting group: %w", err)
		}

		fmt.Printf("Deleted group %s\n", args[0])
		return nil
	},
}

// migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Rewrite legacy username external ids to the gerrit scheme",
	RunE: func(cmd *cobra.Command, args []string) error {
		allUsers, _ := cmd.Flags().GetString("all-users")

		a, err := newApp("MigrateUsernameScheme")
		if err != nil {
			return err
		}
		defer a.Close()

		url, err := a.AllUsersURL(allUsers)
		if err != nil {
			return err
		}

		n, err := a.MigrateUsernameScheme(cmd.Context(), url)
		if err != nil {
			return fmt.Errorf("migrating: %w", err)
		}

		fmt.Printf("Rewrote %d external id(s)\n", n)
		return nil
	},
}

// migrate-groups command
var migrateGroupsCmd = &cobra.Command{
	Use:   "migrate-groups",
	Short: "Re-home legacy-sharded group refs onto canonical names",
	RunE: func(cmd *cobra.Command, args []string) error {
		allUsers, _ := cmd.Flags().GetString("all-users")

		a, err := newApp("MigrateGroupShards")
		if err != nil {
			return err
		}
		defer a.Close()

		url, err := a.AllUsersURL(allUsers)
		if err != nil {
			return err
		}

		n, err := a.MigrateGroupShards(cmd.Context(), url)
		if err != nil {
			return fmt.Errorf("migrating groups: %w", err)
		}

		fmt.Printf("Re-sharded %d group ref(s)\n", n)
		return nil
	},
}

// cauth-to-keycloak command
var cauthToKeycloakCmd = &cobra.Command{
	Use:   "cauth-to-keycloak",
	Short: "Rewrite gerrit external ids to the keycloak-oauth scheme",
	RunE: func(cmd *cobra.Command, args []string) error {
		allUsers, _ := cmd.Flags().GetString("all-users")

		a, err := newApp("CauthToKeycloak")
		if err != nil {
			return err
		}
		defer a.Close()

		url, err := a.AllUsersURL(allUsers)
		if err != nil {
			return err
		}

		n, err := a.CauthToKeycloak(cmd.Context(), url)
		if err != nil {
			return fmt.Errorf("migrating to keycloak: %w", err)
		}

		fmt.Printf("Rewrote %d external id(s)\n", n)
		return nil
	},
}

// list-users command
var listUsersCmd = &cobra.Command{
	Use:   "list-users",
	Short: "Dump one JSON record per account",
	RunE: func(cmd *cobra.Command, args []string) error {
		allUsers, _ := cmd.Flags().GetString("all-users")

		a, err := newApp("ListUsers")
		if err != nil {
			return err
		}
		defer a.Close()

		url, err := a.AllUsersURL(allUsers)
		if err != nil {
			return err
		}

		users, err := a.ListUsers(cmd.Context(), url)
		if err != nil {
			return fmt.Errorf("listing users: %w", err)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(users)
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	createAdminCmd.Flags().String("fqdn", "", "FQDN used to derive the admin email (admin@FQDN)")
	createAdminCmd.Flags().String("email", "", "Admin email (overrides --fqdn)")
	createAdminCmd.Flags().String("pubkey", "", "SSH public key content for the admin account")
	createAdminCmd.Flags().String("scheme", "gerrit", "Auth scheme for the admin id: gerrit or keycloak")

	deleteUserCmd.Flags().String("email", "", "Email of the user, to match its mailto id")

	for _, c := range []*cobra.Command{
		createAdminCmd, addExternalIDCmd, deleteUserCmd, deleteGroupCmd,
		migrateCmd, migrateGroupsCmd, cauthToKeycloakCmd, listUsersCmd,
	} {
		c.Flags().String("all-users", "", "URL of the All-Users project")
	}
	for _, c := range []*cobra.Command{deleteUserCmd, deleteGroupCmd} {
		c.Flags().Bool("yes", false, "Skip interactive confirmation")
	}

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(createAdminCmd)
	rootCmd.AddCommand(addExternalIDCmd)
	rootCmd.AddCommand(deleteUserCmd)
	rootCmd.AddCommand(deleteGroupCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(migrateGroupsCmd)
	rootCmd.AddCommand(cauthToKeycloakCmd)
	rootCmd.AddCommand(listUsersCmd)
}
