package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"redditscraper/pkg/auth"
	"redditscraper/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Reddit app credentials",
	Long: `Manage stored Reddit app credentials.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read only)

Never share your client secret or config files!`,
}

var loginCmd = &cobra.Command{
	Use:   "login [name]",
	Short: "Store Reddit app credentials securely",
	Long: `Store the client id and secret of a Reddit "script" app.

You will be prompted for:
  - A name for this account (if not provided)
  - Client ID
  - Client secret (hidden)
  - User Agent (optional, press Enter for default)`,
	Example: `  # Interactive login
  redditscraper auth login

  # Login with a name
  redditscraper auth login personal`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout <name>",
	Short: "Remove stored credentials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := auth.NewManager()
		if err != nil {
			return fmt.Errorf("failed to initialize credential manager: %w", err)
		}
		if err := manager.Delete(args[0]); err != nil {
			return err
		}
		ui.PrintSuccess("Account removed: " + args[0])
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored accounts with the client secret masked.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd, logoutCmd, listCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)
	auth.ShowAppRegistrationGuide(ui.Output)
	fmt.Fprintln(ui.Output)

	name := ""
	if len(args) > 0 {
		name = strings.TrimSpace(args[0])
	}
	if name == "" {
		if name, err = prompt(reader, "Account name: "); err != nil {
			return err
		}
	}
	if name == "" {
		return errors.New("account name is required")
	}

	if existing, _ := manager.Retrieve(name); existing != nil {
		answer, _ := prompt(reader, fmt.Sprintf("Account '%s' already exists. Update credentials? (y/N): ", name))
		if !strings.HasPrefix(strings.ToLower(answer), "y") {
			return nil
		}
	}

	clientID, err := prompt(reader, "Client ID: ")
	if err != nil {
		return err
	}
	fmt.Fprint(ui.Output, "Client secret (hidden): ")
	secret, err := readSecret(reader)
	if err != nil {
		return fmt.Errorf("failed to read client secret: %w", err)
	}
	userAgent, _ := prompt(reader, "User Agent (press Enter to use default): ")

	account := &auth.Account{
		Name:         name,
		ClientID:     clientID,
		ClientSecret: secret,
		UserAgent:    userAgent,
	}
	if err := manager.Store(account); err != nil {
		return err
	}

	ui.PrintSuccess("Account saved: " + name)
	fmt.Fprintln(ui.Output, "\nUse it with:")
	fmt.Fprintf(ui.Output, "  redditscraper fetch <subreddit> --account %s\n", name)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	accounts, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'redditscraper auth login' to add one")
		return nil
	}

	ui.PrintHighlight("Stored Accounts")
	for i, account := range accounts {
		s := auth.SanitizeAccount(account)
		fmt.Fprintf(ui.Output, "\n%d. %s\n", i+1, s.Name)
		fmt.Fprintf(ui.Output, "   Client ID: %s\n", s.ClientID)
		fmt.Fprintf(ui.Output, "   Secret: %s\n", s.ClientSecret)
		if s.UserAgent != "" {
			fmt.Fprintf(ui.Output, "   User Agent: %s\n", s.UserAgent)
		}
		if !s.LastModified.IsZero() {
			fmt.Fprintf(ui.Output, "   Last Modified: %s\n", s.LastModified.Format("2006-01-02 15:04:05"))
		}
	}
	return nil
}

func prompt(r *bufio.Reader, label string) (string, error) {
	fmt.Fprint(ui.Output, label)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// readSecret reads without echo on a terminal and falls back to a
// plain line otherwise.
func readSecret(r *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Fprintln(ui.Output)
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
