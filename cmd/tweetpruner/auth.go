package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tweetpruner/pkg/auth"
	"tweetpruner/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Twitter credentials",
	Long: `Manage stored Twitter API credentials.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read only)

Never share your credentials or config files!`,
}

var loginCmd = &cobra.Command{
	Use:   "login [screen_name]",
	Short: "Store Twitter credentials securely",
	Long: `Store the four OAuth 1.0a values of a Twitter app in the system keychain
or the encrypted file.

You will be prompted for:
  - Screen name (if not provided)
  - API key and API secret
  - Access token and access token secret`,
	Example: `  # Interactive login
  tweetpruner auth login

  # Login with screen name
  tweetpruner auth login jack`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout <screen_name>",
	Short: "Remove stored credentials",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogout,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored Twitter accounts with masked credentials.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)
	auth.ShowCredentialGuide(os.Stdout)

	var screenName string
	if len(args) > 0 {
		screenName = args[0]
	} else {
		fmt.Print("Screen name: ")
		screenName, err = readLine(reader)
		if err != nil {
			return fmt.Errorf("failed to read screen name: %w", err)
		}
	}
	screenName = strings.TrimPrefix(strings.TrimSpace(screenName), "@")
	if screenName == "" {
		return errors.New("screen name is required")
	}

	if existing, _ := manager.Retrieve(screenName); existing != nil {
		fmt.Printf("\nAccount '%s' already exists. Update credentials? (y/N): ", screenName)
		answer, _ := readLine(reader)
		if !strings.HasPrefix(strings.ToLower(answer), "y") {
			return nil
		}
	}

	fmt.Println("\nEnter your app credentials (input is hidden):")
	account := &auth.Account{ScreenName: screenName}
	prompts := []struct {
		label string
		dst   *string
	}{
		{"API key", &account.APIKey},
		{"API secret", &account.APISecret},
		{"Access token", &account.AccessToken},
		{"Access token secret", &account.AccessTokenSecret},
	}
	for _, p := range prompts {
		fmt.Printf("%s: ", p.label)
		value, err := readSecret(reader)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", strings.ToLower(p.label), err)
		}
		*p.dst = value
	}

	if err := manager.Store(account); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	ui.PrintSuccess("Account saved: " + screenName)
	fmt.Println("\nPreview what would be removed:")
	fmt.Printf("  $ tweetpruner prune --account %s --dry-run\n", screenName)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	screenName := strings.TrimPrefix(args[0], "@")
	if err := manager.Delete(screenName); err != nil {
		return fmt.Errorf("failed to remove account: %w", err)
	}
	ui.PrintSuccess("Account removed: " + screenName)
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
	printAccounts(os.Stdout, accounts)
	return nil
}

func printAccounts(w io.Writer, accounts []*auth.Account) {
	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'tweetpruner auth login' to add an account")
		return
	}

	ui.PrintHighlight("Stored Accounts")
	fmt.Fprintln(w)
	for i, account := range accounts {
		s := auth.SanitizeAccount(account)
		fmt.Fprintf(w, "%d. @%s\n", i+1, s.ScreenName)
		fmt.Fprintf(w, "   API key: %s\n", s.APIKey)
		fmt.Fprintf(w, "   Access token: %s\n", s.AccessToken)
		if !s.LastModified.IsZero() {
			fmt.Fprintf(w, "   Last modified: %s\n", s.LastModified.Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintln(w)
	}
}

func readLine(reader *bufio.Reader) (string, error) {
	input, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && input != "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// readSecret reads without echo when stdin is a terminal
func readSecret(reader *bufio.Reader) (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}
	return readLine(reader)
}
