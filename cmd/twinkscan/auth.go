package main

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"twinkscan/pkg/auth"
	"twinkscan/pkg/ui"
)

var stdin = bufio.NewReader(os.Stdin)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage saved site sessions",
	Long: `Manage the browser session cookies the scanner opens the roster with.

Sessions are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (TWINKSCAN_SESSION_COOKIE, read only)

Never share your session cookies or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [name]",
	Short: "Save a site session",
	Long: `Save the cookies of a logged-in browser session.

You will be prompted for:
  - A name for the session (if not provided)
  - The cookie domain (defaults to the host of site.url)
  - The Cookie header of a request to the site (hidden as you type)
  - User Agent (optional, press Enter to keep the configured one)`,
	Example: `  # Interactive login
  twinkscan auth login

  # Save the session under a name
  twinkscan auth login main`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions",
	Long:  `List saved sessions with masked cookie values.`,
	RunE:  runList,
}

// deleteCmd represents the auth delete command
var deleteCmd = &cobra.Command{
	Use:     "delete [name]",
	Aliases: []string{"logout"},
	Short:   "Remove a saved session",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runDelete,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(listCmd)
	authCmd.AddCommand(deleteCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		return err
	}

	auth.ShowCookieExtractionGuide(os.Stdout)
	if !confirmDefaultYes("Ready to enter your cookies? (Y/n): ") {
		fmt.Println("\nRun 'twinkscan auth login' when you're ready.")
		return nil
	}
	fmt.Println()

	name := ""
	if len(args) > 0 {
		name = strings.TrimSpace(args[0])
	}
	if name == "" {
		name = prompt("Session name [default]: ")
		if name == "" {
			name = "default"
		}
	}

	if existing, _ := manager.Retrieve(name); existing != nil {
		if !confirm(fmt.Sprintf("\nSession '%s' already exists. Replace it? (y/N): ", name)) {
			return nil
		}
	}

	domain := cookieDomain(cfg.Site.URL)
	if domain != "" {
		if input := prompt(fmt.Sprintf("Cookie domain [%s]: ", domain)); input != "" {
			domain = input
		}
	} else {
		domain = prompt("Cookie domain (e.g. .example.com): ")
	}

	var cookies map[string]string
	for {
		fmt.Print("Cookie header (hidden): ")
		header, err := readSecret()
		if err != nil {
			ui.PrintError("Failed to read cookies", err.Error())
			return err
		}
		if strings.EqualFold(header, "help") {
			auth.ShowCookieExtractionGuide(os.Stdout)
			continue
		}

		cookies = auth.ParseCookieHeader(header)
		if len(cookies) > 0 {
			break
		}

		fmt.Println("\nThat doesn't look like a Cookie header.")
		auth.ShowQuickExtractGuide(os.Stdout)
		if !confirmDefaultYes("\nTry again? (Y/n): ") {
			return auth.ErrInvalidCredentials
		}
	}

	userAgent := prompt("\nUser Agent (press Enter to keep the configured one): ")

	names := make([]string, 0, len(cookies))
	for n := range cookies {
		names = append(names, n)
	}
	sort.Strings(names)

	fmt.Println("\nSummary:")
	fmt.Printf("   Session: %s\n", name)
	fmt.Printf("   Domain:  %s\n", domain)
	fmt.Printf("   Cookies: %s (values hidden)\n", strings.Join(names, ", "))
	if userAgent != "" {
		fmt.Printf("   User Agent: %s\n", userAgent)
	}

	account := &auth.Account{
		Name:         name,
		Domain:       domain,
		Cookies:      cookies,
		UserAgent:    userAgent,
		LastModified: time.Now(),
	}
	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store session", err.Error())
		return err
	}

	ui.PrintSuccess("\nSession saved: " + name)
	fmt.Println("\nUse it with:")
	fmt.Println("   $ twinkscan scan")
	fmt.Printf("   $ twinkscan scan --account %s\n", name)
	fmt.Println("\nNever share your session cookies or config files!")
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		return err
	}

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list sessions", err.Error())
		return err
	}

	if len(accounts) == 0 {
		ui.PrintInfo("No saved sessions", "Use 'twinkscan auth login' to add one")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Saved Sessions")
	t.AppendHeader(table.Row{"Name", "Domain", "Cookies", "Last Modified"})
	for _, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		var cookies []string
		for _, c := range sanitized.PageCookies() {
			cookies = append(cookies, c.Name+"="+c.Value)
		}
		t.AppendRow(table.Row{
			sanitized.Name,
			sanitized.Domain,
			strings.Join(cookies, "\n"),
			sanitized.LastModified.Format("2006-01-02 15:04:05"),
		})
	}
	t.Render()
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		return err
	}

	var name string
	if len(args) > 0 {
		name = args[0]
	} else {
		accounts, err := manager.List()
		if err != nil || len(accounts) == 0 {
			ui.PrintError("No saved sessions found")
			return nil
		}

		fmt.Println("Select session to remove:")
		for i, account := range accounts {
			fmt.Printf("  %d. %s (%s)\n", i+1, account.Name, account.Domain)
		}
		fmt.Printf("  0. Cancel\n\n")

		var choice int
		fmt.Sscanf(prompt("Choice: "), "%d", &choice)
		if choice == 0 {
			return nil
		}
		if choice < 0 || choice > len(accounts) {
			ui.PrintError("Invalid choice")
			return fmt.Errorf("invalid choice %d", choice)
		}
		name = accounts[choice-1].Name
	}

	if err := manager.Delete(name); err != nil {
		ui.PrintError("Failed to remove session", err.Error())
		return err
	}
	ui.PrintSuccess("Session removed: " + name)
	return nil
}

// cookieDomain derives the cookie domain from the roster URL
func cookieDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return u.Hostname()
}

func prompt(question string) string {
	fmt.Print(question)
	input, _ := stdin.ReadString('\n')
	return strings.TrimSpace(input)
}

func confirm(question string) bool {
	return strings.HasPrefix(strings.ToLower(prompt(question)), "y")
}

func confirmDefaultYes(question string) bool {
	return strings.ToLower(prompt(question)) != "n"
}

// readSecret reads a line from stdin without echoing
func readSecret() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	input, err := stdin.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
