package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/alarmdesk/console/cmd/consolectl/ui"
	"github.com/alarmdesk/console/internal/login"
	"github.com/alarmdesk/console/internal/session"
	"github.com/alarmdesk/console/pkg/config"
	"github.com/alarmdesk/console/pkg/logger"
)

var (
	serverURL   string
	sessionFile string

	loginUsername string
	loginPassword string
	loginQuick    bool
)

// rootCmd is the consolectl entry point.
var rootCmd = &cobra.Command{
	Use:   "consolectl",
	Short: "Operator CLI for the alarm analysis console",
	Long: `consolectl signs operators in to the alarm analysis console.

Run 'consolectl login' without flags to open the interactive sign-in
form. The issued token is stored locally and reused by 'whoami' until
it expires or 'logout' removes it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the console and store the session token",
	Long: `Sign in to the console.

Without flags this opens the interactive form. With --username and
--password (or --quick for the built-in smoke-test account) it submits
once, non-interactively, through the same validate-then-submit path.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session token",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the identity behind the stored session token",
	RunE:  runWhoami,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server",
		config.GetEnv("CONSOLE_SERVER", "http://localhost:9200"),
		"base URL of the auth service")
	rootCmd.PersistentFlags().StringVar(&sessionFile, "session-file", "",
		"path of the session file (default: user config dir)")

	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "sign in non-interactively with this username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "password for --username")
	loginCmd.Flags().BoolVar(&loginQuick, "quick", false, "sign in with the built-in smoke-test account")

	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}

func sessionStore() (*session.Store, error) {
	path := sessionFile
	if path == "" {
		var err error
		path, err = session.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("resolving session path: %w", err)
		}
	}
	return session.NewStore(path), nil
}

func newFlow() (*login.Flow, *session.Store, error) {
	sessions, err := sessionStore()
	if err != nil {
		return nil, nil, err
	}
	client := login.NewClient(logger.L(), serverURL)
	return login.NewFlow(logger.L(), client, sessions), sessions, nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	flow, _, err := newFlow()
	if err != nil {
		return err
	}

	var creds login.Credentials
	switch {
	case loginQuick:
		creds = login.QuickLogin()
	case loginUsername != "" || loginPassword != "":
		creds = login.Credentials{Username: loginUsername, Password: loginPassword}
	default:
		return runLoginForm(flow)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	res := flow.Submit(ctx, creds)
	if !res.FieldErrors.Empty() {
		if res.FieldErrors.Username != "" {
			fmt.Fprintln(os.Stderr, "username:", res.FieldErrors.Username)
		}
		if res.FieldErrors.Password != "" {
			fmt.Fprintln(os.Stderr, "password:", res.FieldErrors.Password)
		}
		return errors.New("invalid input")
	}
	if res.Err != nil {
		return res.Err
	}

	fmt.Printf("signed in as %s\n", creds.Username)
	return nil
}

func runLoginForm(flow *login.Flow) error {
	p := tea.NewProgram(ui.NewLoginModel(flow))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("running login form: %w", err)
	}
	m, ok := final.(ui.LoginModel)
	if !ok || !m.Done() {
		return errors.New("login aborted")
	}
	fmt.Println("signed in")
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	sessions, err := sessionStore()
	if err != nil {
		return err
	}
	if err := sessions.Clear(); err != nil {
		return err
	}
	fmt.Println("signed out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	sessions, err := sessionStore()
	if err != nil {
		return err
	}
	sess, err := sessions.Read()
	if errors.Is(err, session.ErrNoSession) {
		return errors.New("not signed in, run 'consolectl login'")
	}
	if err != nil {
		return err
	}

	client := login.NewClient(logger.L(), serverURL)
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	id, err := client.Whoami(ctx, sess.TokenType, sess.AccessToken)
	if errors.Is(err, login.ErrInvalidToken) {
		return errors.New("session expired, run 'consolectl login'")
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s), session expires %s\n",
		id.Username, id.Role,
		time.Unix(id.ExpiresAt, 0).Local().Format(time.RFC822))
	return nil
}

func main() {
	// The form owns the terminal, so the CLI keeps zap silent.
	logger.Quiet()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}
