package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"reviewdesk/cmd/desk/ui"
	"reviewdesk/internal/api"
	"reviewdesk/internal/apierr"
	"reviewdesk/internal/notify"
	"reviewdesk/internal/types"
)

var (
	loginPassword string
	loginEmail    string
	loginCode     string
	sendPurpose   string
	whoamiOffline bool
)

// loginCmd signs a reviewer in
var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Sign in and store the session",
	Long: `Signs in with username and password, or with an emailed verification
code (see "desk send-code"). The session is stored in the workspace and used
by every other command until "desk logout".

Examples:
  desk login alice
  desk login --email alice@example.com --code 123456`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var sendCodeCmd = &cobra.Command{
	Use:   "send-code <email>",
	Short: "Email a verification code for code login",
	Args:  cobra.ExactArgs(1),
	RunE:  runSendCode,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in reviewer and permissions",
	RunE:  runWhoami,
}

func init() {
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Password (prompted when omitted)")
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Email for code login")
	loginCmd.Flags().StringVar(&loginCode, "code", "", "Verification code for code login")
	sendCodeCmd.Flags().StringVar(&sendPurpose, "purpose", api.PurposeLogin, "Code purpose: login or register")
	whoamiCmd.Flags().BoolVar(&whoamiOffline, "offline", false, "Show the stored session without asking the server")

	rootCmd.AddCommand(loginCmd, sendCodeCmd, logoutCmd, whoamiCmd)
}

// readPassword prompts on the terminal without echo, or reads one line when
// stdin is not a terminal.
var readPassword = func(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		pw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		return string(pw), err
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	codeLogin := loginEmail != "" || loginCode != ""
	if codeLogin && (loginEmail == "" || loginCode == "") {
		return errors.New("code login needs both --email and --code")
	}
	if !codeLogin && len(args) == 0 {
		return errors.New("username required (or use --email and --code)")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	var res *types.LoginResponse
	if codeLogin {
		res, err = a.users.LoginWithCode(ctx, loginEmail, loginCode)
	} else {
		password := loginPassword
		if password == "" {
			if password, err = readPassword(cmd); err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
		}
		res, err = a.users.Login(ctx, args[0], password)
	}
	if err != nil {
		return a.fail(a.errs.Load, err, apierr.WithMessage("Login failed"))
	}

	if _, err := a.users.LoadProfile(ctx); err != nil {
		return a.fail(a.errs.Load, err, apierr.WithMessage("Failed to load profile"))
	}

	notify.Success(a.notifier, fmt.Sprintf("Signed in as %s (%s)", res.User.Username, res.User.Role))
	return nil
}

func runSendCode(cmd *cobra.Command, args []string) error {
	if sendPurpose != api.PurposeLogin && sendPurpose != api.PurposeRegister {
		return fmt.Errorf("invalid purpose %q (valid: %s, %s)", sendPurpose, api.PurposeLogin, api.PurposeRegister)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	res, err := a.client.SendCode(ctx, args[0], sendPurpose)
	if err != nil {
		return a.fail(a.errs.Load, err, apierr.WithMessage("Failed to send verification code"))
	}
	msg := res.Message
	if msg == "" {
		msg = "Verification code sent"
	}
	if res.ExpiresIn > 0 {
		msg = fmt.Sprintf("%s (expires in %ds)", msg, res.ExpiresIn)
	}
	notify.Success(a.notifier, msg)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	a.users.Logout()
	notify.Info(a.notifier, "Signed out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.token() == "" {
		fmt.Fprintln(a.out, `Not signed in. Run "desk login".`)
		return nil
	}

	if !whoamiOffline {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		if _, err := a.users.LoadProfile(ctx); err != nil {
			return a.fail(a.errs.Load, err, apierr.WithMessage("Failed to load profile"))
		}
	}

	u := a.users.User()
	if u == nil {
		fmt.Fprintln(a.out, `Not signed in. Run "desk login".`)
		return nil
	}

	table := ui.NewSimpleTable("Reviewer", "Field", "Value")
	table.AddRow("Username", u.Username)
	if u.Email != nil {
		table.AddRow("Email", *u.Email)
	}
	table.AddRow("Role", u.Role)
	table.AddRow("Status", u.Status)
	perms := a.users.Permissions()
	if len(perms) == 0 {
		table.AddRow("Permissions", "-")
	} else {
		table.AddRow("Permissions", strings.Join(perms, ", "))
	}
	fmt.Fprintln(a.out, table.View(ui.DefaultStyles()))
	return nil
}
