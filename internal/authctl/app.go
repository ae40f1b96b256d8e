package authctl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
)

const usage = `usage: authctl [-s server] <command>

commands:
  register        create a new account
  login           obtain a token pair
  refresh         exchange a refresh token for a new pair
  reset-request   mail a password reset code
  reset-change    change a password using a reset code
  users           list accounts (admin token required)
`

// App drives the command-line interface.
type App struct {
	client *Client
	reader *bufio.Reader
	out    io.Writer
}

// NewApp constructs the CLI against the given server base URL.
func NewApp(serverURL string) *App {
	return &App{
		client: NewClient(serverURL),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
}

// Run dispatches a single command and returns its error, if any.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return nil
	}

	switch args[0] {
	case "register":
		return a.register(ctx)
	case "login":
		return a.login(ctx)
	case "refresh":
		return a.refresh(ctx)
	case "reset-request":
		return a.resetRequest(ctx)
	case "reset-change":
		return a.resetChange(ctx)
	case "users":
		return a.listUsers(ctx)
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (a *App) register(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "Username", a.out)
	if err != nil {
		return err
	}
	role, err := GetSimpleText(a.reader, "Role (USER or ADMIN, comma-separated for both)", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out, "Enter password")
	if err != nil {
		return err
	}

	user, err := a.client.Register(ctx, username, string(password), role)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "created user %s (id %s, roles %s)\n", user.Username, user.ID, user.Roles)
	return nil
}

func (a *App) login(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "Username", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out, "Enter password")
	if err != nil {
		return err
	}

	tokens, err := a.client.Login(ctx, username, string(password))
	if err != nil {
		return err
	}
	a.printTokens(tokens)
	return nil
}

func (a *App) refresh(ctx context.Context) error {
	refreshToken, err := GetSimpleText(a.reader, "Refresh token", a.out)
	if err != nil {
		return err
	}

	tokens, err := a.client.Refresh(ctx, refreshToken)
	if err != nil {
		return err
	}
	a.printTokens(tokens)
	return nil
}

func (a *App) resetRequest(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "Username", a.out)
	if err != nil {
		return err
	}
	if err := a.client.RequestReset(ctx, username); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "reset code sent, check your mail")
	return nil
}

func (a *App) resetChange(ctx context.Context) error {
	username, err := GetSimpleText(a.reader, "Username", a.out)
	if err != nil {
		return err
	}
	codeText, err := GetSimpleText(a.reader, "Reset code", a.out)
	if err != nil {
		return err
	}
	code, err := strconv.ParseInt(codeText, 10, 64)
	if err != nil {
		return fmt.Errorf("reset code must be numeric: %w", err)
	}
	password, err := GetPassword(a.out, "Enter new password")
	if err != nil {
		return err
	}

	if err := a.client.ChangePassword(ctx, username, code, string(password)); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "password changed")
	return nil
}

func (a *App) listUsers(ctx context.Context) error {
	token, err := GetSimpleText(a.reader, "Access token", a.out)
	if err != nil {
		return err
	}

	users, err := a.client.ListUsers(ctx, token)
	if err != nil {
		return err
	}
	for _, u := range users {
		fmt.Fprintf(a.out, "%s\t%s\t%s\n", u.ID, u.Username, u.Roles)
	}
	return nil
}

func (a *App) printTokens(t *TokenResponse) {
	fmt.Fprintf(a.out, "access token:  %s\n", t.AccessToken)
	fmt.Fprintf(a.out, "refresh token: %s\n", t.RefreshToken)
	fmt.Fprintf(a.out, "type %s, expires in %ds\n", t.TokenType, t.ExpiresIn)
}
