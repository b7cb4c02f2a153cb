package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// describe turns an error from the client layer into a line for the user.
func describe(err error) string {
	switch {
	case errors.Is(err, common.ErrPermissionDenied):
		return "permission denied"
	case errors.Is(err, common.ErrUserExists):
		return "user with this name already exists"
	case errors.Is(err, common.ErrInvalidConfirmToken):
		return "confirm token is invalid or expired"
	case errors.Is(err, common.ErrUnavailable):
		return "server unavailable"
	case errors.Is(err, client.ErrNotLoggedIn):
		return "not logged in, use 'login' first"
	default:
		return err.Error()
	}
}

// Register prompts for name, email and password and creates an account.
// The confirm token is printed and remembered for the confirm command.
func (a *App) Register(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ctx, cancel := a.requestContext(ctx)
	defer cancel()

	token, err := a.api.Register(ctx, name, email, string(password))
	if err != nil {
		return err
	}

	a.lastConfirmToken = token
	fmt.Fprintf(a.out, "Registered %s. Confirm token:\n%s\n", name, token)
	return nil
}

// Confirm asks for a confirm token, defaulting to the last one issued by
// register in this session.
func (a *App) Confirm(ctx context.Context) error {
	prompt := "Enter confirm token"
	if a.lastConfirmToken != "" {
		prompt += " (empty for the last issued)"
	}

	token, err := getSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return err
	}
	if token == "" {
		token = a.lastConfirmToken
	}
	if token == "" {
		return errors.New("confirm token is required")
	}

	ctx, cancel := a.requestContext(ctx)
	defer cancel()

	if err := a.api.Confirm(ctx, token); err != nil {
		return err
	}

	a.lastConfirmToken = ""
	fmt.Fprintln(a.out, "Account confirmed")
	return nil
}

func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ctx, cancel := a.requestContext(ctx)
	defer cancel()

	resp, err := a.api.Login(ctx, userName, string(password))
	if err != nil {
		return err
	}

	a.userName = userName
	fmt.Fprintf(a.out, "Login successful, access token valid for %ds\n", resp.ExpiresIn)
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	ctx, cancel := a.requestContext(ctx)
	defer cancel()

	resp, err := a.api.Refresh(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Tokens refreshed, access token valid for %ds\n", resp.ExpiresIn)
	return nil
}

func (a *App) Me(ctx context.Context) error {
	ctx, cancel := a.requestContext(ctx)
	defer cancel()

	me, err := a.api.CurrentUser(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "id:    %s\nname:  %s\nemail: %s\n", me.Identifier, me.Name, me.Email)
	return nil
}

func (a *App) Status(ctx context.Context) error {
	ctx, cancel := a.requestContext(ctx)
	defer cancel()

	st, err := a.api.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Server status:", st)
	return nil
}

// Logout drops the held tokens. Issued tokens stay valid until they expire.
func (a *App) Logout(_ context.Context) error {
	a.api.Logout()
	a.userName = ""
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

