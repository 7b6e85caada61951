package cli

import (
	"context"
	"os"

	"github.com/dmitrijs2005/trackerctl/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts the user for an email and password and stores the
// credential record locally.
//
// On success it prints "Success!" and returns nil. The password byte slice
// is wiped before returning. Any I/O or service error is returned unchanged.
// Registering an email that already exists silently replaces the old record;
// that is how the original gate behaves.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.sessionService.Register(ctx, userName, string(password)); err != nil {
		return err
	}

	printlnFn("Success!")
	return nil
}

// Login prompts the user for credentials and checks them against the local
// store. On success the session marker is persisted so the session survives
// a restart. A failed match prints a message and leaves the session as is.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ok, err := a.sessionService.Authenticate(ctx, userName, string(password))
	if err != nil {
		a.log.Error(ctx, "login failed", "error", err)
		return err
	}
	if !ok {
		printlnFn("Invalid email or password")
		return nil
	}

	if err := a.sessionService.MarkAuthenticated(ctx, userName); err != nil {
		a.log.Error(ctx, "persisting session failed", "error", err)
		return err
	}

	a.userName = userName
	printlnFn("Success!")
	return nil
}

// Logout stops any live stream, removes the persisted session marker, and
// clears the in-memory user.
func (a *App) Logout(ctx context.Context) error {
	a.stopStream()
	if err := a.sessionService.Logout(ctx); err != nil {
		return err
	}
	a.userName = ""
	printlnFn("Logged out")
	return nil
}

// Status prints the current session, connectivity, and stream state.
func (a *App) Status(ctx context.Context) error {
	user := a.userName
	if user == "" {
		user = "(not logged in)"
	}

	a.mu.Lock()
	streamState := "stopped"
	if a.stream != nil {
		streamState = a.stream.State().String()
	}
	color, conf := a.color, a.conf
	a.mu.Unlock()

	printlnFn("User:      ", user)
	printlnFn("Server:    ", a.config.ServerEndpointAddr, string(a.Mode))
	printlnFn("Stream:    ", streamState)
	printlnFn("Color:     ", color)
	printlnFn("Confidence:", conf)
	return nil
}
