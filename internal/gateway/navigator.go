package gateway

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"

	"gatekeep/pkg/logging"
)

// Navigator performs the full-page redirect to the provider.
type Navigator interface {
	Navigate(url string) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(url string) error

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(url string) error {
	return f(url)
}

// BrowserNavigator opens the URL in the default web browser and prints it to
// Out as well, for terminals where no browser can be launched. With Out set,
// a browser that fails to launch is not an error: the user has the URL.
type BrowserNavigator struct {
	Out io.Writer
}

// Navigate implements Navigator.
func (n BrowserNavigator) Navigate(url string) error {
	if n.Out == nil {
		return OpenBrowser(url)
	}

	_, _ = fmt.Fprintf(n.Out, "Opening the identity provider in your browser.\nIf it does not open, visit:\n\n  %s\n\n", url)
	if err := OpenBrowser(url); err != nil {
		logging.Warn("Gateway", "Could not open browser: %v", err)
	}
	return nil
}

// PrintNavigator only prints the URL. Used with --no-browser.
type PrintNavigator struct {
	Out io.Writer
}

// Navigate implements Navigator.
func (n PrintNavigator) Navigate(url string) error {
	_, err := fmt.Fprintf(n.Out, "Open the following URL in your browser:\n\n  %s\n\n", url)
	return err
}

// browserCommand returns the command used to open url on goos.
func browserCommand(goos, url string) (*exec.Cmd, error) {
	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", url), nil
	case "darwin":
		return exec.Command("open", url), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}

// OpenBrowser opens the specified URL in the default web browser.
// It does not wait for the browser to exit.
func OpenBrowser(url string) error {
	cmd, err := browserCommand(runtime.GOOS, url)
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
