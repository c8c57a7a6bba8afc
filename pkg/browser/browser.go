// Package browser opens URLs in the user's default web browser.
package browser

import (
	"errors"
	"os/exec"
	"runtime"

	"github.com/skratchdot/open-golang/open"
)

// OpenURL hands the URL to the system browser. It tries the platform-agnostic
// launcher first and falls back to OS-specific commands. The launch is
// fire-and-forget: there is no confirmation the browser actually rendered the
// page.
func OpenURL(url string) error {
	if err := open.Run(url); err == nil {
		return nil
	}
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if cmd == nil {
		return errors.New("no browser command available")
	}
	return cmd.Start()
}
