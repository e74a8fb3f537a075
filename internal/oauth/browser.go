package oauth

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Launcher opens the authorization URL in the user's agent. A failing
// launcher never aborts the flow; the user can open the URL manually.
type Launcher interface {
	Open(url string) error
}

// BrowserLauncher opens URLs in the default system browser.
type BrowserLauncher struct{}

// Open starts the platform browser without waiting for it to exit.
func (BrowserLauncher) Open(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "linux":
		return exec.Command("xdg-open", url).Start()
	case "windows":
		return exec.Command("cmd", "/c", "start", "", url).Start()
	default:
		return fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
}
