// Package browseropen opens a URL (a project's repository, usually) in the
// user's browser.
package browseropen

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

var startCommand = func(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

type platform struct {
	goos       string
	wsl        bool
	browserEnv string
}

// Open starts the first opener that works on this platform. Only http(s)
// URLs are accepted.
func Open(raw string) error {
	u, err := checkURL(raw)
	if err != nil {
		return err
	}
	p := platform{goos: runtime.GOOS, browserEnv: strings.TrimSpace(os.Getenv("BROWSER"))}
	p.wsl = p.goos == "linux" && isWSL()
	return tryAll(p.commands(u))
}

func checkURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("missing url")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("not an http(s) url: %q", raw)
	}
	return u.String(), nil
}

// commands lists the openers to try, in order.
func (p platform) commands(u string) [][]string {
	switch p.goos {
	case "darwin":
		return [][]string{{"open", u}}
	case "windows":
		return [][]string{
			{"rundll32", "url.dll,FileProtocolHandler", u},
			{"cmd", "/c", "start", "", u},
			{"explorer", u},
		}
	}
	var out [][]string
	if p.wsl {
		out = append(out,
			[]string{"wslview", u},
			[]string{"cmd.exe", "/c", "start", "", u},
		)
	}
	out = append(out, browserEnvCommands(p.browserEnv, u)...)
	return append(out, []string{"xdg-open", u})
}

// browserEnvCommands follows the $BROWSER convention: a colon-separated list
// of commands, where %s marks the URL position (appended otherwise).
func browserEnvCommands(raw, u string) [][]string {
	var out [][]string
	for _, part := range strings.Split(raw, ":") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "%s") {
			out = append(out, strings.Fields(strings.ReplaceAll(part, "%s", u)))
			continue
		}
		out = append(out, append(strings.Fields(part), u))
	}
	return out
}

func tryAll(cmds [][]string) error {
	var errs []error
	for _, argv := range cmds {
		err := startCommand(argv[0], argv[1:]...)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", argv[0], err))
	}
	return fmt.Errorf("open browser: %w", errors.Join(errs...))
}

func isWSL() bool {
	if os.Getenv("WSL_INTEROP") != "" || os.Getenv("WSL_DISTRO_NAME") != "" {
		return true
	}
	for _, f := range []string{"/proc/sys/kernel/osrelease", "/proc/version"} {
		if b, err := os.ReadFile(f); err == nil && strings.Contains(strings.ToLower(string(b)), "microsoft") {
			return true
		}
	}
	return false
}
