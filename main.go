// plume CLI entry point
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/plumecli/plume/internal/backend"
	"github.com/plumecli/plume/internal/config"
	"github.com/plumecli/plume/internal/domain"
	"github.com/plumecli/plume/internal/store"
	"github.com/plumecli/plume/internal/tui"
)

var version = "dev"

func init() {
	if version != "dev" {
		return
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
}

func main() {
	versionFlag := flag.Bool("version", false, "Print version and exit")
	modelFlag := flag.String("model", "", "Model name to request from the backend")
	continueFlag := flag.String("c", "", "Resume a session (latest for cwd, or pass a session ID prefix)")
	backendFlag := flag.String("backend", "", "Backend address (default from config or "+config.BackendEnvVar+")")
	flag.Parse()

	// All runtime diagnostics go to ~/.local/share/plume/plume.log.
	logger := config.NewLogger()
	defer logger.Close()

	if *versionFlag {
		fmt.Printf("plume %s\n", version)
		return
	}

	prefs := config.LoadPreferences()
	if *modelFlag != "" {
		prefs.Model = *modelFlag
	}

	addr := *backendFlag
	if addr == "" {
		addr = config.ResolveBackendAddress(prefs)
	}
	client := backend.NewClient(addr)
	if err := client.Health(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: backend at %s not responding: %v\n", addr, err)
		fmt.Fprintf(os.Stderr, "hint: start the inference server, or point plume at it with --backend\n")
	}

	st, err := store.OpenStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	session, resuming, err := resolveSession(st, *continueFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger.Printf("start: version=%s backend=%s session=%s resume=%v", version, addr, session.ID[:8], resuming)

	// Ensure the first TUI frame starts from a clean terminal state.
	resetTerminalForTUI()

	p := tea.NewProgram(tui.InitialModel(client, version, st, session, resuming, prefs, logger))
	tui.SetProgram(p)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "plume failed: %v\n", err)
		os.Exit(1)
	}
}

// resolveSession creates a fresh session, or resumes one when -c was given.
// A bare -c resumes the most recent session for the current directory; -c
// with a value matches a session by ID prefix.
func resolveSession(st *store.Store, continueArg string) (*domain.Session, bool, error) {
	cwd := mustGetwd()

	if continueArg != "" {
		session, err := st.FindSessionByPrefix(continueArg)
		if err != nil {
			return nil, false, fmt.Errorf("session not found: %s", continueArg)
		}
		return session, true, nil
	}

	for _, arg := range os.Args[1:] {
		if arg == "-c" {
			session, err := st.LatestSession(cwd)
			if err == sql.ErrNoRows {
				return nil, false, fmt.Errorf("no sessions found for %s", cwd)
			} else if err != nil {
				return nil, false, err
			}
			if err := st.TouchSession(session.ID); err != nil {
				return nil, false, err
			}
			return session, true, nil
		}
	}

	session, err := st.CreateSession(cwd, "")
	if err != nil {
		return nil, false, fmt.Errorf("creating session: %w", err)
	}
	return session, false, nil
}

func resetTerminalForTUI() {
	// Start the TUI on a fresh line without terminal control sequences.
	// This avoids prompt-line overlap issues on some Windows terminals.
	fmt.Println()
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
