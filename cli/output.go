package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
)

// Spinner shows an animated braille spinner on stderr while work is in progress.
// It is a no-op when stderr is not a terminal (e.g. when output is piped).
type Spinner struct {
	stop chan struct{}
	wg   sync.WaitGroup
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// startSpinner starts the spinner with the given message and returns it.
// Call Stop() when the operation completes.
func startSpinner(msg string) *Spinner {
	s := &Spinner{stop: make(chan struct{})}
	if !stderrIsTerminal() {
		return s
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		tick := time.NewTicker(80 * time.Millisecond)
		defer tick.Stop()
		i := 0
		for {
			select {
			case <-s.stop:
				fmt.Fprint(os.Stderr, "\r\033[K") // clear the spinner line
				return
			case <-tick.C:
				fmt.Fprintf(os.Stderr, "\r%s %s", spinnerFrames[i%len(spinnerFrames)], msg)
				i++
			}
		}
	}()
	return s
}

// Stop halts the spinner and clears its line. Safe to call on a no-op spinner.
func (s *Spinner) Stop() {
	select {
	case <-s.stop:
		// already closed (non-tty path where the channel was never used)
	default:
		close(s.stop)
	}
	s.wg.Wait()
}

func stderrIsTerminal() bool {
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// jsonOut writes v as indented JSON to the command's stdout.
func jsonOut(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// yesNoBool returns "yes" or "no" for a bool flag.
func yesNoBool(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// joinOrDash joins strings with ", " or returns "-" for an empty list.
func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

// confirm prompts for a y/N answer on the command's input. Used before
// destructive operations unless --yes was given.
func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", prompt)
	var answer string
	fmt.Fscanln(cmd.InOrStdin(), &answer) //nolint:errcheck
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
