package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage your session (login, register, logout, status, refresh)",
	Long: `Manage your session with the SkinTwin API.

Examples:
  stctl auth login -u alice
  stctl auth register -u alice -e alice@example.com
  stctl auth status
  stctl auth refresh
  stctl auth logout`,
}

func init() {
	rootCmd.AddCommand(authCmd)
}

// stdin buffers whatever cmd.InOrStdin returns so consecutive prompts
// share read-ahead. Reset when the command's input changes.
var (
	stdin    *bufio.Reader
	stdinSrc io.Reader
)

func inputReader(cmd *cobra.Command) *bufio.Reader {
	in := cmd.InOrStdin()
	if stdin == nil || stdinSrc != in {
		stdin = bufio.NewReader(in)
		stdinSrc = in
	}
	return stdin
}

// prompt reads one line of input, printing label first. Used when a value was
// not passed as a flag.
func prompt(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), label)
	line, err := inputReader(cmd).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// promptSecret is prompt without echo when input is a terminal. Piped input
// falls back to a plain line read.
func promptSecret(cmd *cobra.Command, label string) (string, error) {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return prompt(cmd, label)
	}
	fmt.Fprint(cmd.ErrOrStderr(), label)
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", err
	}
	return string(b), nil
}
