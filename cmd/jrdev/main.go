// Command jrdev is the interactive AI coding assistant CLI: a single
// cobra root command that either runs a one-shot task (--task, or
// positional words joined with spaces) or
// drops into a REPL, both funneled through internal/kernel's Dispatch,
// grounded on the teacher's cmd/root.go + cmd/agent_chat_standalone.go
// bootstrap-then-loop split.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/presstab/jrdev/internal/kernel"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

var (
	projectDir string
	acceptAll  bool
	oneShot    string
)

var rootCmd = &cobra.Command{
	Use:     "jrdev [instruction...]",
	Short:   "jrdev — an interactive AI coding assistant",
	Long:    "jrdev builds and edits code with the help of an LLM: stage context, make code changes with a human-in-the-loop diff review, research topics on the web, and track conversation threads per project.",
	Version: version,
	Args:    cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if oneShot == "" && len(args) > 0 {
			oneShot = strings.Join(args, " ")
		}
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&projectDir, "dir", ".", "project root directory")
	rootCmd.PersistentFlags().BoolVar(&acceptAll, "accept-all", false, "apply every file change without prompting")
	rootCmd.Flags().StringVar(&oneShot, "task", "", "run a single command or chat message and exit, instead of opening a REPL")

	rootCmd.AddCommand(versionCmd())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("jrdev %s\n", version)
		},
	}
}

func run(ctx context.Context) error {
	k, err := kernel.New(projectDir, acceptAll)
	if err != nil {
		return fmt.Errorf("jrdev: %w", err)
	}

	if oneShot != "" {
		reply, err := k.Dispatch(ctx, oneShot)
		if err != nil {
			return fmt.Errorf("jrdev: %w", err)
		}
		fmt.Println(reply)
		return nil
	}

	runREPL(ctx, k)
	return nil
}

// runREPL drives the interactive loop: a scanner over stdin, graceful
// Ctrl+C via signal.NotifyContext, and /exit handled via kernel.ErrExit.
func runREPL(ctx context.Context, k *kernel.Kernel) {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	fmt.Fprintln(os.Stderr, "jrdev interactive mode. Type /help for commands, /exit to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024), 1024*1024)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "\ngoodbye")
			return
		default:
		}

		fmt.Fprint(os.Stderr, "> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		reply, err := k.Dispatch(ctx, line)
		if err != nil {
			if err == kernel.ErrExit {
				fmt.Fprintln(os.Stderr, "goodbye")
				return
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		if reply != "" {
			fmt.Println(reply)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
