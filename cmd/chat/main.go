package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/spf13/cobra"

	"gemini-chat/internal/config"
	"gemini-chat/internal/session"
)

type options struct {
	serverURL  string
	style      string
	width      int
	transcript string
	verbose    int
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	cfg := config.LoadClient()
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Terminal chat against a Gemini chat relay",
		Long: `chat keeps a conversation in memory and sends the whole history to the
relay's /api/chat endpoint on every message. Replies are rendered as Markdown.

Type a message and press Enter. /quit or EOF ends the session.

Examples:
  chat
  chat --server http://localhost:3000 --style light
  chat --transcript chat.html`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, in, out)
		},
	}

	cmd.Flags().StringVarP(&opts.serverURL, "server", "s", cfg.ServerURL, "chat relay base URL")
	cmd.Flags().StringVar(&opts.style, "style", "dark", "glamour style: dark, light, notty, or a JSON style path")
	cmd.Flags().IntVarP(&opts.width, "width", "w", 80, "word wrap width for replies")
	cmd.Flags().StringVarP(&opts.transcript, "transcript", "t", "", "write an HTML transcript to this file on exit")
	cmd.Flags().IntVarP(&opts.verbose, "verbose", "v", 0, "log verbosity")

	return cmd
}

func run(ctx context.Context, opts *options, in io.Reader, out io.Writer) error {
	stdr.SetVerbosity(opts.verbose)
	logger := logr.Discard()
	if opts.verbose > 0 {
		logger = stdr.New(log.New(os.Stderr, "", log.LstdFlags))
	}

	termRenderer, err := session.NewTerminalRenderer(opts.style, opts.width)
	if err != nil {
		return err
	}

	views := []session.View{{Log: session.NewTerminalLog(out), Renderer: termRenderer}}

	var htmlLog *session.HTMLLog
	if opts.transcript != "" {
		htmlLog = session.NewHTMLLog()
		views = append(views, session.View{Log: htmlLog, Renderer: session.NewHTMLRenderer()})
	}

	s := session.New(session.NewClient(opts.serverURL, nil), logger, views...)

	if err := converse(ctx, s, in, logger); err != nil {
		return err
	}
	fmt.Fprintf(out, "Conversation ended after %d turns\n", s.Len())

	if htmlLog != nil {
		if err := writeTranscript(htmlLog, opts.transcript); err != nil {
			return err
		}
		fmt.Fprintf(out, "Transcript written to %s\n", opts.transcript)
	}

	return nil
}

// converse submits one message per input line until /quit, EOF or ctx is
// cancelled. Lines are read on their own goroutine so a cancel is seen even
// while stdin is blocked.
func converse(ctx context.Context, s *session.Session, in io.Reader, logger logr.Logger) error {
	done := make(chan struct{})
	defer close(done)
	lines := readLines(in, done)

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if line.err != nil {
				return fmt.Errorf("read input: %w", line.err)
			}
			if strings.TrimSpace(line.text) == "/quit" {
				return nil
			}
			// Failures are already shown in the chat log.
			if err := s.Submit(ctx, line.text); err != nil {
				logger.V(1).Info("turn failed", "error", err.Error())
			}
		}
	}
}

type inputLine struct {
	text string
	err  error
}

func readLines(in io.Reader, done <-chan struct{}) <-chan inputLine {
	ch := make(chan inputLine)
	go func() {
		defer close(ch)
		send := func(l inputLine) bool {
			select {
			case ch <- l:
				return true
			case <-done:
				return false
			}
		}

		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			if !send(inputLine{text: scanner.Text()}) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			send(inputLine{err: err})
		}
	}()
	return ch
}

func writeTranscript(htmlLog *session.HTMLLog, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create transcript: %w", err)
	}
	if err := htmlLog.WriteTranscript(f, "Gemini Chat transcript"); err != nil {
		f.Close()
		return fmt.Errorf("write transcript: %w", err)
	}
	return f.Close()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(os.Stdin, os.Stdout).ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
