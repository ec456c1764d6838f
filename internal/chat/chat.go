// Package chat implements the interactive question/answer loop over the
// uploaded transcript documents.
package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"tuberag/internal/core/domain"
	"tuberag/internal/core/ports"
)

// Session is one interactive chat session. It is single-threaded and
// blocks on every generation round-trip.
type Session struct {
	gen   ports.Generator
	files []domain.ContextFile
	in    *bufio.Scanner
	out   io.Writer

	// history holds this session's Q/A pairs for display only. It is never
	// replayed into model calls.
	history []exchange
}

type exchange struct {
	question string
	answer   string
}

// NewSession creates a chat session over the given context files.
func NewSession(gen ports.Generator, files []domain.ContextFile, in io.Reader, out io.Writer) *Session {
	return &Session{
		gen:   gen,
		files: files,
		in:    bufio.NewScanner(in),
		out:   out,
	}
}

// Run drives the interactive loop until the user exits, input ends, or the
// context is canceled. Errors during a single exchange are reported inline
// and the loop continues.
func (s *Session) Run(ctx context.Context) error {
	s.printWelcome()

	for {
		fmt.Fprint(s.out, "\nYou: ")
		if !s.in.Scan() {
			fmt.Fprintln(s.out, "\nGoodbye!")
			return s.in.Err()
		}
		input := strings.TrimSpace(s.in.Text())
		if input == "" {
			continue
		}

		switch strings.ToLower(input) {
		case "exit", "quit", "bye", "q":
			fmt.Fprintln(s.out, "\nThanks for chatting! Goodbye!")
			return nil
		case "help", "?":
			s.printHelp()
			continue
		case "list":
			s.listFiles()
			continue
		case "clear":
			s.history = nil
			fmt.Fprintln(s.out, "Conversation history cleared.")
			continue
		}

		answer, err := s.gen.Generate(ctx, input, s.files)
		if err != nil {
			if ctx.Err() != nil {
				fmt.Fprintln(s.out, "\nChat interrupted. Goodbye!")
				return nil
			}
			fmt.Fprintf(s.out, "Error: %v\nPlease try again.\n", err)
			continue
		}

		s.history = append(s.history, exchange{question: input, answer: answer})
		fmt.Fprintf(s.out, "Assistant: %s\n", answer)
	}
}

func (s *Session) printWelcome() {
	fmt.Fprintln(s.out, strings.Repeat("=", 70))
	fmt.Fprintln(s.out, "YouTube Transcript Chat")
	fmt.Fprintln(s.out, strings.Repeat("=", 70))
	fmt.Fprintf(s.out, "\n%d video transcript(s) loaded\n", len(s.files))
	fmt.Fprintln(s.out, "\nCommands:")
	fmt.Fprintln(s.out, "  help or ?    show help")
	fmt.Fprintln(s.out, "  list         list uploaded files")
	fmt.Fprintln(s.out, "  clear        clear conversation history")
	fmt.Fprintln(s.out, "  exit or quit leave the chat")
}

func (s *Session) printHelp() {
	fmt.Fprintln(s.out, "\nExample questions:")
	fmt.Fprintln(s.out, "  What topics are covered in these videos?")
	fmt.Fprintln(s.out, "  Summarize the main points from a video title")
	fmt.Fprintln(s.out, "  Which video talks about a given subject?")
	fmt.Fprintln(s.out, "  What are the key takeaways?")
	fmt.Fprintln(s.out, "\nBe specific for better results; follow-up questions are fine.")
}

func (s *Session) listFiles() {
	fmt.Fprintln(s.out, "\nUploaded files:")
	if len(s.files) == 0 {
		fmt.Fprintln(s.out, "  No files uploaded yet.")
		return
	}
	for i, f := range s.files {
		fmt.Fprintf(s.out, "  %d. %s\n", i+1, f.DisplayName)
	}
}
