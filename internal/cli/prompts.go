// Package cli provides the line-oriented console prompts used to collect
// sources and limits before a batch run.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Input modes for providing source URLs.
const (
	ModeManual = 1
	ModeFile   = 2
	ModeSingle = 3
)

const defaultMaxVideos = 50

// Prompter reads interactive input line by line.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter creates a Prompter over the given reader and writer.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

func (p *Prompter) readLine(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// SelectInputMode asks how the user wants to provide URLs, re-prompting
// until a valid choice is made.
func (p *Prompter) SelectInputMode() (int, error) {
	fmt.Fprintln(p.out, "How would you like to provide YouTube URLs?")
	fmt.Fprintln(p.out, "  1. Enter URLs manually (one at a time)")
	fmt.Fprintln(p.out, "  2. Load URLs from a file")
	fmt.Fprintln(p.out, "  3. Single channel/playlist")

	for {
		choice, err := p.readLine("Select mode [1-3]: ")
		if err != nil {
			return 0, err
		}
		switch choice {
		case "1", "2", "3":
			n, _ := strconv.Atoi(choice)
			return n, nil
		}
		fmt.Fprintln(p.out, "Please select 1, 2, or 3.")
	}
}

// ManualURLs collects URLs one at a time until an empty line. At least one
// URL is required; invalid URLs are rejected with a re-prompt.
func (p *Prompter) ManualURLs() ([]string, error) {
	fmt.Fprintln(p.out, "\nEnter YouTube URLs (channels, playlists, or videos).")
	fmt.Fprintln(p.out, "Press Enter on an empty line when done.")

	var urls []string
	for {
		url, err := p.readLine(fmt.Sprintf("URL %d (or Enter to finish): ", len(urls)+1))
		if err != nil {
			return nil, err
		}
		if url == "" {
			if len(urls) > 0 {
				return urls, nil
			}
			fmt.Fprintln(p.out, "Please enter at least one URL.")
			continue
		}
		if !IsYouTubeURL(url) {
			fmt.Fprintln(p.out, "Please provide a valid YouTube URL.")
			continue
		}
		urls = append(urls, url)
		fmt.Fprintf(p.out, "  Added: %s\n", url)
	}
}

// FileURLs prompts for a URL list file path until an existing file is
// given, then returns its parsed URLs.
func (p *Prompter) FileURLs() ([]string, error) {
	fmt.Fprintln(p.out, "\nEnter the path to your URLs file (one URL per line, # lines ignored).")

	for {
		path, err := p.readLine("File path: ")
		if err != nil {
			return nil, err
		}
		if path == "" {
			fmt.Fprintln(p.out, "Please enter a file path.")
			continue
		}
		urls, err := ReadURLFile(path)
		if err != nil {
			fmt.Fprintf(p.out, "File not found: %s\nPlease check the path and try again.\n", path)
			continue
		}
		fmt.Fprintf(p.out, "Loaded %d URL(s) from file.\n", len(urls))
		return urls, nil
	}
}

// SingleURL prompts for one channel or playlist URL.
func (p *Prompter) SingleURL() (string, error) {
	fmt.Fprintln(p.out, "\nEnter the YouTube channel or playlist URL.")

	for {
		url, err := p.readLine("URL: ")
		if err != nil {
			return "", err
		}
		if url == "" {
			fmt.Fprintln(p.out, "URL cannot be empty. Please try again.")
			continue
		}
		if !IsYouTubeURL(url) {
			fmt.Fprintln(p.out, "Please provide a valid YouTube URL.")
			continue
		}
		return url, nil
	}
}

// MaxVideos prompts for the per-source result cap, defaulting on empty
// input and re-prompting on non-numeric or non-positive values.
func (p *Prompter) MaxVideos() (int, error) {
	fmt.Fprintf(p.out, "\nMaximum videos to scrape per URL? (Enter for default: %d)\n", defaultMaxVideos)

	for {
		raw, err := p.readLine(fmt.Sprintf("Max videos [%d]: ", defaultMaxVideos))
		if err != nil {
			return 0, err
		}
		if raw == "" {
			return defaultMaxVideos, nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			fmt.Fprintln(p.out, "Please enter a valid number.")
			continue
		}
		if n <= 0 {
			fmt.Fprintln(p.out, "Please enter a positive number.")
			continue
		}
		return n, nil
	}
}

// UseTasks asks whether to use reusable remote tasks. Defaults to no.
func (p *Prompter) UseTasks() (bool, error) {
	fmt.Fprintln(p.out, "\nUse reusable scraper tasks? Recommended for repeated runs of the same URLs.")

	answer, err := p.readLine("Use tasks? [y/N]: ")
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

// IsYouTubeURL reports whether s looks like a YouTube URL.
func IsYouTubeURL(s string) bool {
	return strings.Contains(s, "youtube.com") || strings.Contains(s, "youtu.be")
}

// ReadURLFile reads a URL list file: one URL per line, blank lines and
// #-prefixed lines skipped.
func ReadURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return urls, nil
}
