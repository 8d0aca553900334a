package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultRecent = 5

var errQuit = errors.New("quit")

// Shell is a line-oriented front end over Client and History.
type Shell struct {
	Client  *Client
	History *History
	Model   string
	Out     io.Writer
}

func NewShell(c *Client, model string, out io.Writer) *Shell {
	return &Shell{Client: c, History: NewHistory(), Model: model, Out: out}
}

// Run executes commands from in until EOF or quit. Command errors are
// printed and do not stop the loop.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 8<<20)
	s.prompt()
	for scanner.Scan() {
		err := s.Exec(ctx, scanner.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(s.Out, "error: %v\n", err)
		}
		s.prompt()
	}
	return scanner.Err()
}

func (s *Shell) prompt() {
	fmt.Fprintf(s.Out, "[%s]> ", s.Model)
}

func (s *Shell) Exec(ctx context.Context, line string) error {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(cmd) {
	case "":
		return nil
	case "help":
		s.help()
		return nil
	case "quit", "exit":
		return errQuit
	case "status":
		info, err := s.Client.CheckStatus(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.Out, "App: %s\nVersion: %s\nStatus: %s\n", info.AppName, info.Version, info.Status)
		return nil
	case "models":
		list, err := s.Client.Models(ctx)
		if err != nil {
			return err
		}
		for _, m := range list {
			fmt.Fprintf(s.Out, "%-16s %-22s probabilities=%t classes=%v\n", m.Name, m.Kind, m.Probabilities, m.Classes)
		}
		return nil
	case "use":
		if arg == "" {
			return errors.New("usage: use <model>")
		}
		s.Model = arg
		return nil
	case "predict":
		if arg == "" {
			return errors.New("usage: predict <json>")
		}
		inputs, err := ReadJSONBatch(strings.NewReader(arg))
		if err != nil {
			return err
		}
		return s.predict(ctx, inputs)
	case "load":
		if arg == "" {
			return errors.New("usage: load <file.json|file.csv>")
		}
		inputs, err := loadFile(arg)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.Out, "Loaded %d samples from %s\n", len(inputs), arg)
		return s.predict(ctx, inputs)
	case "history":
		n := defaultRecent
		if arg != "" {
			v, err := strconv.Atoi(arg)
			if err != nil || v <= 0 {
				return errors.New("usage: history [n]")
			}
			n = v
		}
		s.history(n)
		return nil
	case "stats":
		total, usage := s.History.Stats()
		fmt.Fprintf(s.Out, "Total predictions: %d\n", total)
		for _, u := range usage {
			fmt.Fprintf(s.Out, "- %s: %d predictions\n", u.Model, u.Predictions)
		}
		return nil
	case "clear":
		s.History.Clear()
		fmt.Fprintln(s.Out, "History cleared!")
		return nil
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
}

func (s *Shell) predict(ctx context.Context, inputs []map[string]any) error {
	resp, err := s.Client.Predict(ctx, s.Model, inputs)
	if err != nil {
		return fmt.Errorf("prediction failed: %w", err)
	}
	s.History.Add(s.Model, inputs, resp)
	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(s.Out, string(out))
	return nil
}

func (s *Shell) history(n int) {
	recent := s.History.Recent(n)
	if len(recent) == 0 {
		fmt.Fprintln(s.Out, "No predictions made yet.")
		return
	}
	for i, e := range recent {
		fmt.Fprintf(s.Out, "#%d %s model=%s samples=%d\n", len(recent)-i, e.Time.Format("2006-01-02 15:04:05"), e.Model, len(e.Inputs))
	}
}

func (s *Shell) help() {
	fmt.Fprint(s.Out, `Commands:
  status              check the API connection and key
  models              list registered models
  use <model>         select the model for predictions
  predict <json>      predict a JSON record, array or {"inputs": [...]}
  load <file>         predict every record of a .json or .csv file
  history [n]         show the last n predictions (default 5)
  stats               prediction counts per model
  clear               clear the session history
  quit                leave
`)
}

func loadFile(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return ReadCSVBatch(f)
	}
	return ReadJSONBatch(f)
}
