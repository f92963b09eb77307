package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"go-deep-research/internal/sessionstore"
)

type sessionView struct {
	ID         string `json:"id"`
	Question   string `json:"question"`
	Status     string `json:"status"`
	Answer     string `json:"answer"`
	Error      string `json:"error"`
	TokensUsed uint64 `json:"tokens_used"`
	References []struct {
		URL   string `json:"URL"`
		Title string `json:"Title"`
	} `json:"references"`
}

// newListCommand lists research sessions. With --server it asks a running
// research-server; without one it reads the local bbolt history that
// `run` (without --server) leaves behind.
func newListCommand() *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List research sessions, from a research-server or local history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if serverURL != "" {
				var resp struct {
					Sessions []sessionView `json:"sessions"`
				}
				if err := getJSON(cmd.Context(), serverURL+"/research", &resp); err != nil {
					return err
				}
				for _, s := range resp.Sessions {
					fmt.Printf("%s\t%-12s\t%s\n", s.ID, s.Status, s.Question)
				}
				return nil
			}

			history := openLocalHistory()
			if history == nil {
				return fmt.Errorf("no local history and no --server given")
			}
			defer history.Close()
			sessions, err := history.List(cmd.Context(), 0)
			if err != nil {
				return err
			}
			for _, s := range sessions {
				fmt.Printf("%s\t%-12s\t%s\n", s.ID, s.Status, s.Question)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "base URL of a running research-server; omit to read local history")
	return cmd
}

func newGetCommand() *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Fetch one research session's current state, from a research-server or local history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if serverURL != "" {
				var s sessionView
				if err := getJSON(cmd.Context(), serverURL+"/research/"+args[0], &s); err != nil {
					return err
				}
				return printSessionView(s)
			}

			history := openLocalHistory()
			if history == nil {
				return fmt.Errorf("no local history and no --server given")
			}
			defer history.Close()
			sess, err := history.Get(cmd.Context(), args[0])
			if errors.Is(err, sessionstore.ErrNotFound) {
				return fmt.Errorf("no session %q in local history", args[0])
			}
			if err != nil {
				return err
			}
			return printSessionView(sessionToView(sess))
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "base URL of a running research-server; omit to read local history")
	return cmd
}

func sessionToView(s sessionstore.Session) sessionView {
	view := sessionView{
		ID:         s.ID,
		Question:   s.Question,
		Status:     string(s.Status),
		Answer:     s.Answer,
		Error:      s.Error,
		TokensUsed: s.TokensUsed,
	}
	for _, ref := range s.References {
		view.References = append(view.References, struct {
			URL   string `json:"URL"`
			Title string `json:"Title"`
		}{URL: ref.URL, Title: ref.Title})
	}
	return view
}

// runAgainstServer starts a session on a remote research-server and polls
// it to completion, driving the same indeterminate progress bar the
// in-process path uses.
func runAgainstServer(ctx context.Context, serverURL, question string) error {
	body, _ := json.Marshal(map[string]string{"question": question})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serverURL+"/research", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("research-server rejected the request: %s", string(data))
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return fmt.Errorf("decoding session id: %w", err)
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("researching"),
		progressbar.OptionSpinnerType(14),
	)

	for {
		var s sessionView
		if err := getJSON(ctx, serverURL+"/research/"+created.ID, &s); err != nil {
			return err
		}
		bar.Add(1)

		switch s.Status {
		case "completed":
			bar.Finish()
			return printSessionView(s)
		case "failed":
			bar.Finish()
			return fmt.Errorf("research failed: %s", s.Error)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request to %s failed: %s", url, string(data))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func printSessionView(s sessionView) error {
	if s.Status == "failed" {
		return fmt.Errorf("research failed: %s", s.Error)
	}
	fmt.Println(s.Answer)
	if len(s.References) > 0 {
		fmt.Println("\nReferences:")
		for _, r := range s.References {
			fmt.Printf("- %s (%s)\n", r.Title, r.URL)
		}
	}
	return nil
}
