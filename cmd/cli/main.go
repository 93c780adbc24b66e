package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/iho/rewardgraph/internal/adapter/csvreader"
	"github.com/iho/rewardgraph/internal/adapter/http/dto"
	"github.com/iho/rewardgraph/internal/adapter/render"
	"github.com/iho/rewardgraph/internal/domain"
	"github.com/iho/rewardgraph/internal/usecase"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rewardgraph-cli",
		Short: "RewardGraph CLI tool",
		Long:  `A command line interface for building reward relationship graphs and talking to the RewardGraph API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the RewardGraph API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")

	rootCmd.AddCommand(graphCmd(), datasetsCmd(), syncCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// filterFlags are shared by the graph and sync commands.
type filterFlags struct {
	actor string
	kinds []string
	start string
	end   string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.actor, "actor", "", "Only include records of this actor id or name")
	cmd.Flags().StringSliceVar(&f.kinds, "kind", nil, "Relationship kinds to include (Transfer, Spend, Received)")
	cmd.Flags().StringVar(&f.start, "start", "", "Window start (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&f.end, "end", "", "Window end, inclusive (YYYY-MM-DD or RFC 3339)")
}

func (f *filterFlags) criteria() (domain.FilterCriteria, error) {
	kinds, err := dto.ParseKinds(f.kinds)
	if err != nil {
		return domain.FilterCriteria{}, err
	}

	start, err := parseDate(f.start, false)
	if err != nil {
		return domain.FilterCriteria{}, fmt.Errorf("--start: %w", err)
	}
	end, err := parseDate(f.end, true)
	if err != nil {
		return domain.FilterCriteria{}, fmt.Errorf("--end: %w", err)
	}

	c := domain.FilterCriteria{Start: start, End: end, Actor: f.actor, Kinds: kinds}
	return c, c.Validate()
}

// parseDate parses a flag value. A plain end date covers the whole day.
func parseDate(value string, endOfDay bool) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}

	t, err := csvreader.ParseTimestamp(value)
	if err != nil {
		return nil, err
	}
	if endOfDay && len(strings.TrimSpace(value)) == len("2006-01-02") {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func graphCmd() *cobra.Command {
	var (
		filters   filterFlags
		file      string
		highlight string
		connect   []string
		htmlOut   string
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Build a relationship graph from a local CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := filters.criteria()
			if err != nil {
				return err
			}
			if highlight == "" && !strings.EqualFold(criteria.Actor, domain.AllActors) {
				highlight = criteria.Actor
			}

			result, err := buildLocalGraph(file, usecase.GraphRequest{
				Criteria:  criteria,
				Highlight: highlight,
				Links:     connectLinks(connect, highlight),
			})
			if err != nil {
				return err
			}

			if htmlOut == "" {
				printJSON(dto.GraphFromResult(file, result))
				return nil
			}

			var buf bytes.Buffer
			if err := render.HTML(&buf, render.Page{
				Title:   file,
				Caption: fmt.Sprintf("%d of %d records", result.Matched, result.Total),
				Graph:   result.Graph,
			}); err != nil {
				return err
			}
			if err := os.WriteFile(htmlOut, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", htmlOut, err)
			}
			fmt.Printf("Wrote %s (%d nodes, %d edges)\n", htmlOut, len(result.Graph.Nodes), len(result.Graph.Edges))
			return nil
		},
	}

	filters.register(cmd)
	cmd.Flags().StringVar(&file, "file", "", "CSV file to read")
	cmd.Flags().StringVar(&highlight, "highlight", "", "Actor to highlight (defaults to --actor)")
	cmd.Flags().StringSliceVar(&connect, "connect", nil, "Actors to link to the highlighted actor")
	cmd.Flags().StringVar(&htmlOut, "html", "", "Write an HTML page to this path instead of printing JSON")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func buildLocalGraph(path string, req usecase.GraphRequest) (*usecase.GraphResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	loaded, err := csvreader.Read(f)
	if err != nil {
		return nil, err
	}
	for _, p := range loaded.Problems {
		fmt.Fprintf(os.Stderr, "skipped %s\n", p.Error())
	}

	return usecase.NewPipeline(nil).Run(loaded.Records, req)
}

func connectLinks(actors []string, highlight string) []domain.Link {
	if highlight == "" {
		return nil
	}
	links := make([]domain.Link, 0, len(actors))
	for _, a := range actors {
		links = append(links, domain.Link{
			From: domain.NewEntityKey(a, ""),
			To:   domain.NewEntityKey(highlight, ""),
		})
	}
	return links
}

func datasetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datasets",
		Short: "Dataset operations",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List uploaded datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			var datasets []dto.DatasetResponse
			if err := doRequest(http.MethodGet, fmt.Sprintf("/api/v1/datasets/?limit=%d", limit), "", nil, &datasets); err != nil {
				return err
			}
			printDatasets(datasets, time.Now())
			return nil
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of datasets")

	uploadCmd := &cobra.Command{
		Use:   "upload [file]",
		Short: "Upload a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var resp dto.UploadResponse
			path := "/api/v1/datasets/?name=" + url.QueryEscape(filepath.Base(args[0]))
			if err := doRequest(http.MethodPost, path, "text/csv", content, &resp); err != nil {
				return err
			}
			printJSON(resp)
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := doRequest(http.MethodDelete, "/api/v1/datasets/"+args[0]+"/", "", nil, nil); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(listCmd, uploadCmd, deleteCmd)
	return cmd
}

func syncCmd() *cobra.Command {
	var (
		filters filterFlags
		dataset string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push a dataset to the graph database",
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := filters.criteria()
			if err != nil {
				return err
			}

			req := dto.SyncRequest{Actor: criteria.Actor, Start: criteria.Start, End: criteria.End}
			for _, k := range criteria.Kinds {
				req.Kinds = append(req.Kinds, string(k))
			}
			body, err := json.Marshal(req)
			if err != nil {
				return err
			}

			var resp dto.SyncResponse
			if err := doRequest(http.MethodPost, "/api/v1/datasets/"+dataset+"/sync", "application/json", body, &resp); err != nil {
				return err
			}
			fmt.Printf("Synced %d of %d records in %s\n", resp.Written, resp.Total, time.Duration(resp.DurationMS)*time.Millisecond)
			return nil
		},
	}

	filters.register(cmd)
	cmd.Flags().StringVar(&dataset, "dataset", "", "Dataset ID")
	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

func doRequest(method, path, contentType string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, strings.TrimRight(baseURL, "/")+path, reader)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr dto.ErrorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			if apiErr.Message != "" {
				return fmt.Errorf("%s (status %d): %s", apiErr.Error, resp.StatusCode, apiErr.Message)
			}
			return fmt.Errorf("%s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, truncate(string(data), 200))
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

func printDatasets(datasets []dto.DatasetResponse, now time.Time) {
	if len(datasets) == 0 {
		fmt.Println("No datasets.")
		return
	}

	fmt.Printf("%-26s  %-30s  %8s  %7s  %s\n", "ID", "NAME", "ROWS", "DROPPED", "UPLOADED")
	for _, d := range datasets {
		fmt.Printf("%-26s  %-30s  %8s  %7d  %s\n",
			d.ID,
			truncate(d.Name, 30),
			humanize.Comma(int64(d.RowCount)),
			d.DroppedRows,
			humanize.RelTime(d.CreatedAt, now, "ago", "from now"),
		)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
