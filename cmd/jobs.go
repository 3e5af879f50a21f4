package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	jobsServer string
	jobsCancel bool
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "Query a running detection server",
	Long: `Without arguments, lists the jobs on a dotscan server. With a job ID,
shows that job's status; --cancel stops it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func init() {
	jobsCmd.Flags().StringVar(&jobsServer, "server", "http://localhost:8080", "Server URL")
	jobsCmd.Flags().BoolVar(&jobsCancel, "cancel", false, "Cancel the given job")

	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	base := strings.TrimRight(jobsServer, "/")

	if len(args) == 0 {
		if jobsCancel {
			return fmt.Errorf("--cancel requires a job ID")
		}
		return listJobs(base)
	}

	jobID := args[0]
	if jobsCancel {
		return cancelJob(base, jobID)
	}
	return showJob(base, jobID)
}

func listJobs(base string) error {
	var jobs []map[string]interface{}
	if err := getJSON(base+"/api/jobs", &jobs); err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Println("No jobs.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATE\tSTAGE\tSOURCE\t")
	for _, job := range jobs {
		source := ""
		if req, ok := job["request"].(map[string]interface{}); ok {
			source, _ = req["source"].(string)
		}
		fmt.Fprintf(w, "%v\t%v\t%v\t%s\t\n", job["id"], job["state"], stringOr(job["stage"], "-"), source)
	}
	return w.Flush()
}

func showJob(base, jobID string) error {
	var status map[string]interface{}
	if err := getJSON(base+"/api/jobs/"+jobID, &status); err != nil {
		return err
	}

	fmt.Printf("Job: %v\n", status["id"])
	fmt.Printf("State: %v\n", status["state"])
	if stage, ok := status["stage"].(string); ok && stage != "" {
		fmt.Printf("Stage: %s\n", stage)
	}
	if circles, ok := status["circles"].(float64); ok {
		fmt.Printf("Circles: %.0f\n", circles)
	}
	if elapsed, ok := status["elapsed"].(float64); ok {
		fmt.Printf("Elapsed: %.1fs\n", elapsed)
	}
	if errMsg, ok := status["error"].(string); ok && errMsg != "" {
		fmt.Printf("Error: %s\n", errMsg)
	}
	if req, ok := status["request"].(map[string]interface{}); ok {
		if source, ok := req["source"].(string); ok {
			fmt.Printf("Source: %s\n", source)
		}
	}
	return nil
}

func cancelJob(base, jobID string) error {
	req, err := http.NewRequest(http.MethodDelete, base+"/api/jobs/"+jobID, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("cancel failed: %s", readError(resp))
	}
	fmt.Printf("Cancelled job %s\n", jobID)
	return nil
}

func getJSON(url string, v interface{}) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", readError(resp))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// readError condenses a non-2xx response to "status: body".
func readError(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return resp.Status
	}
	return fmt.Sprintf("%s: %s", resp.Status, msg)
}

func stringOr(v interface{}, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}
