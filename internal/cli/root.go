// Package cli implements the kindredctl admin commands. Every command is a
// thin HTTP call against the running service's admin surface.
package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var serverAddr string

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "kindredctl",
	Short: "Operate the kindred engagement scheduler",
	Long:  "Admin CLI for the kindred service: inspect scheduler health, force a cycle, toggle testing mode, seed development entries.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&serverAddr, "server", "s", "", "Service address (default: $KINDRED_ADDR or http://localhost:8791)")
}

func baseURL() string {
	if serverAddr != "" {
		return serverAddr
	}
	if env := os.Getenv("KINDRED_ADDR"); env != "" {
		return env
	}
	return "http://localhost:8791"
}

var httpClient = &http.Client{Timeout: 5 * time.Minute}

func call(method, path string, body any) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, baseURL()+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s %s: http %d: %s", method, path, resp.StatusCode, out)
	}
	return out, nil
}

func printJSON(raw []byte) {
	var v any
	if json.Unmarshal(raw, &v) == nil {
		if b, err := json.MarshalIndent(v, "", "  "); err == nil {
			fmt.Println(string(b))
			return
		}
	}
	fmt.Println(string(raw))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
