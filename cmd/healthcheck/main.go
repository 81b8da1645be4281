// Command healthcheck probes the local server's readiness endpoint.
// It exits non-zero unless /readyz answers 200, for container HEALTHCHECK use.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "10000"
	}
	path := "/readyz"
	if len(os.Args) > 1 && os.Args[1] == "live" {
		path = "/livez"
	}

	client := &http.Client{Timeout: 8 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://localhost:%s%s", port, path))
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "healthcheck: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = fmt.Fprintf(os.Stderr, "healthcheck: %s returned %d\n", path, resp.StatusCode)
		os.Exit(1)
	}
}
