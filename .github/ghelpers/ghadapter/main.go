package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// ghadapter runs bin/diff or bin/capture and exposes their JSON verdict as step outputs.
// A failed visual check still publishes its outputs and keeps the command's exit code.
func main() {
	if len(os.Args) < 2 {
		os.Exit(1)
	}

	cmd := exec.Command(os.Args[1], os.Args[2:]...)
	cmd.Stdin = os.Stdin
	cmd.Stderr = os.Stderr

	code := 0
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		code = exitErr.ExitCode()
	}
	_, _ = os.Stdout.Write(output)

	var result map[string]interface{}
	if err := json.Unmarshal(output, &result); err != nil {
		os.Exit(code)
	}

	if githubOutput := os.Getenv("GITHUB_OUTPUT"); githubOutput != "" {
		f, err := os.OpenFile(githubOutput, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		writeOutputs(f, result)
		_ = f.Close()
	}
	os.Exit(code)
}

func writeOutputs(w io.Writer, result map[string]interface{}) {
	for key, value := range result {
		switch v := value.(type) {
		case map[string]interface{}, []interface{}:
			data, err := json.Marshal(v)
			if err != nil {
				continue
			}
			_, _ = fmt.Fprintf(w, "%s=%s\n", key, data)
		default:
			_, _ = fmt.Fprintf(w, "%s=%v\n", key, v)
		}
	}
}
