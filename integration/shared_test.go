//go:build basic || database

// Package integration contains end-to-end tests for the sca binary.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags basic ./integration
// With database containers: go test -tags database ./integration
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/huangsam/sca/schema"
	"github.com/stretchr/testify/require"
)

var (
	// sharedBinaryPath holds the path to a shared sca binary built once for all tests.
	sharedBinaryPath string

	// buildOnce ensures we only build the binary once.
	buildOnce sync.Once

	// buildMutex protects the shared binary path.
	buildMutex sync.Mutex

	// tempDir holds the temp directory for cleanup.
	tempDir string
)

// TestMain handles setup and cleanup for all integration tests.
func TestMain(m *testing.M) {
	// Run all tests
	code := m.Run()

	// Cleanup the shared binary after all tests
	if tempDir != "" {
		_ = os.RemoveAll(tempDir)
	}

	os.Exit(code)
}

// getBinary returns the path to the sca binary, building it once if needed.
func getBinary() string {
	buildMutex.Lock()
	defer buildMutex.Unlock()

	buildOnce.Do(func() {
		// Create a temp directory for the binary
		var err error
		tempDir, err = os.MkdirTemp("", "sca-integration-*")
		if err != nil {
			panic(fmt.Sprintf("failed to create temp dir: %v", err))
		}

		binaryPath := filepath.Join(tempDir, "sca")
		buildCmd := exec.Command("go", "build", "-o", binaryPath, ".")
		buildCmd.Dir = ".." // Build from parent directory (project root)
		if err := buildCmd.Run(); err != nil {
			panic(fmt.Sprintf("failed to build sca: %v", err))
		}

		sharedBinaryPath = binaryPath
	})

	return sharedBinaryPath
}

// runSCA runs the binary with env appended to the process environment and returns stdout.
func runSCA(t *testing.T, env []string, args ...string) string {
	t.Helper()
	cmd := exec.Command(getBinary(), args...)
	cmd.Dir = t.TempDir() // Keep any .sca.yaml of the project out of the way
	cmd.Env = append(os.Environ(), env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		t.Logf("Command failed: %s\nStderr: %s", cmd.String(), stderr.String())
	}
	require.NoError(t, err)
	return stdout.String()
}

// runListing runs a listing command with JSON output and decodes the envelope.
func runListing(t *testing.T, env []string, args ...string) schema.AffectedItemsResult {
	t.Helper()
	out := runSCA(t, env, append(args, "--output", "json")...)
	var result schema.AffectedItemsResult
	require.NoError(t, json.Unmarshal([]byte(out), &result), out)
	return result
}

// exerciseBackend seeds agent 001 and runs the listings every backend must agree on.
func exerciseBackend(t *testing.T, env []string) {
	t.Helper()

	runSCA(t, env, "db", "seed", "001")
	runSCA(t, env, "db", "status", "001")

	policies := runListing(t, env, "policies", "001", "--sort", "-score")
	require.Equal(t, 2, policies.TotalAffectedItems)
	require.Equal(t, "cis_debian10", policies.AffectedItems[0]["policy_id"])
	require.Equal(t, "All selected sca information was returned", policies.Message)

	filtered := runListing(t, env, "policies", "001", "--q", "score<55", "--select", "policy_id")
	require.Equal(t, 1, filtered.TotalAffectedItems)
	require.Equal(t, "sca_unix_audit", filtered.AffectedItems[0]["policy_id"])

	checks := runListing(t, env, "checks", "001", "--policy-id", "cis_debian10", "--q", "compliance.key=pci_dss")
	require.Equal(t, 2, checks.TotalAffectedItems)

	searched := runListing(t, env, "checks", "001", "-p", "cis_debian10", "--search", "ssh", "--select", "id,title")
	require.Equal(t, 1, searched.TotalAffectedItems)
	require.EqualValues(t, 3002, searched.AffectedItems[0]["id"])
}
