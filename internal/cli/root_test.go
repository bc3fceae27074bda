package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listOutput struct {
	Transactions []struct {
		ID     string `json:"id"`
		Title  string `json:"title"`
		Status string `json:"status"`
	} `json:"transactions"`
	ActiveTransactionID string         `json:"activeTransactionId"`
	Pending             int            `json:"pending"`
	Counts              map[string]int `json:"counts"`
}

// newProject creates a project directory with a txq.toml and makes it the
// working directory
func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	toml := `[networks.local]
chain_id = 31337
rpc_url = "http://127.0.0.1:8545"

[networks.base]
chain_id = 8453
rpc_url = "${TXQ_TEST_UNSET_RPC}"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "txq.toml"), []byte(toml), 0644))
	t.Chdir(dir)
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--non-interactive"))
	err := cmd.Execute()
	return out.String(), err
}

func listQueue(t *testing.T) listOutput {
	t.Helper()
	out, err := run(t, "list", "--json")
	require.NoError(t, err)
	var list listOutput
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	return list
}

func addDrafts(t *testing.T, dir string, content string) {
	t.Helper()
	path := filepath.Join(dir, "drafts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	_, err := run(t, "add", "--file", path)
	require.NoError(t, err)
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "txq version dev")
}

func TestQueueCommands(t *testing.T) {
	dir := newProject(t)

	assert.Empty(t, listQueue(t).Transactions)

	addDrafts(t, dir, `
- {title: first, chainId: 31337, type: deposit}
- {title: second, chainId: 31337, type: withdraw}
- {title: third, chainId: 31337, type: deposit}
`)

	// The queue survives across invocations
	list := listQueue(t)
	require.Len(t, list.Transactions, 3)
	assert.Equal(t, "first", list.Transactions[0].Title)
	assert.Equal(t, "pending", list.Transactions[0].Status)
	assert.Equal(t, list.Transactions[0].ID, list.ActiveTransactionID)
	assert.Equal(t, 3, list.Pending)
	assert.Equal(t, 3, list.Counts["pending"])

	first, second, third := list.Transactions[0].ID, list.Transactions[1].ID, list.Transactions[2].ID

	t.Run("show by prefix", func(t *testing.T) {
		out, err := run(t, "show", second[:8], "--json")
		require.NoError(t, err)
		assert.Contains(t, out, `"title": "second"`)
	})

	t.Run("filter by type", func(t *testing.T) {
		out, err := run(t, "list", "--json", "--type", "deposit")
		require.NoError(t, err)
		assert.NotContains(t, out, `"second"`)
	})

	t.Run("move and reorder", func(t *testing.T) {
		_, err := run(t, "move", third, "up")
		require.NoError(t, err)
		list := listQueue(t)
		assert.Equal(t, []string{first, third, second}, ids(list))

		_, err = run(t, "reorder", second)
		require.NoError(t, err)
		list = listQueue(t)
		assert.Equal(t, []string{second, first, third}, ids(list))

		_, err = run(t, "move", first, "sideways")
		assert.Error(t, err)
	})

	t.Run("cancel", func(t *testing.T) {
		_, err := run(t, "cancel", third)
		require.NoError(t, err)
		assert.Equal(t, []string{second, first}, ids(listQueue(t)))

		_, err = run(t, "cancel", third)
		assert.Error(t, err)
	})

	t.Run("retry needs a failed transaction", func(t *testing.T) {
		_, err := run(t, "retry", first)
		assert.Error(t, err)
	})

	t.Run("remove", func(t *testing.T) {
		_, err := run(t, "remove", second)
		require.NoError(t, err)
		assert.Len(t, listQueue(t).Transactions, 1)

		_, err = run(t, "remove", "does-not-exist")
		assert.Error(t, err)
	})

	t.Run("clear all needs confirmation", func(t *testing.T) {
		_, err := run(t, "clear", "--all")
		assert.Error(t, err)

		_, err = run(t, "clear", "--all", "--yes")
		require.NoError(t, err)
		assert.Empty(t, listQueue(t).Transactions)
	})
}

func TestExecRequiresNetwork(t *testing.T) {
	dir := newProject(t)
	addDrafts(t, dir, "title: lonely\nchainId: 31337\n")

	_, err := run(t, "exec", "--all")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signer")
}

func TestNetworksCmd(t *testing.T) {
	newProject(t)

	out, err := run(t, "networks", "--json", "--network", "local")
	require.NoError(t, err)

	var statuses []networkStatus
	require.NoError(t, json.Unmarshal([]byte(out), &statuses))
	require.Len(t, statuses, 2)

	assert.Equal(t, "base", statuses[0].Name)
	assert.Contains(t, statuses[0].Error, "TXQ_TEST_UNSET_RPC")
	assert.Equal(t, "local", statuses[1].Name)
	assert.Equal(t, uint64(31337), statuses[1].ChainID)
	assert.True(t, statuses[1].Selected)
}

type pruneOutput struct {
	Candidates []struct {
		ID string `json:"id"`
	} `json:"candidates"`
	Removed   int    `json:"removed"`
	Retention string `json:"retention"`
	DryRun    bool   `json:"dryRun"`
}

// seedQueue writes a queue record with one stale completed entry, one stale
// pending entry and one fresh completed entry
func seedQueue(t *testing.T, dir string) string {
	t.Helper()
	stale := time.Now().Add(-48 * time.Hour).UTC().Format(time.RFC3339)
	fresh := time.Now().UTC().Format(time.RFC3339)
	record := fmt.Sprintf(`{
  "version": 2,
  "transactions": [
    {"id": "stale-done", "title": "old deposit", "chainId": 31337, "type": "deposit", "status": "completed", "txHash": "0x01", "createdAt": %q, "updatedAt": %q},
    {"id": "stale-pending", "title": "old withdraw", "chainId": 31337, "type": "withdraw", "status": "pending", "createdAt": %q, "updatedAt": %q},
    {"id": "fresh-done", "title": "new deposit", "chainId": 31337, "type": "deposit", "status": "completed", "txHash": "0x02", "createdAt": %q, "updatedAt": %q}
  ],
  "activeTransactionId": null
}`, stale, stale, stale, stale, fresh, fresh)

	path := filepath.Join(dir, ".txq", "queue.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(record), 0644))
	return path
}

func runPrune(t *testing.T, args ...string) pruneOutput {
	t.Helper()
	out, err := run(t, append([]string{"prune", "--json"}, args...)...)
	require.NoError(t, err)
	var result pruneOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	return result
}

func TestPruneCmd(t *testing.T) {
	dir := newProject(t)
	path := seedQueue(t, dir)

	t.Run("dry run lists stale entries and keeps them", func(t *testing.T) {
		result := runPrune(t, "--dry-run")
		require.Len(t, result.Candidates, 1)
		assert.Equal(t, "stale-done", result.Candidates[0].ID)
		assert.Equal(t, 0, result.Removed)
		assert.True(t, result.DryRun)
		assert.Equal(t, "24h0m0s", result.Retention)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"stale-done"`)
	})

	t.Run("prune removes them", func(t *testing.T) {
		result := runPrune(t)
		require.Len(t, result.Candidates, 1)
		assert.Equal(t, 1, result.Removed)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotContains(t, string(data), `"stale-done"`)
		assert.Equal(t, []string{"stale-pending", "fresh-done"}, ids(listQueue(t)))
	})

	t.Run("nothing left to prune", func(t *testing.T) {
		result := runPrune(t)
		assert.Empty(t, result.Candidates)
		assert.Equal(t, 0, result.Removed)
	})
}

func TestOtherCommandsPruneOnLoad(t *testing.T) {
	dir := newProject(t)
	seedQueue(t, dir)

	assert.Equal(t, []string{"stale-pending", "fresh-done"}, ids(listQueue(t)))
}

func ids(list listOutput) []string {
	out := make([]string, len(list.Transactions))
	for i, tx := range list.Transactions {
		out[i] = tx.ID
	}
	return out
}
