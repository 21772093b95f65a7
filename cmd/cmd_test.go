package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return out.String(), err
}

func TestBuiltinsCmd(t *testing.T) {
	out, err := runCommand(t, "builtins")
	require.NoError(t, err)
	assert.Equal(t, "cd\nexit\nhelp\nhistory\njobs\nkill\n", out)
}

func TestInitCmd(t *testing.T) {
	dir := t.TempDir()

	out, err := runCommand(t, "init", "--config", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Writing config.yaml")
	assert.FileExists(t, filepath.Join(dir, "config.yaml"))

	out, err = runCommand(t, "init", "--config", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
}

func TestEventsReportCmd(t *testing.T) {
	dir := t.TempDir()
	_, err := runCommand(t, "init", "--config", dir)
	require.NoError(t, err)

	log := `{"timestamp_micros":1,"session_id":"s1","type":"session_start","status":0}
{"timestamp_micros":2,"session_id":"s1","type":"command","args":["ls","-l"],"status":0}
{"timestamp_micros":3,"session_id":"s1","type":"job_started","job_id":1,"pid":99,"status":0}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "events.log"), []byte(log), 0600))

	out, err := runCommand(t, "events", "report", "--config", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "log_entries: 3")
	assert.Contains(t, out, "ls: 1")
	assert.Contains(t, out, "started: 1")
}

func TestEventsReportNoConfig(t *testing.T) {
	_, err := runCommand(t, "events", "report", "--config", t.TempDir())
	assert.Error(t, err)
}
