package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"megafacil/backtest"
	"megafacil/config"
	historytestutil "megafacil/history/testutil"
)

func writeHistory(t *testing.T, draws int) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("concurso,n1,n2,n3,n4,n5,n6\n")
	for _, draw := range historytestutil.GenerateDraws(draws, 5) {
		fmt.Fprintf(&b, "%d", draw.SequenceID)
		for _, n := range draw.Numbers {
			fmt.Fprintf(&b, ",%d", n)
		}
		b.WriteString("\n")
	}

	path := filepath.Join(t.TempDir(), "history.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ENVIRONMENT", "test")
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

func TestPreview(t *testing.T) {
	path := writeHistory(t, 120)

	out, err := execute(t, "preview", "--history", path, "--cards", "2", "--combos", "3", "--seed", "test", "--window", "20")
	require.NoError(t, err)

	var result previewOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))

	assert.Equal(t, int64(120), result.LastSequenceID)
	assert.Equal(t, 20, result.WindowSize)
	assert.Len(t, result.Scores, 60)
	assert.Len(t, result.Groups.A, 12)
	require.Len(t, result.Cards, 2)
	assert.Equal(t, "card-001", result.Cards[0].ID)
	assert.Len(t, result.Cards[0].Combinations, 3)

	again, err := execute(t, "preview", "--history", path, "--cards", "2", "--combos", "3", "--seed", "test", "--window", "20")
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestPreview_MissingHistory(t *testing.T) {
	_, err := execute(t, "preview", "--history", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestBacktest(t *testing.T) {
	path := writeHistory(t, 30)

	out, err := execute(t, "backtest", "--history", path, "--window", "10", "--combos", "2", "--steps", "4", "--seed", "bt")
	require.NoError(t, err)

	var report backtest.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 4, report.DrawsEvaluated)
	assert.Equal(t, 8, report.TotalCombinations)
}

func TestCreditsAdjust_Validation(t *testing.T) {
	_, err := execute(t, "credits", "adjust", "--account", "someone", "--delta", "0")
	assert.Error(t, err)

	_, err = execute(t, "credits", "adjust", "--account", "someone", "--delta", "5", "--reason", "card_generation")
	assert.Error(t, err)
}

func TestMigrate_RequiresDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := execute(t, "migrate", "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
}
