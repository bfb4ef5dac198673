package tui_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"

	flowerrors "gitflow.dev/gitflow/internal/errors"
	"gitflow.dev/gitflow/internal/tui"
)

func TestSplog(t *testing.T) {
	t.Run("prefixes warnings, errors and tips", func(t *testing.T) {
		var buf bytes.Buffer
		s := tui.NewSplogWithWriter(&buf, false)

		s.Info("merging %s", "release/1.2.0")
		s.Warn("review %d pending", 7)
		s.Error("push failed")
		s.Tip("run git flow repair")

		out := buf.String()
		require.Contains(t, out, "merging release/1.2.0\n")
		require.Contains(t, out, "⚠️  review 7 pending\n")
		require.Contains(t, out, "❌ push failed\n")
		require.Contains(t, out, "💡 run git flow repair\n")
	})

	t.Run("hides debug unless enabled", func(t *testing.T) {
		var quiet, loud bytes.Buffer
		tui.NewSplogWithWriter(&quiet, false).Debug("secret")
		tui.NewSplogWithWriter(&loud, true).Debug("secret")

		require.Empty(t, quiet.String())
		require.Equal(t, "secret\n", loud.String())
	})

	t.Run("does not interpret percent signs without args", func(t *testing.T) {
		var buf bytes.Buffer
		tui.NewSplogWithWriter(&buf, false).Info("100% done")
		require.Equal(t, "100% done\n", buf.String())
	})

	t.Run("reports step outcome", func(t *testing.T) {
		lipgloss.SetColorProfile(termenv.Ascii)
		var buf bytes.Buffer
		s := tui.NewSplogWithWriter(&buf, false)

		s.Step("tagging %s", "1.2.0")
		s.StepDone()
		s.Step("pushing")
		s.StepFail(errors.New("rejected"))

		require.Equal(t, "tagging 1.2.0 ...\n    OK\npushing ...\n    FAIL: rejected\n", buf.String())
	})

	t.Run("mirrors messages into the log file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "gitflow.log")
		s, err := tui.NewSplogWithConfig(path, false)
		require.NoError(t, err)

		s.Debug("only in file")
		s.Info("in both")
		require.NoError(t, s.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Contains(t, string(data), "only in file")
		require.Contains(t, string(data), "in both")
		require.Contains(t, string(data), "level=DEBUG")
	})
}

func TestGetLogFilePath(t *testing.T) {
	t.Run("honors GITFLOW_LOG_FILE", func(t *testing.T) {
		t.Setenv("GITFLOW_LOG_FILE", "/tmp/custom.log")
		require.Equal(t, "/tmp/custom.log", tui.GetLogFilePath())
	})

	t.Run("defaults under the home directory", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("GITFLOW_LOG_FILE", "")
		t.Setenv("HOME", home)
		require.Equal(t, filepath.Join(home, ".gitflow", "logs", "gitflow.log"), tui.GetLogFilePath())
	})
}

func TestRenderStoryName(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)

	t.Run("strips bold markers", func(t *testing.T) {
		require.Equal(t, "Fix the login page", tui.RenderStoryName("Fix the *login* page"))
	})

	t.Run("drops escaped sections", func(t *testing.T) {
		require.Equal(t, "Import  data", tui.RenderStoryName("Import ==legacy== data"))
	})
}

func TestSurveyPrompter(t *testing.T) {
	t.Run("refuses to prompt without a terminal", func(t *testing.T) {
		p := &tui.SurveyPrompter{Interactive: false}

		_, err := p.Select("Pick a story", []string{"a"})
		require.ErrorIs(t, err, flowerrors.ErrNotInteractive)
		_, err = p.Input("Slug", "", nil)
		require.ErrorIs(t, err, flowerrors.ErrNotInteractive)
		_, err = p.Confirm("Continue?", true)
		require.ErrorIs(t, err, flowerrors.ErrNotInteractive)
	})

	t.Run("auto confirm agrees", func(t *testing.T) {
		p := tui.AutoConfirm{Prompter: &tui.SurveyPrompter{}}
		ok, err := p.Confirm("Continue?", false)
		require.NoError(t, err)
		require.True(t, ok)
	})
}
