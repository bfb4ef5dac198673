package tracker_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	flowerrors "gitflow.dev/gitflow/internal/errors"
	"gitflow.dev/gitflow/internal/tracker"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		" Just a story name ":                             "just-a-story-name",
		"Just_a_story_name":                               "just_a_story_name",
		"Just_a_story_name_but_a_very_long_one_indeed...": "just_a_story_name_but_a_",
		"Just a story name but a very long one indeed...": "just-a-story-name-but-a",
		"Fix: login (again!)":                             "fix-login-again",
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			require.Equal(t, want, tracker.Slugify(in, tracker.DefaultSlugLength))
		})
	}
}

func TestBoldPart(t *testing.T) {
	t.Run("extracts the bold part", func(t *testing.T) {
		require.Equal(t, "This is the bold part", tracker.BoldPart("*This is the bold part*, this is not."))
	})

	t.Run("returns names without markup unchanged", func(t *testing.T) {
		require.Equal(t, "Plain name", tracker.BoldPart("Plain name"))
	})
}

func TestItemIDFromBranch(t *testing.T) {
	t.Run("reads prefixed branch names", func(t *testing.T) {
		id, err := tracker.ItemIDFromBranch("feature/123/login")
		require.NoError(t, err)
		require.Equal(t, int64(123), id)

		id, err = tracker.ItemIDFromBranch("feature/77-signup")
		require.NoError(t, err)
		require.Equal(t, int64(77), id)
	})

	t.Run("reads names with the prefix stripped", func(t *testing.T) {
		id, err := tracker.ItemIDFromBranch("42/checkout")
		require.NoError(t, err)
		require.Equal(t, int64(42), id)
	})

	t.Run("takes the id from the first segment after the prefix", func(t *testing.T) {
		id, err := tracker.ItemIDFromBranch("feature/42/2fa-login")
		require.NoError(t, err)
		require.Equal(t, int64(42), id)

		id, err = tracker.ItemIDFromBranch("42/2fa-login")
		require.NoError(t, err)
		require.Equal(t, int64(42), id)
	})

	t.Run("rejects names without an id", func(t *testing.T) {
		_, err := tracker.ItemIDFromBranch("feature/login")
		require.ErrorIs(t, err, flowerrors.ErrIllegalBranchName)
	})
}

func TestValidateSlug(t *testing.T) {
	require.NoError(t, tracker.ValidateSlug("login-page"))
	require.ErrorIs(t, tracker.ValidateSlug("login page"), flowerrors.ErrIllegalBranchName)
	require.ErrorIs(t, tracker.ValidateSlug("login/page"), flowerrors.ErrIllegalBranchName)
	require.ErrorIs(t, tracker.ValidateSlug(""), flowerrors.ErrIllegalBranchName)
}
