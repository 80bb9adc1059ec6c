package content_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/sncontent/pkg/content"
)

var errRejected = errors.New("rejected")

func collect(bag *content.ParameterBag) [][2]string {
	var out [][2]string
	for k, v := range bag.All() {
		out = append(out, [2]string{k, v})
	}

	return out
}

func TestParameterBag_PassThrough(t *testing.T) {
	t.Parallel()

	bag := content.NewParameterBag(nil, nil)

	require.NoError(t, bag.Add("first", "1"))
	require.NoError(t, bag.Add("second", "2"))
	require.NoError(t, bag.Add("first", "3"))

	assert.Equal(t, 3, bag.Len())
	assert.Equal(t, [][2]string{{"first", "1"}, {"second", "2"}, {"first", "3"}}, collect(bag))

	value, ok := bag.Get("FIRST")
	assert.True(t, ok)
	assert.Equal(t, "1", value)
}

func TestParameterBag_Set(t *testing.T) {
	t.Parallel()

	bag := content.NewParameterBag(nil, nil)

	require.NoError(t, bag.Set("custom", "1"))
	require.NoError(t, bag.Add("other", "x"))
	require.NoError(t, bag.Add("custom", "dup"))
	require.NoError(t, bag.Set("CUSTOM", "2"))

	assert.Equal(t, [][2]string{{"custom", "2"}, {"other", "x"}}, collect(bag))
}

func TestParameterBag_Hooks(t *testing.T) {
	t.Parallel()

	var (
		typed   string
		removed []string
	)

	onAdd := func(key, value string) (bool, error) {
		if !strings.EqualFold(key, "known") {
			return false, nil
		}

		if value == "bad" {
			return false, errRejected
		}

		typed = value

		return true, nil
	}
	onRemove := func(key string) bool {
		removed = append(removed, key)
		if strings.EqualFold(key, "known") {
			typed = ""

			return true
		}

		return false
	}

	bag := content.NewParameterBag(onAdd, onRemove)

	t.Run("well-known keys are not stored", func(t *testing.T) {
		require.NoError(t, bag.Add("Known", "v1"))
		assert.Equal(t, "v1", typed)
		assert.False(t, bag.Has("known"))
		assert.Equal(t, 0, bag.Len())
	})

	t.Run("rejected values leave the bag unchanged", func(t *testing.T) {
		require.NoError(t, bag.Add("free", "x"))

		err := bag.Add("known", "bad")
		require.ErrorIs(t, err, errRejected)
		assert.Equal(t, "v1", typed)
		assert.Equal(t, [][2]string{{"free", "x"}}, collect(bag))
	})

	t.Run("remove resets the typed field", func(t *testing.T) {
		bag.Remove("known")
		assert.Empty(t, typed)

		bag.Remove("free")
		assert.Equal(t, 0, bag.Len())
		assert.Equal(t, []string{"known", "free"}, removed)
	})
}

func TestParameterBag_IterationStopsEarly(t *testing.T) {
	t.Parallel()

	bag := content.NewParameterBag(nil, nil)
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, bag.Add(k, k))
	}

	var seen []string

	for k := range bag.All() {
		seen = append(seen, k)
		if k == "b" {
			break
		}
	}

	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestParameterBag_ParametersIsCopy(t *testing.T) {
	t.Parallel()

	bag := content.NewParameterBag(nil, nil)
	require.NoError(t, bag.Add("a", "1"))

	params := bag.Parameters()
	params[0].Value = "changed"

	value, _ := bag.Get("a")
	assert.Equal(t, "1", value)
}
