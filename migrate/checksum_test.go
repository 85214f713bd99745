/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migrate

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAggregateChecksum(t *testing.T) {
	a := Entry{Name: "1.2.0_a.sql", Checksum: ContentChecksum([]byte("a"))}
	b := Entry{Name: "1.2.0_b.sql", Checksum: ContentChecksum([]byte("b"))}

	t.Run("single entry keeps its own checksum", func(t *testing.T) {
		require.Equal(t, a.Checksum, AggregateChecksum([]Entry{a}))
	})

	t.Run("single entry without checksum", func(t *testing.T) {
		require.Empty(t, AggregateChecksum([]Entry{{Name: "1.0.0.sql"}}))
	})

	t.Run("several entries hash names joined by newline", func(t *testing.T) {
		sum := sha256.Sum256([]byte("1.2.0_a.sql\n1.2.0_b.sql"))
		require.Equal(t, hex.EncodeToString(sum[:]), AggregateChecksum([]Entry{a, b}))
	})

	t.Run("deterministic and order-sensitive", func(t *testing.T) {
		require.Equal(t, AggregateChecksum([]Entry{a, b}), AggregateChecksum([]Entry{a, b}))
		require.NotEqual(t, AggregateChecksum([]Entry{a, b}), AggregateChecksum([]Entry{b, a}))
	})

	t.Run("contents do not affect the aggregate of several entries", func(t *testing.T) {
		changed := a
		changed.Checksum = ContentChecksum([]byte("changed"))
		require.Equal(t, AggregateChecksum([]Entry{a, b}), AggregateChecksum([]Entry{changed, b}))
	})

	t.Run("renaming changes the aggregate", func(t *testing.T) {
		renamed := a
		renamed.Name = "1.2.0_c.sql"
		require.NotEqual(t, AggregateChecksum([]Entry{a, b}), AggregateChecksum([]Entry{renamed, b}))
	})
}

func TestContentChecksum(t *testing.T) {
	// SHA-256 of the empty input.
	require.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", ContentChecksum(nil))
	require.Len(t, ContentChecksum([]byte("SELECT 1;")), 64)
}
