package inbound

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisibleReply(t *testing.T) {
	t.Run("plain text passes through", func(t *testing.T) {
		assert.Equal(t, "Just a reply.", VisibleReply("Just a reply.\n"))
	})

	t.Run("strips trailing quoted block", func(t *testing.T) {
		in := "Sounds good, shipping it.\n" +
			"\n" +
			"On Mon, Jan 5, 2026 at 9:00 AM Reviewer <rev@example.com> wrote:\n" +
			"> Please confirm the fix.\n" +
			"> Thanks.\n"
		assert.Equal(t, "Sounds good, shipping it.", VisibleReply(in))
	})

	t.Run("strips wrapped quote header", func(t *testing.T) {
		in := "Done.\n" +
			"\n" +
			"On Mon, Jan 5, 2026 at 9:00 AM,\n" +
			"Reviewer <rev@example.com> wrote:\n" +
			"> Please confirm.\n"
		assert.Equal(t, "Done.", VisibleReply(in))
	})

	t.Run("strips signature", func(t *testing.T) {
		in := "See attached.\n\n-- \nRiley Developer\n"
		assert.Equal(t, "See attached.", VisibleReply(in))
	})

	t.Run("strips sent-from footer", func(t *testing.T) {
		in := "On my way.\n\nSent from my iPhone\n"
		assert.Equal(t, "On my way.", VisibleReply(in))
	})

	t.Run("keeps quote embedded above visible text", func(t *testing.T) {
		in := "> Did you test on stable?\n" +
			"Yes, both channels.\n"
		out := VisibleReply(in)
		assert.Contains(t, out, "> Did you test on stable?")
		assert.Contains(t, out, "Yes, both channels.")
	})

	t.Run("handles crlf line endings", func(t *testing.T) {
		in := "Confirmed.\r\n\r\n> earlier message\r\n"
		assert.Equal(t, "Confirmed.", VisibleReply(in))
	})
}
