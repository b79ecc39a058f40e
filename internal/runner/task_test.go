package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTask struct {
	name     string
	schedule string
}

func (t stubTask) Name() string              { return t.name }
func (t stubTask) Schedule() string          { return t.schedule }
func (t stubTask) Run(context.Context) error { return nil }
func (t stubTask) Timeout() time.Duration    { return time.Minute }

func TestTaskRegistry(t *testing.T) {
	t.Run("keeps registration order", func(t *testing.T) {
		reg := NewTaskRegistry()
		reg.Register(stubTask{name: "email-queue"})
		reg.Register(stubTask{name: "mailbox-poll"})
		reg.Register(stubTask{name: "maildir-scan"})

		names := make([]string, 0, 3)
		for _, task := range reg.All() {
			names = append(names, task.Name())
		}
		assert.Equal(t, []string{"email-queue", "mailbox-poll", "maildir-scan"}, names)
	})

	t.Run("re-registering a name replaces in place", func(t *testing.T) {
		reg := NewTaskRegistry()
		reg.Register(stubTask{name: "mailbox-poll", schedule: "0 * * * * *"})
		reg.Register(stubTask{name: "maildir-scan"})
		reg.Register(stubTask{name: "mailbox-poll", schedule: "30 * * * * *"})

		all := reg.All()
		require.Len(t, all, 2)
		assert.Equal(t, "mailbox-poll", all[0].Name())
		assert.Equal(t, "30 * * * * *", all[0].Schedule())

		task, ok := reg.Get("mailbox-poll")
		require.True(t, ok)
		assert.Equal(t, "30 * * * * *", task.Schedule())
	})

	t.Run("unknown name reports absence", func(t *testing.T) {
		reg := NewTaskRegistry()
		_, ok := reg.Get("email-queue")
		assert.False(t, ok)
	})
}
