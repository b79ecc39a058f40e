package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReplyTokenUsable(t *testing.T) {
	now := time.Now()

	t.Run("fresh token is usable", func(t *testing.T) {
		tok := &ReplyToken{CreateTime: now}
		assert.True(t, tok.Usable(now))
	})

	t.Run("nil token is not usable", func(t *testing.T) {
		var tok *ReplyToken
		assert.False(t, tok.Usable(now))
	})

	t.Run("use budget is exclusive at the cap", func(t *testing.T) {
		tok := &ReplyToken{CreateTime: now, UseCount: MaxTokenUseCount - 1}
		assert.True(t, tok.Usable(now))

		tok.UseCount = MaxTokenUseCount
		assert.False(t, tok.Usable(now))
	})

	t.Run("expiry window is exclusive at the boundary", func(t *testing.T) {
		tok := &ReplyToken{CreateTime: now}
		assert.True(t, tok.Usable(now.Add(TokenExpiry-time.Second)))
		assert.False(t, tok.Usable(now.Add(TokenExpiry)))
	})
}
