package email

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iuliaszarics/WhiskersWonderland/internal/config"
	"github.com/iuliaszarics/WhiskersWonderland/internal/logger"
)

func TestTwoFactorChange(t *testing.T) {
	on := TwoFactorChange("alice@x.com", "alice", "WhiskersWonderland", true)
	require.Equal(t, "alice@x.com", on.To)
	require.Contains(t, on.Subject, "enabled")
	require.Contains(t, on.TextBody, "Hi alice")

	off := TwoFactorChange("alice@x.com", "<b>alice</b>", "WhiskersWonderland", false)
	require.Contains(t, off.Subject, "disabled")
	require.Contains(t, off.HTMLBody, "&lt;b&gt;alice&lt;/b&gt;")
	require.NotContains(t, off.HTMLBody, "<b>alice</b>")
}

func TestBuildMIME(t *testing.T) {
	msg := TwoFactorChange("alice@x.com", "alice", "WhiskersWonderland", true)

	raw := buildMIME("Whiskers <noreply@x.com>", msg)
	require.True(t, strings.HasPrefix(raw, "From: Whiskers <noreply@x.com>\r\nTo: alice@x.com\r\n"))
	require.Contains(t, raw, "multipart/alternative")
	require.True(t, strings.HasSuffix(raw, "--whiskers_boundary--"))

	plain := buildMIME("noreply@x.com", Message{To: "bob@x.com", Subject: "hi", TextBody: "hello"})
	require.Contains(t, plain, "Content-Type: text/plain; charset=UTF-8\r\n\r\nhello")
}

func TestNewSender(t *testing.T) {
	ctx := context.Background()
	log := logger.Nop()

	s, err := NewSender(ctx, config.EmailConfig{Provider: "log"}, log)
	require.NoError(t, err)
	require.IsType(t, &LogSender{}, s)
	require.NoError(t, s.Send(ctx, Message{To: "a@x.com", Subject: "s"}))

	s, err = NewSender(ctx, config.EmailConfig{Provider: "none"}, log)
	require.NoError(t, err)
	require.IsType(t, NopSender{}, s)

	_, err = NewSender(ctx, config.EmailConfig{Provider: "carrier-pigeon"}, log)
	require.Error(t, err)

	_, err = NewSender(ctx, config.EmailConfig{Provider: "gmail"}, log)
	require.Error(t, err, "gmail without a sender address is a configuration error")
}
