package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mymmrac/telego"
)

func TestParseChatID(t *testing.T) {
	chatID, err := parseChatID("settings:-100123")
	require.NoError(t, err)
	assert.Equal(t, int64(-100123), chatID)

	_, err = parseChatID("settings")
	assert.Error(t, err)

	_, err = parseChatID("settings:abc")
	assert.Error(t, err)
}

func TestParseChatAndArg(t *testing.T) {
	chatID, arg, err := parseChatAndArg("delay:-100123:600")
	require.NoError(t, err)
	assert.Equal(t, int64(-100123), chatID)
	assert.Equal(t, int64(600), arg)

	_, _, err = parseChatAndArg("delay:-100123")
	assert.Error(t, err)

	_, _, err = parseChatAndArg("delay:-100123:abc")
	assert.Error(t, err)
}

func TestLinkedUserName(t *testing.T) {
	assert.Equal(t,
		`<a href="tg://user?id=7">Alice</a>`,
		linkedUserName(telego.User{ID: 7, FirstName: "Alice"}))

	assert.Equal(t,
		`<a href="tg://user?id=7">Alice Smith</a>`,
		linkedUserName(telego.User{ID: 7, FirstName: "Alice", LastName: "Smith"}))

	// Falls back to the numeric ID when the name is empty
	assert.Equal(t,
		`<a href="tg://user?id=7">7</a>`,
		linkedUserName(telego.User{ID: 7}))
}

func TestFormatDelay(t *testing.T) {
	assert.Equal(t, "1 minutes", formatDelay(60))
	assert.Equal(t, "5 minutes", formatDelay(300))
	assert.Equal(t, "30 minutes", formatDelay(1800))
	assert.Equal(t, "1m30s", formatDelay(90))
}
