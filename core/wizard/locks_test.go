package wizard

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/woofinder/core/state"
)

func TestKeyLocksReleaseEntries(t *testing.T) {
	locks := newKeyLocks()
	unlock := locks.lock(state.Key{UserID: 1, ChatID: 1})
	assert.Equal(t, 1, locks.size())
	unlock()
	assert.Equal(t, 0, locks.size())
}

func TestKeyLocksIndependentKeys(t *testing.T) {
	locks := newKeyLocks()
	unlockA := locks.lock(state.Key{UserID: 1, ChatID: 1})
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := locks.lock(state.Key{UserID: 2, ChatID: 2})
		unlock()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on another key blocked")
	}
}

func TestKeyLocksSameKeyWaits(t *testing.T) {
	locks := newKeyLocks()
	key := state.Key{UserID: 1, ChatID: 1}
	unlock := locks.lock(key)

	var mu sync.Mutex
	acquired := false
	done := make(chan struct{})
	go func() {
		u := locks.lock(key)
		mu.Lock()
		acquired = true
		mu.Unlock()
		u()
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	assert.False(t, acquired)
	mu.Unlock()

	unlock()
	<-done
	assert.Equal(t, 0, locks.size())
}

func TestQueuesForgetIdleConversations(t *testing.T) {
	q := newQueues()
	key := state.Key{UserID: 1, ChatID: 1}
	var order []int
	for i := range 3 {
		require.NoError(t, q.push(key, func() { order = append(order, i) }))
	}
	q.close()
	assert.Equal(t, []int{0, 1, 2}, order)
	assert.Equal(t, 0, q.size())
	assert.ErrorIs(t, q.push(key, func() {}), ErrDispatcherClosed)
}

func TestParseCommand(t *testing.T) {
	cmd, ok := ParseCommand("/Pets@WooFinderBot  now ")
	assert.True(t, ok)
	assert.Equal(t, Command{Name: "pets", Args: "now"}, cmd)

	_, ok = ParseCommand("pets")
	assert.False(t, ok)
	_, ok = ParseCommand("/")
	assert.False(t, ok)
}

func TestSentinels(t *testing.T) {
	assert.True(t, IsExit(Text{Content: " Exit "}))
	assert.True(t, IsExit(Callback{Data: "exit"}))
	assert.False(t, IsExit(Text{Content: "exiting"}))
	assert.True(t, IsBack(Text{Content: "BACK"}))
	assert.False(t, IsBack(Location{}))

	token, payload := SplitCallback(CallbackData("pet", "123"))
	assert.Equal(t, "pet", token)
	assert.Equal(t, "123", payload)
	assert.Equal(t, "pet", CallbackData("pet", ""))
}

func TestGrid(t *testing.T) {
	b := func(s string) Button { return Button{Label: s, Data: s} }
	rows := Grid(2, b("a"), b("b"), b("c"))
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], 2)
	assert.Equal(t, []Button{b("c")}, rows[1])
	assert.Empty(t, Grid(3))
	assert.Len(t, Grid(0, b("a"), b("b")), 2)
}
