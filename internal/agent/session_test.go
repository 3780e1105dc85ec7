package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asad-creats/taskagent/internal/llm"
	"github.com/asad-creats/taskagent/internal/store"
)

func TestSessionSendRecordsTurns(t *testing.T) {
	t.Parallel()
	model := &scriptedModel{replies: []string{"hi there", `{"action":"list_tasks","parameters":{}}`}}
	s := NewSession(newDispatcher(t, store.NewMemory(), model))

	_, err := s.Send(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	resp, err := s.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi there", resp.Response)

	_, err = s.Send(context.Background(), "show my tasks")
	require.NoError(t, err)

	// second call carries the first exchange as history
	msgs := model.lastCall()
	require.Len(t, msgs, 4)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "hello"}, msgs[1])
	assert.Equal(t, llm.Message{Role: llm.RoleAssistant, Content: "hi there"}, msgs[2])

	turns := s.Turns()
	require.Len(t, turns, 4)
	assert.Equal(t, string(ActionListTasks), turns[3].Action)
	assert.Len(t, turns[3].ToolResults, 1)
}

func TestSessionHistoryIsCapped(t *testing.T) {
	t.Parallel()
	replies := make([]string, 8)
	for i := range replies {
		replies[i] = "ok"
	}
	model := &scriptedModel{replies: replies}
	s := NewSession(newDispatcher(t, store.NewMemory(), model))
	for range 8 {
		_, err := s.Send(context.Background(), "again")
		require.NoError(t, err)
	}
	assert.Len(t, model.lastCall(), 1+DefaultHistoryLimit+1)
	assert.Len(t, s.Turns(), 16)
}

func TestSessionsRegistry(t *testing.T) {
	t.Parallel()
	st := store.NewMemory()
	reg := NewSessions(func() *Dispatcher { return newDispatcher(t, st, &scriptedModel{}) })

	a := reg.GetOrCreate("")
	require.NotEmpty(t, a.ID)
	assert.Same(t, a, reg.GetOrCreate(a.ID))

	b := reg.GetOrCreate("not-a-known-id")
	assert.NotEqual(t, "not-a-known-id", b.ID)
	assert.Equal(t, 2, reg.Len())

	got, ok := reg.Get(b.ID)
	assert.True(t, ok)
	assert.Same(t, b, got)

	assert.True(t, reg.Delete(b.ID))
	assert.False(t, reg.Delete(b.ID))

	assert.Equal(t, 0, reg.Prune(fixedNow.Add(time.Minute), time.Hour))
	assert.Equal(t, 1, reg.Prune(fixedNow.Add(2*time.Hour), time.Hour))
	assert.Equal(t, 0, reg.Len())
}

func TestSessionsDeleteCancelsInFlightSend(t *testing.T) {
	t.Parallel()
	model := &scriptedModel{block: make(chan struct{})}
	t.Cleanup(func() { close(model.block) })
	reg := NewSessions(func() *Dispatcher { return newDispatcher(t, store.NewMemory(), model) })
	s := reg.GetOrCreate("")

	type result struct {
		resp Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := s.Send(context.Background(), "add learn python")
		done <- result{resp, err}
	}()
	require.Eventually(t, func() bool { return model.lastCall() != nil }, time.Second, 5*time.Millisecond)

	require.True(t, reg.Delete(s.ID))

	select {
	case got := <-done:
		require.NoError(t, got.err)
		assert.Equal(t, ReplyError, got.resp.Action)
		assert.Contains(t, got.resp.Error, ErrSessionClosed.Error())
	case <-time.After(2 * time.Second):
		t.Fatal("Send did not return after Delete")
	}
	assert.Empty(t, s.Turns())
}

func TestSessionsPruneCancelsInFlightSend(t *testing.T) {
	t.Parallel()
	model := &scriptedModel{block: make(chan struct{})}
	t.Cleanup(func() { close(model.block) })
	reg := NewSessions(func() *Dispatcher { return newDispatcher(t, store.NewMemory(), model) })
	s := reg.GetOrCreate("")

	done := make(chan Response, 1)
	go func() {
		resp, _ := s.Send(context.Background(), "hello")
		done <- resp
	}()
	require.Eventually(t, func() bool { return model.lastCall() != nil }, time.Second, 5*time.Millisecond)

	require.Equal(t, 1, reg.Prune(fixedNow.Add(2*time.Hour), time.Hour))

	select {
	case resp := <-done:
		assert.Equal(t, ReplyError, resp.Action)
	case <-time.After(2 * time.Second):
		t.Fatal("Send did not return after Prune")
	}
}
