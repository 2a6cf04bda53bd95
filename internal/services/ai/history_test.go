package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func turn(role, content string) Turn {
	return Turn{Role: role, Content: content}
}

func TestTrimHistoryKeepsEverythingUnderBudget(t *testing.T) {
	history := []Turn{
		turn(RoleUser, "hello"),
		turn(RoleAssistant, "hi there"),
		turn(RoleUser, "how are you"),
	}

	trimmed := TrimHistory(history, 1024)
	assert.Equal(t, history, trimmed)
}

func TestTrimHistoryDropsOldestFirst(t *testing.T) {
	long := strings.Repeat("x", 400) // ~100 tokens
	history := []Turn{
		turn(RoleUser, long),
		turn(RoleAssistant, long),
		turn(RoleUser, long),
		turn(RoleAssistant, long),
	}

	// Budget fits roughly two turns.
	trimmed := TrimHistory(history, 210)
	assert.Len(t, trimmed, 2)
	assert.Equal(t, RoleUser, trimmed[0].Role)
	assert.Equal(t, history[2], trimmed[0])
	assert.Equal(t, history[3], trimmed[1])
}

func TestTrimHistoryStartsOnUserTurn(t *testing.T) {
	long := strings.Repeat("x", 400)
	history := []Turn{
		turn(RoleUser, long),
		turn(RoleAssistant, "short answer"),
		turn(RoleUser, "short question"),
		turn(RoleAssistant, "final answer"),
	}

	// Budget excludes the first long user turn, so the orphaned assistant
	// turn right after it must be dropped too.
	trimmed := TrimHistory(history, 50)
	assert.NotEmpty(t, trimmed)
	assert.Equal(t, RoleUser, trimmed[0].Role)
	assert.Equal(t, "short question", trimmed[0].Content)
}

func TestTrimHistoryNilAndEmpty(t *testing.T) {
	assert.Nil(t, TrimHistory(nil, 100))
	assert.Nil(t, TrimHistory([]Turn{}, 100))

	// A lone assistant turn can never start the window.
	trimmed := TrimHistory([]Turn{turn(RoleAssistant, "orphan")}, 100)
	assert.Nil(t, trimmed)
}
