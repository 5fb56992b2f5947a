package livechat

import (
	"context"
	"testing"

	"livechat-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResolver(settings Settings) (*AvailabilityResolver, *memoryStore, *memoryDepartments) {
	store := newMemoryStore()
	departments := &memoryDepartments{store: store, bots: map[string]int{}}
	return NewAvailabilityResolver(store, departments, settings), store, departments
}

func TestIsOnlineChecksSingleAgent(t *testing.T) {
	resolver, store, _ := newResolver(staticSettings{})
	store.users["a1"] = onlineAgent("a1")
	away := onlineAgent("a2")
	away.StatusLivechat = model.AgentStatusNotAvailable
	store.users["a2"] = away

	ctx := context.Background()
	online, err := resolver.IsOnline(ctx, "", "a1", false)
	require.NoError(t, err)
	assert.True(t, online)

	online, err = resolver.IsOnline(ctx, "", "a2", false)
	require.NoError(t, err)
	assert.False(t, online)

	online, err = resolver.IsOnline(ctx, "", "missing", false)
	require.NoError(t, err)
	assert.False(t, online)
}

func TestIsOnlineWithoutDepartmentChecksEveryAgent(t *testing.T) {
	resolver, store, _ := newResolver(staticSettings{})

	online, err := resolver.IsOnline(context.Background(), "", "", false)
	require.NoError(t, err)
	assert.False(t, online)

	store.users["a1"] = onlineAgent("a1")
	online, err = resolver.IsOnline(context.Background(), "", "", false)
	require.NoError(t, err)
	assert.True(t, online)
}

func TestIsOnlineFollowsFallbackDepartment(t *testing.T) {
	resolver, store, _ := newResolver(staticSettings{})
	store.departments["sales"] = model.DepartmentItem{DepartmentID: "sales", FallbackForwardDepartment: "support"}
	store.departments["support"] = model.DepartmentItem{DepartmentID: "support"}
	store.users["a1"] = onlineAgent("a1")
	store.deptAgents["support"] = []string{"a1"}

	online, err := resolver.IsOnline(context.Background(), "sales", "", false)
	require.NoError(t, err)
	assert.True(t, online)

	online, err = resolver.IsOnline(context.Background(), "sales", "", true)
	require.NoError(t, err)
	assert.False(t, online, "skipFallback must stop at the first department")
}

func TestIsOnlineTerminatesOnFallbackCycle(t *testing.T) {
	resolver, store, departments := newResolver(staticSettings{})
	store.departments["A"] = model.DepartmentItem{DepartmentID: "A", FallbackForwardDepartment: "B"}
	store.departments["B"] = model.DepartmentItem{DepartmentID: "B", FallbackForwardDepartment: "B"}

	online, err := resolver.IsOnline(context.Background(), "A", "", false)
	require.NoError(t, err)
	assert.False(t, online)
	assert.Equal(t, []string{"A", "B"}, departments.lookups)
}

func TestIsOnlineMissingFallbackDepartment(t *testing.T) {
	resolver, store, _ := newResolver(staticSettings{})
	store.departments["A"] = model.DepartmentItem{DepartmentID: "A", FallbackForwardDepartment: "gone"}

	online, err := resolver.IsOnline(context.Background(), "A", "", false)
	require.NoError(t, err)
	assert.False(t, online)
}

func TestOnlineHonoursAcceptWithNoAgents(t *testing.T) {
	resolver, _, _ := newResolver(staticSettings{acceptNoAgents: true})

	online, err := resolver.Online(context.Background(), "", false, false)
	require.NoError(t, err)
	assert.True(t, online)

	online, err = resolver.Online(context.Background(), "", true, false)
	require.NoError(t, err)
	assert.False(t, online)
}

func TestOnlineCountsBotsWhenAssignmentToBotEnabled(t *testing.T) {
	resolver, _, departments := newResolver(staticSettings{assignToBot: true})
	departments.bots["support"] = 1

	online, err := resolver.Online(context.Background(), "support", false, false)
	require.NoError(t, err)
	assert.True(t, online)

	online, err = resolver.Online(context.Background(), "sales", false, false)
	require.NoError(t, err)
	assert.False(t, online)
}
