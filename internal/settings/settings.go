// Package settings exposes the livechat workspace flags read from the environment.
package settings

import "livechat-backend/internal/env"

// EnvSettings reads flags on every call, so values set at runtime through env.Set apply immediately.
type EnvSettings struct{}

func (EnvSettings) AcceptChatsWithNoAgents() bool {
	return env.GetBool(env.LivechatAcceptChatsWithNoAgents)
}

func (EnvSettings) AssignNewConversationToBot() bool {
	return env.GetBool(env.LivechatAssignNewConversationToBot)
}

func (EnvSettings) ShowAgentInfo() bool {
	return env.GetBool(env.LivechatShowAgentInfo)
}
