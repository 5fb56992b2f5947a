package livechat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// AvailabilityResolver answers whether an agent, human or bot, can currently take a chat.
type AvailabilityResolver struct {
	directory   Directory
	departments Departments
	settings    Settings
	log         *slog.Logger
}

func NewAvailabilityResolver(directory Directory, departments Departments, settings Settings, opts ...Option) *AvailabilityResolver {
	o := applyOptions(opts)
	return &AvailabilityResolver{
		directory:   directory,
		departments: departments,
		settings:    settings,
		log:         o.Logger,
	}
}

// Online is the caller-facing check. It short-circuits when chats are accepted without
// agents, or when bot assignment is enabled and a bot is live for the department.
func (a *AvailabilityResolver) Online(ctx context.Context, departmentID string, skipNoAgentSetting, skipFallback bool) (bool, error) {
	departmentID = strings.TrimSpace(departmentID)

	if a.settings != nil && a.settings.AcceptChatsWithNoAgents() && !skipNoAgentSetting {
		return true, nil
	}

	if a.settings != nil && a.settings.AssignNewConversationToBot() {
		bots, err := a.departments.CountOnlineBots(ctx, departmentID)
		if err != nil {
			return false, dependencyError("failed to count bot agents", err)
		}
		if bots > 0 {
			return true, nil
		}
	}

	return a.IsOnline(ctx, departmentID, "", skipFallback)
}

// IsOnline checks a single agent when agentID is given, else the department and its
// fallback chain, else any agent at all. Fallback chains are followed until a department
// repeats, so a cyclic configuration terminates with false.
func (a *AvailabilityResolver) IsOnline(ctx context.Context, departmentID, agentID string, skipFallback bool) (bool, error) {
	agentID = strings.TrimSpace(agentID)
	departmentID = strings.TrimSpace(departmentID)

	if agentID != "" {
		online, err := a.directory.IsAgentOnline(ctx, agentID)
		if err != nil {
			return false, dependencyError("failed to check agent availability", err)
		}
		return online, nil
	}

	if departmentID == "" {
		online, err := a.directory.AnyAgentOnline(ctx)
		if err != nil {
			return false, dependencyError("failed to check agent availability", err)
		}
		return online, nil
	}

	visited := make(map[string]struct{})
	current := departmentID
	for {
		if _, seen := visited[current]; seen {
			a.log.Warn("department fallback cycle detected",
				slog.String("department_id", departmentID),
				slog.String("repeated_department_id", current),
			)
			return false, nil
		}
		visited[current] = struct{}{}

		online, err := a.departments.AnyAgentOnline(ctx, current)
		if err != nil {
			return false, dependencyError("failed to check department availability", err)
		}
		if online || skipFallback {
			return online, nil
		}

		department, err := a.departments.GetDepartment(ctx, current)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return online, nil
			}
			return false, dependencyError("failed to load department", err)
		}
		if department.FallbackForwardDepartment == "" {
			return online, nil
		}
		current = department.FallbackForwardDepartment
	}
}
