package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"livechat-backend/internal/app"
	"livechat-backend/internal/businesshours"
	"livechat-backend/internal/env"
	"livechat-backend/internal/model"
	"livechat-backend/internal/service/livechat"

	"github.com/spf13/cobra"
)

// opener connects to the backing services; the returned func releases them.
type opener func(ctx context.Context) (*livechat.Services, func(), error)

func openServices(ctx context.Context) (*livechat.Services, func(), error) {
	a, err := app.New(ctx, "livechatctl", nil)
	if err != nil {
		return nil, nil, err
	}
	return a.Services, a.Close, nil
}

type cli struct {
	out     io.Writer
	open    opener
	timeout time.Duration
}

func newRootCmd(out io.Writer, open opener) *cobra.Command {
	c := &cli{out: out, open: open}

	root := &cobra.Command{
		Use:          "livechatctl",
		Short:        "Operate livechat rooms and agents",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 30*time.Second, "overall deadline for the command")
	root.PersistentFlags().String("log-level", "", "override LOG_LEVEL")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			env.Set(env.LogLevel, level)
		}
	}

	root.AddCommand(
		c.forwardCmd(),
		c.returnCmd(),
		c.statusCmd(),
		c.availabilityCmd(),
		c.historyCmd(),
		c.agentCmd(),
		c.businessHoursCmd(),
	)
	return root
}

// run opens the services under the command deadline and hands them to fn.
func (c *cli) run(cmd *cobra.Command, fn func(ctx context.Context, s *livechat.Services) (any, error)) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
	defer cancel()

	services, closeFn, err := c.open(ctx)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	result, err := fn(ctx, services)
	if err != nil {
		return err
	}
	return c.print(result)
}

func (c *cli) print(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) forwardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forward <agent-id>",
		Short: "Forward every open chat of an agent to their visitors' departments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, s *livechat.Services) (any, error) {
				return s.Transfers.ForwardOpenChats(ctx, args[0])
			})
		},
	}
}

func (c *cli) returnCmd() *cobra.Command {
	var departmentID, comment string
	cmd := &cobra.Command{
		Use:   "return <room-id>",
		Short: "Return a served room to the waiting queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, s *livechat.Services) (any, error) {
				room, _, err := s.LoadRoom(ctx, args[0])
				if err != nil {
					return nil, err
				}
				var overrides *livechat.TransferData
				if comment != "" {
					overrides = &livechat.TransferData{Comment: comment}
				}
				ok, err := s.Transfers.ReturnRoomAsInquiry(ctx, room, departmentID, overrides)
				if err != nil {
					return nil, err
				}
				return map[string]any{"roomId": room.RoomID, "returned": ok}, nil
			})
		},
	}
	cmd.Flags().StringVar(&departmentID, "department", "", "queue the inquiry for this department")
	cmd.Flags().StringVar(&comment, "comment", "", "comment stored with the transfer history")
	return cmd
}

func (c *cli) statusCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "set-status <agent-id> <available|not-available>",
		Short: "Set an agent's livechat status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			agentID, status := args[0], model.AgentStatus(args[1])
			return c.run(cmd, func(ctx context.Context, s *livechat.Services) (any, error) {
				if !force {
					allowed, err := s.Status.AllowChangeToAvailable(ctx, agentID, status)
					if err != nil {
						return nil, err
					}
					if !allowed {
						return nil, fmt.Errorf("agent %s cannot become available outside business hours (use --force)", agentID)
					}
				}
				modified, err := s.Status.SetStatus(ctx, agentID, status)
				if err != nil {
					return nil, err
				}
				return map[string]any{"agentId": agentID, "status": status, "modified": modified}, nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "skip the business hours check")
	return cmd
}

func (c *cli) availabilityCmd() *cobra.Command {
	var departmentID, agentID string
	var skipFallback, skipNoAgentSetting bool
	cmd := &cobra.Command{
		Use:   "availability",
		Short: "Report whether an agent, a department or anyone can take a chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, s *livechat.Services) (any, error) {
				var (
					online bool
					err    error
				)
				if agentID != "" {
					online, err = s.Availability.IsOnline(ctx, departmentID, agentID, skipFallback)
				} else {
					online, err = s.Availability.Online(ctx, departmentID, skipNoAgentSetting, skipFallback)
				}
				if err != nil {
					return nil, err
				}
				return map[string]any{"departmentId": departmentID, "agentId": agentID, "online": online}, nil
			})
		},
	}
	cmd.Flags().StringVar(&departmentID, "department", "", "department id")
	cmd.Flags().StringVar(&agentID, "agent", "", "agent id")
	cmd.Flags().BoolVar(&skipFallback, "skip-fallback", false, "do not follow fallback departments")
	cmd.Flags().BoolVar(&skipNoAgentSetting, "skip-no-agent-setting", false, "ignore the accept-chats-with-no-agents setting")
	return cmd
}

func (c *cli) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <room-id>",
		Short: "Print the transfer history of a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, s *livechat.Services) (any, error) {
				messages, err := s.RoomHistory(ctx, args[0], limit)
				if err != nil {
					return nil, err
				}
				entries := make([]model.TransferHistory, 0, len(messages))
				for _, msg := range messages {
					if msg.TransferData != nil {
						entries = append(entries, *msg.TransferData)
					}
				}
				return entries, nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of entries")
	return cmd
}

func (c *cli) agentCmd() *cobra.Command {
	agent := &cobra.Command{
		Use:   "agent",
		Short: "Agent lifecycle operations",
	}
	agent.AddCommand(
		&cobra.Command{
			Use:   "activate <agent-id>",
			Short: "Mark a reactivated user with the agent role as operator",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.run(cmd, func(ctx context.Context, s *livechat.Services) (any, error) {
					if err := s.Status.OnAgentActivated(ctx, args[0]); err != nil {
						return nil, err
					}
					return map[string]any{"agentId": args[0], "operator": true}, nil
				})
			},
		},
		&cobra.Command{
			Use:   "add <username>",
			Short: "Make an existing user a livechat agent",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.run(cmd, func(ctx context.Context, s *livechat.Services) (any, error) {
					user, err := s.Directory.GetAgentByUsername(ctx, args[0])
					if err != nil {
						return nil, fmt.Errorf("lookup %s: %w", args[0], err)
					}
					return s.Status.OnAgentAdded(ctx, user)
				})
			},
		},
	)
	return agent
}

func (c *cli) businessHoursCmd() *cobra.Command {
	bh := &cobra.Command{
		Use:   "business-hours",
		Short: "Business hours operations",
	}
	bh.AddCommand(&cobra.Command{
		Use:   "sync <agent-id>...",
		Short: "Close or reopen agents according to the business hours calendar",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := businesshours.ConfigFromEnv()
			if err != nil {
				return err
			}
			calendar, err := businesshours.New(config)
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, s *livechat.Services) (any, error) {
				return calendar.Sync(ctx, s.Status, args)
			})
		},
	})
	return bh
}
