package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var apiFlag string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chatctl",
		Short:         "CLI client for the chat server REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&apiFlag, "api", "a", "http://localhost:8080", "chat server base URL")

	root.AddCommand(newConsentCmd(), newMessagesCmd(), newMemoryCmd(), newSummarizeCmd())
	return root
}

func client(cmd *cobra.Command) *apiClient {
	return newAPIClient(apiFlag, cmd.OutOrStdout())
}

func newConsentCmd() *cobra.Command {
	consentCmd := &cobra.Command{
		Use:   "consent [on|off]",
		Short: "Show or set the room's AI consent flag",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return client(cmd).get("/api/consent", nil)
			}
			enabled, err := parseSwitch(args[0])
			if err != nil {
				return err
			}
			return client(cmd).post("/api/consent", nil, map[string]bool{"enabled": enabled})
		},
	}
	return consentCmd
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "enable", "enabled":
		return true, nil
	case "off", "disable", "disabled":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
	return b, nil
}

func newMessagesCmd() *cobra.Command {
	var username string
	messagesCmd := &cobra.Command{
		Use:   "messages",
		Short: "List messages (unread only when --username is set)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var q map[string]string
			if username != "" {
				q = map[string]string{"username": username}
			}
			return client(cmd).get("/api/messages", q)
		},
	}
	messagesCmd.Flags().StringVarP(&username, "username", "u", "", "reader whose unread messages to list")
	return messagesCmd
}

func newSummarizeCmd() *cobra.Command {
	var username string
	summarizeCmd := &cobra.Command{
		Use:   "summarize",
		Short: "Summarize the chat; with --username, what that user missed",
		RunE: func(cmd *cobra.Command, args []string) error {
			var q map[string]string
			if username != "" {
				q = map[string]string{"username": username}
			}
			return client(cmd).post("/api/features/summarize", q, nil)
		},
	}
	summarizeCmd.Flags().StringVarP(&username, "username", "u", "", "reader to summarize for")
	return summarizeCmd
}

func newMemoryCmd() *cobra.Command {
	memoryCmd := &cobra.Command{Use: "memory", Short: "Memory refresh and search"}

	// refresh individual
	var user1, name1, user2, name2 string
	refreshIndividualCmd := &cobra.Command{
		Use:   "refresh-individual",
		Short: "Distill the room into the memory of a two-person conversation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return client(cmd).post("/api/memory/individual/refresh", nil, map[string]string{
				"user1_id": user1, "user1_name": name1,
				"user2_id": user2, "user2_name": name2,
			})
		},
	}
	refreshIndividualCmd.Flags().StringVar(&user1, "user1", "", "first user id (required)")
	refreshIndividualCmd.Flags().StringVar(&name1, "name1", "", "first user display name (required)")
	refreshIndividualCmd.Flags().StringVar(&user2, "user2", "", "second user id (required)")
	refreshIndividualCmd.Flags().StringVar(&name2, "name2", "", "second user display name (required)")
	for _, f := range []string{"user1", "name1", "user2", "name2"} {
		_ = refreshIndividualCmd.MarkFlagRequired(f)
	}

	// refresh group
	var groupID, groupName string
	var members []string
	refreshGroupCmd := &cobra.Command{
		Use:   "refresh-group",
		Short: "Distill the room into a group memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			participants, err := parseMembers(members)
			if err != nil {
				return err
			}
			return client(cmd).post("/api/memory/group/refresh", nil, map[string]any{
				"group_id":     groupID,
				"group_name":   groupName,
				"participants": participants,
			})
		},
	}
	refreshGroupCmd.Flags().StringVarP(&groupID, "group", "g", "", "group id (required)")
	refreshGroupCmd.Flags().StringVarP(&groupName, "name", "n", "", "group name (required)")
	refreshGroupCmd.Flags().StringSliceVarP(&members, "member", "m", nil, "participant as id=name, repeatable")
	_ = refreshGroupCmd.MarkFlagRequired("group")
	_ = refreshGroupCmd.MarkFlagRequired("name")

	// search
	var userID, searchGroup, query string
	var limit int
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Search memories by --user or --group",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case userID != "" && searchGroup != "":
				return fmt.Errorf("--user and --group are mutually exclusive")
			case userID != "":
				return client(cmd).post("/api/memory/individual/search", nil, map[string]any{
					"user_id": userID, "query": query, "limit": limit,
				})
			case searchGroup != "":
				return client(cmd).post("/api/memory/group/search", nil, map[string]any{
					"group_id": searchGroup, "query": query, "limit": limit,
				})
			default:
				return fmt.Errorf("--user or --group required")
			}
		},
	}
	searchCmd.Flags().StringVarP(&userID, "user", "u", "", "participant user id")
	searchCmd.Flags().StringVarP(&searchGroup, "group", "g", "", "group id")
	searchCmd.Flags().StringVarP(&query, "query", "q", "", "search query text (required)")
	searchCmd.Flags().IntVarP(&limit, "limit", "k", 10, "maximum results")
	_ = searchCmd.MarkFlagRequired("query")

	memoryCmd.AddCommand(refreshIndividualCmd, refreshGroupCmd, searchCmd)
	return memoryCmd
}

type participant struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

func parseMembers(raw []string) ([]participant, error) {
	out := make([]participant, 0, len(raw))
	for _, m := range raw {
		id, name, ok := strings.Cut(m, "=")
		if !ok || id == "" || name == "" {
			return nil, fmt.Errorf("member %q must be id=name", m)
		}
		out = append(out, participant{UserID: id, Name: name})
	}
	return out, nil
}
