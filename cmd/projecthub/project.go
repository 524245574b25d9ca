package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/projecthub"
	"github.com/jpalmerr/projecthub/internal/store"
)

// projectCmd groups commands that operate on the configured storage
// directly, without a running server.
var projectCmd = &cobra.Command{
	Use:     "project",
	Aliases: []string{"p"},
	Short:   "Manage stored projects",
	Long: `Add, list, remove and refresh projects in the configured storage.

Examples:
  projecthub project add billing --local http://localhost:3000
  projecthub project list --status offline
  projecthub project refresh --all`,
}

var projectAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Register a project and check it once",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectAdd,
}

var projectListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List projects",
	Long: `List projects with the last known status of each endpoint.

A project matches --status when either configured endpoint has one of
the listed statuses.

Examples:
  projecthub project list
  projecthub project list -q billing
  projecthub project list --status offline,pending`,
	Args: cobra.NoArgs,
	RunE: runProjectList,
}

var projectRemoveCmd = &cobra.Command{
	Use:     "rm ID...",
	Aliases: []string{"remove", "delete"},
	Short:   "Remove projects",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runProjectRemove,
}

var projectRefreshCmd = &cobra.Command{
	Use:   "refresh [ID...]",
	Short: "Check projects now",
	Long: `Check the given projects now and print the result.

With --all, or with no ids, every project is checked.`,
	RunE: runProjectRefresh,
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectAddCmd, projectListCmd, projectRemoveCmd, projectRefreshCmd)

	projectAddCmd.Flags().StringP("description", "d", "", "project description")
	projectAddCmd.Flags().String("local", "", "local environment URL")
	projectAddCmd.Flags().String("cloud", "", "cloud environment URL")

	projectListCmd.Flags().StringP("search", "q", "", "case-insensitive match on name or description")
	projectListCmd.Flags().StringP("status", "s", "", "comma-separated statuses: online, offline, pending, disabled")

	projectRefreshCmd.Flags().BoolP("all", "a", false, "refresh every project")
}

func runProjectAdd(cmd *cobra.Command, args []string) error {
	description, _ := cmd.Flags().GetString("description")
	local, _ := cmd.Flags().GetString("local")
	cloud, _ := cmd.Flags().GetString("cloud")

	hub, cleanup, err := openHub(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := hub.Add(cmd.Context(), projecthub.Draft{
		Name:        args[0],
		Description: description,
		LocalURL:    local,
		CloudURL:    cloud,
	})
	if err != nil {
		return fmt.Errorf("failed to add project: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Added %s (%s)\n", nameStyle.Render(p.Name), p.ID)
	printProject(out, p)
	return nil
}

func runProjectList(cmd *cobra.Command, args []string) error {
	search, _ := cmd.Flags().GetString("search")
	statusCSV, _ := cmd.Flags().GetString("status")

	statuses, err := store.ParseStatuses(statusCSV)
	if err != nil {
		return err
	}

	hub, cleanup, err := openHub(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	all, err := hub.GetAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(all) == 0 {
		fmt.Fprintln(out, "No projects found. Add one with: projecthub project add NAME --local URL")
		return nil
	}

	projects := hub.Filter(all, projecthub.Query{Search: search, Statuses: statuses})
	printProjects(out, projects, len(all))
	return nil
}

func runProjectRemove(cmd *cobra.Command, args []string) error {
	hub, cleanup, err := openHub(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	for _, id := range args {
		if err := hub.Remove(cmd.Context(), id); err != nil {
			return fmt.Errorf("failed to remove %s: %w", id, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", id)
	}
	return nil
}

func runProjectRefresh(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	if all && len(args) > 0 {
		return fmt.Errorf("--all cannot be combined with project ids")
	}

	hub, cleanup, err := openHub(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	// RefreshMany treats an empty list as every project
	if err := hub.RefreshMany(cmd.Context(), args); err != nil {
		return err
	}

	projects, err := hub.GetAll(cmd.Context())
	if err != nil {
		return err
	}
	if len(args) > 0 {
		wanted := make(map[string]bool, len(args))
		for _, id := range args {
			wanted[id] = true
		}
		var selected []projecthub.Project
		for _, p := range projects {
			if wanted[p.ID] {
				selected = append(selected, p)
			}
		}
		projects = selected
	}

	printProjects(cmd.OutOrStdout(), projects, len(projects))
	return nil
}

func printProjects(w io.Writer, projects []projecthub.Project, total int) {
	header := fmt.Sprintf("Projects (%d", len(projects))
	if total != len(projects) {
		header += fmt.Sprintf(" of %d", total)
	}
	header += ")"

	fmt.Fprintf(w, "\n%s\n", headerStyle.Render(header))
	fmt.Fprintln(w, ruleStyle.Render(strings.Repeat("─", 60)))

	for _, p := range projects {
		fmt.Fprintf(w, "%s  %s\n", nameStyle.Render(p.Name), mutedStyle.Render(p.ID))
		printProject(w, p)
	}
	fmt.Fprintln(w)
}

func printProject(w io.Writer, p projecthub.Project) {
	if p.Description != "" {
		fmt.Fprintf(w, "  %s\n", mutedStyle.Render(p.Description))
	}
	printEndpoint(w, "local", p.Local)
	printEndpoint(w, "cloud", p.Cloud)
}

func printEndpoint(w io.Writer, label string, e projecthub.Endpoint) {
	line := fmt.Sprintf("  %-6s %s", label, renderStatus(e.Status))
	if e.URL != "" {
		line += " " + e.URL
	}
	if e.LastCheck != nil {
		line += " " + mutedStyle.Render("checked "+e.LastCheck.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(w, line)
}
