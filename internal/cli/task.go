package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/tilter/internal/ports/primary"
	"github.com/example/tilter/internal/wire"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage annotation tasks",
	Long:  "List, inspect and delete tasks in the annotation store",
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		rootsOnly, _ := cmd.Flags().GetBool("roots")
		name, _ := cmd.Flags().GetString("name")
		limit, _ := cmd.Flags().GetInt("limit")

		tasks, err := wire.TaskService().ListTasks(cmd.Context(), primary.TaskFilters{
			RootsOnly: rootsOnly,
			Name:      name,
			Limit:     limit,
		})
		if err != nil {
			return fmt.Errorf("failed to list tasks: %w", err)
		}
		if len(tasks) == 0 {
			fmt.Println("No tasks found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tHIERARCHY\tCREATED")
		for _, t := range tasks {
			hierarchy := "(root)"
			if len(t.Hierarchy) > 0 {
				hierarchy = strings.Join(t.Hierarchy, " > ")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Name, hierarchy, t.CreatedAt)
		}
		return w.Flush()
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a task with its annotations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := wire.TaskService().GetTask(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Task %s: %s\n", task.ID, task.Name)
		if task.ParentID != "" {
			fmt.Printf("  Parent: %s\n", task.ParentID)
		}
		if len(task.Hierarchy) > 0 {
			fmt.Printf("  Hierarchy: %s\n", strings.Join(task.Hierarchy, " > "))
		}
		labels := make([]string, len(task.Labels))
		for i, l := range task.Labels {
			labels[i] = l.Name
			if l.Multiple {
				labels[i] += "*"
			}
		}
		fmt.Printf("  Labels: %s\n", strings.Join(labels, ", "))
		fmt.Printf("  Created: %s\n", task.CreatedAt)

		annotations, err := wire.TaskService().GetAnnotations(cmd.Context(), task.ID)
		if err != nil {
			return err
		}
		if len(annotations) == 0 {
			fmt.Println("  No annotations.")
			return nil
		}
		fmt.Printf("  Annotations (%d):\n", len(annotations))
		for _, a := range annotations {
			marker := ""
			if a.ChildAnnotationID != "" {
				marker = " [expanded]"
			}
			fmt.Printf("    %s [%d:%d] %q%s\n", a.Label, a.Start, a.End, a.Text, marker)
		}
		return nil
	},
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a task and its whole subtree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := wire.TaskService().DeleteTask(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}
		fmt.Printf("✓ Deleted task %s\n", args[0])
		return nil
	},
}

func init() {
	taskListCmd.Flags().Bool("roots", false, "Only list root tasks")
	taskListCmd.Flags().String("name", "", "Filter by name substring")
	taskListCmd.Flags().Int("limit", 0, "Maximum number of tasks")

	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskDeleteCmd)
}

// TaskCmd returns the task command
func TaskCmd() *cobra.Command {
	return taskCmd
}
