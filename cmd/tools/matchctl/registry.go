package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"marketplace-matching/pkg/registry"

	"github.com/spf13/cobra"
)

// workerTaskTypes are the task types the worker manager opens workers for.
var workerTaskTypes = []string{"score-compatibility", "rank-candidates"}

func newRegistryCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect and maintain the activity registry",
	}
	cmd.PersistentFlags().StringVar(&path, "path", "configs/activity-registry.json", "path to registry file")

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check the registry and compile every input schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := registry.LoadRegistry(path)
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			if err := validateRegistry(reg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registry validation passed. Found %d activities.\n", len(reg.Activities))
			return nil
		},
	}

	var id, field, value string
	update := &cobra.Command{
		Use:   "update",
		Short: "Update one field of an activity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := registry.LoadRegistry(path)
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			if err := updateActivity(reg, id, field, value); err != nil {
				return err
			}
			reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)
			if err := saveRegistry(reg, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated activity %s, field %s to %s\n", id, field, value)
			return nil
		},
	}
	update.Flags().StringVar(&id, "id", "", "activity ID to update")
	update.Flags().StringVar(&field, "field", "", "status, version, description, timeout or retries")
	update.Flags().StringVar(&value, "value", "", "new value for the field")
	_ = update.MarkFlagRequired("id")
	_ = update.MarkFlagRequired("field")
	_ = update.MarkFlagRequired("value")

	cmd.AddCommand(validate, update)
	return cmd
}

// validateRegistry goes beyond LoadRegistry: every worker task type must be
// declared and every input schema must compile.
func validateRegistry(reg *registry.ActivityRegistry) error {
	for _, taskType := range workerTaskTypes {
		if _, ok := reg.ByTaskType(taskType); !ok {
			return fmt.Errorf("task type %q has a worker but no registry entry", taskType)
		}
	}
	for _, a := range reg.Activities {
		if a.DisplayName == "" {
			return fmt.Errorf("activity %s missing required field: displayName", a.ID)
		}
		if _, err := reg.InputValidator(a.TaskType); err != nil {
			return fmt.Errorf("activity %s: input schema: %w", a.ID, err)
		}
		if a.Timeout != "" {
			if _, err := time.ParseDuration(a.Timeout); err != nil {
				return fmt.Errorf("activity %s: invalid timeout %q", a.ID, a.Timeout)
			}
		}
	}
	return nil
}

func updateActivity(reg *registry.ActivityRegistry, id, field, value string) error {
	for i := range reg.Activities {
		a := &reg.Activities[i]
		if a.ID != id {
			continue
		}
		switch field {
		case "status":
			a.ImplementationStatus = value
		case "version":
			a.Version = value
		case "description":
			a.Description = value
		case "timeout":
			if _, err := time.ParseDuration(value); err != nil {
				return fmt.Errorf("invalid timeout value: %w", err)
			}
			a.Timeout = value
		case "retries":
			retries, err := strconv.Atoi(value)
			if err != nil || retries < 0 {
				return fmt.Errorf("invalid retries value %q", value)
			}
			a.Retries = retries
		default:
			return fmt.Errorf("unknown field: %s", field)
		}
		return nil
	}
	return fmt.Errorf("activity with ID %s not found", id)
}

func saveRegistry(reg *registry.ActivityRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}
