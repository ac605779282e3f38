// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"marketplace-matching/internal/common/validation"
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Validate checks activity naming and that every task type is unique.
func (r *ActivityRegistry) Validate() error {
	seen := make(map[string]string, len(r.Activities))
	for _, a := range r.Activities {
		if err := validation.ValidateActivityNaming(a.ID); err != nil {
			return fmt.Errorf("activity %q: %w", a.ID, err)
		}
		if a.TaskType == "" {
			return fmt.Errorf("activity %q: taskType is required", a.ID)
		}
		if other, dup := seen[a.TaskType]; dup {
			return fmt.Errorf("task type %q declared by both %q and %q", a.TaskType, other, a.ID)
		}
		seen[a.TaskType] = a.ID
	}
	return nil
}

// ByTaskType returns the activity implemented by the given Zeebe task type.
func (r *ActivityRegistry) ByTaskType(taskType string) (*Activity, bool) {
	if r == nil {
		return nil, false
	}
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// InputValidator compiles the input schema of a task type. It returns nil
// without error when the activity declares no input schema.
func (r *ActivityRegistry) InputValidator(taskType string) (*validation.Validator, error) {
	a, ok := r.ByTaskType(taskType)
	if !ok {
		return nil, fmt.Errorf("task type %q not found in registry", taskType)
	}
	if len(a.InputSchema) == 0 {
		return nil, nil
	}
	return validation.NewValidator(a.InputSchema)
}
