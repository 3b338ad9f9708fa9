// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"h2-siting-workers/internal/common/errors"
	"h2-siting-workers/internal/common/validation"
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	err = json.Unmarshal(data, &reg)
	return &reg, err
}

// Save stamps LastUpdated and writes the registry as indented JSON.
func (r *ActivityRegistry) Save(path string) error {
	r.LastUpdated = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

// Find returns the activity with id, or nil.
func (r *ActivityRegistry) Find(id string) *Activity {
	for i := range r.Activities {
		if r.Activities[i].ID == id {
			return &r.Activities[i]
		}
	}
	return nil
}

// Validate checks required fields, uniqueness, that every schema compiles and that every
// declared error code is one the workers can raise.
func (r *ActivityRegistry) Validate() error {
	if len(r.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	ids := make(map[string]bool, len(r.Activities))
	taskTypes := make(map[string]bool, len(r.Activities))
	for _, a := range r.Activities {
		if a.ID == "" {
			return fmt.Errorf("activity missing required field: ID")
		}
		if ids[a.ID] {
			return fmt.Errorf("duplicate activity ID: %s", a.ID)
		}
		ids[a.ID] = true

		if err := a.Validate(); err != nil {
			return err
		}
		if taskTypes[a.TaskType] {
			return fmt.Errorf("activity %s: task type %s is already registered", a.ID, a.TaskType)
		}
		taskTypes[a.TaskType] = true
	}
	return nil
}

func (a Activity) Validate() error {
	switch {
	case a.DisplayName == "":
		return fmt.Errorf("activity %s missing required field: DisplayName", a.ID)
	case a.TaskType == "":
		return fmt.Errorf("activity %s missing required field: TaskType", a.ID)
	case a.Category == "":
		return fmt.Errorf("activity %s missing required field: Category", a.ID)
	}
	if a.ImplementationStatus != "" && !implementationStatuses[a.ImplementationStatus] {
		return fmt.Errorf("activity %s: unknown implementation status %q", a.ID, a.ImplementationStatus)
	}
	if a.Timeout != "" {
		if _, err := time.ParseDuration(a.Timeout); err != nil {
			return fmt.Errorf("activity %s: invalid timeout: %w", a.ID, err)
		}
	}
	for name, schema := range map[string]map[string]interface{}{"input": a.InputSchema, "output": a.OutputSchema} {
		if len(schema) == 0 {
			continue
		}
		if _, err := validation.NewValidatorFromMap(schema); err != nil {
			return fmt.Errorf("activity %s: %s schema: %w", a.ID, name, err)
		}
	}
	for _, code := range a.ErrorCodes {
		if _, ok := errors.BPMNErrorMapping[errors.ErrorCode(code)]; !ok {
			return fmt.Errorf("activity %s: unknown error code %s", a.ID, code)
		}
	}
	return nil
}
