// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"content-testing-workers/internal/common/validation"
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}
	return ParseRegistry(data)
}

func ParseRegistry(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	return &reg, nil
}

// FindByTaskType returns the activity bound to a Zeebe task type.
func (r *ActivityRegistry) FindByTaskType(taskType string) (*Activity, bool) {
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

// ValidateInput checks job variables against the activity's inputSchema.
// Unknown task types and a nil registry accept any input.
func (r *ActivityRegistry) ValidateInput(taskType string, input map[string]interface{}) error {
	activity, ok := r.FindByTaskType(taskType)
	if !ok {
		return nil
	}
	res, err := validation.ValidateInput(input, activity.InputSchema)
	if err != nil {
		return err
	}
	if !res.Valid {
		return res
	}
	return nil
}

// Validate checks that every activity has its identifying fields, that ids
// and task types are unique and that every schema compiles.
func (r *ActivityRegistry) Validate() error {
	if len(r.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	ids := make(map[string]bool)
	taskTypes := make(map[string]bool)
	for _, a := range r.Activities {
		switch {
		case a.ID == "":
			return fmt.Errorf("activity missing required field: id")
		case a.DisplayName == "":
			return fmt.Errorf("activity %s missing required field: displayName", a.ID)
		case a.TaskType == "":
			return fmt.Errorf("activity %s missing required field: taskType", a.ID)
		case a.Category == "":
			return fmt.Errorf("activity %s missing required field: category", a.ID)
		}
		if ids[a.ID] {
			return fmt.Errorf("duplicate activity id: %s", a.ID)
		}
		if taskTypes[a.TaskType] {
			return fmt.Errorf("duplicate task type: %s", a.TaskType)
		}
		ids[a.ID] = true
		taskTypes[a.TaskType] = true

		if err := validation.CheckSchema(a.InputSchema); err != nil {
			return fmt.Errorf("activity %s inputSchema: %w", a.ID, err)
		}
		if err := validation.CheckSchema(a.OutputSchema); err != nil {
			return fmt.Errorf("activity %s outputSchema: %w", a.ID, err)
		}
		if a.Retries < 0 {
			return fmt.Errorf("activity %s has negative retries", a.ID)
		}
		if _, err := a.TimeoutDuration(); err != nil {
			return fmt.Errorf("activity %s timeout: %w", a.ID, err)
		}
	}
	return nil
}

// Add appends a, rejecting an id that is already registered.
func (r *ActivityRegistry) Add(a Activity) error {
	for _, existing := range r.Activities {
		if existing.ID == a.ID {
			return fmt.Errorf("activity %s already exists", a.ID)
		}
	}
	r.Activities = append(r.Activities, a)
	return nil
}

// Set changes one field of the activity with the given id.
func (r *ActivityRegistry) Set(id, field, value string) error {
	var a *Activity
	for i := range r.Activities {
		if r.Activities[i].ID == id {
			a = &r.Activities[i]
			break
		}
	}
	if a == nil {
		return fmt.Errorf("activity %s not found", id)
	}

	switch field {
	case "status":
		a.ImplementationStatus = value
	case "version":
		a.Version = value
	case "displayName":
		a.DisplayName = value
	case "description":
		a.Description = value
	case "category":
		a.Category = value
	case "timeout":
		a.Timeout = value
	case "retries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("retries: %w", err)
		}
		a.Retries = n
	case "errorCodes":
		a.ErrorCodes = strings.Split(value, ",")
	default:
		return fmt.Errorf("unknown field: %s", field)
	}
	return nil
}

// Save validates the registry, stamps LastUpdated and writes it as indented JSON.
func (r *ActivityRegistry) Save(path string, now time.Time) error {
	if err := r.Validate(); err != nil {
		return err
	}
	r.LastUpdated = now.Format("2006-01-02")
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
