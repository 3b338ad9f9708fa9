package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validActivity(id string) Activity {
	return Activity{
		ID:                   id,
		DisplayName:          "Generate Site Recommendations",
		Category:             "siting",
		TaskType:             id,
		ImplementationStatus: "completed",
		Timeout:              "120s",
		InputSchema: map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"boundingBox"},
		},
		ErrorCodes: []string{"INVALID_BOUNDING_BOX", "DATA_SOURCE_FAILED"},
	}
}

func TestActivityRegistry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ActivityRegistry)
		wantErr string
	}{
		{name: "valid", mutate: func(*ActivityRegistry) {}},
		{
			name:    "empty",
			mutate:  func(r *ActivityRegistry) { r.Activities = nil },
			wantErr: "no activities",
		},
		{
			name:    "duplicate id",
			mutate:  func(r *ActivityRegistry) { r.Activities = append(r.Activities, r.Activities[0]) },
			wantErr: "duplicate activity ID",
		},
		{
			name: "duplicate task type",
			mutate: func(r *ActivityRegistry) {
				a := validActivity("other")
				a.TaskType = r.Activities[0].TaskType
				r.Activities = append(r.Activities, a)
			},
			wantErr: "already registered",
		},
		{
			name:    "missing category",
			mutate:  func(r *ActivityRegistry) { r.Activities[0].Category = "" },
			wantErr: "Category",
		},
		{
			name:    "unknown status",
			mutate:  func(r *ActivityRegistry) { r.Activities[0].ImplementationStatus = "done" },
			wantErr: "implementation status",
		},
		{
			name:    "bad timeout",
			mutate:  func(r *ActivityRegistry) { r.Activities[0].Timeout = "two minutes" },
			wantErr: "invalid timeout",
		},
		{
			name:    "schema does not compile",
			mutate:  func(r *ActivityRegistry) { r.Activities[0].InputSchema = map[string]interface{}{"type": 42} },
			wantErr: "input schema",
		},
		{
			name:    "unknown error code",
			mutate:  func(r *ActivityRegistry) { r.Activities[0].ErrorCodes = []string{"SMTP_ERROR"} },
			wantErr: "unknown error code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &ActivityRegistry{Version: "1.0.0", Activities: []Activity{validActivity("generate-site-recommendations")}}
			tt.mutate(reg)
			err := reg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestActivityRegistry_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "activity-registry.json")
	reg := &ActivityRegistry{Version: "1.0.0", Activities: []Activity{validActivity("analyze-site")}}

	require.NoError(t, reg.Save(path))
	assert.NotEmpty(t, reg.LastUpdated)

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, reg.LastUpdated, loaded.LastUpdated)
	require.NotNil(t, loaded.Find("analyze-site"))
	assert.Equal(t, "120s", loaded.Find("analyze-site").Timeout)
	assert.Nil(t, loaded.Find("missing"))
}

func TestRepositoryRegistryFile(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join("..", "..", "configs", "activity-registry.json"))
	require.NoError(t, err)
	assert.NoError(t, reg.Validate())
	assert.Len(t, reg.Activities, 6)
}
