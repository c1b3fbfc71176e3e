package connectivity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		descriptor map[string]any
		want       Status
	}{
		{"nil document", nil, Disconnected},
		{"no paths key", map[string]any{"openapi": "3.1.0"}, WrongServer},
		{"paths not an object", map[string]any{"paths": []any{"/gate/submit"}}, WrongServer},
		{"neither path", map[string]any{"paths": map[string]any{"/health": map[string]any{}}}, WrongServer},
		{"submit only", map[string]any{"paths": map[string]any{SubmitPath: map[string]any{}}}, WrongServer},
		{"execute only", map[string]any{"paths": map[string]any{ExecutePath: map[string]any{}}}, WrongServer},
		{
			"both paths",
			map[string]any{"paths": map[string]any{
				SubmitPath:  map[string]any{"post": map[string]any{}},
				ExecutePath: map[string]any{"post": map[string]any{}},
				"/health":   map[string]any{},
			}},
			Connected,
		},
		{
			"both paths with null values",
			map[string]any{"paths": map[string]any{SubmitPath: nil, ExecutePath: nil}},
			Connected,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.descriptor))
		})
	}
}

func TestPaths(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Paths(nil))
	assert.Nil(t, Paths(map[string]any{"paths": map[string]any{}}))
	assert.Equal(t,
		[]string{"/gate/execute", "/gate/submit", "/health"},
		Paths(map[string]any{"paths": map[string]any{
			"/health":   map[string]any{},
			SubmitPath:  map[string]any{},
			ExecutePath: map[string]any{},
		}}),
	)
}
