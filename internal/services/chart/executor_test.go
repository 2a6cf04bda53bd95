package chart

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const barCode = `
import "plotkit"

func Draw() {
	plotkit.Current.Title("Stock by product")
	plotkit.Current.Bar(
		[]string{"americano", "latte", "croissant"},
		[]float64{3, 25, 7},
	)
	plotkit.Current.Show()
}
`

func TestRenderWritesArtifact(t *testing.T) {
	e := NewExecutor(10 * time.Second)
	outputPath := filepath.Join(t.TempDir(), "charts", "out.png")

	err := e.Render(context.Background(), barCode, outputPath)
	require.NoError(t, err)

	info, err := os.Stat(outputPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRenderRejectsForbiddenImports(t *testing.T) {
	e := NewExecutor(10 * time.Second)
	code := `
import (
	"os"
	"plotkit"
)

func Draw() {
	os.Remove("something")
	plotkit.Current.Bar([]string{"a"}, []float64{1})
}
`
	err := e.Render(context.Background(), code, filepath.Join(t.TempDir(), "out.png"))
	require.Error(t, err)
	var re *RenderError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrTypeValidation, re.Type)
}

func TestRenderFailsWhenDrawMissing(t *testing.T) {
	e := NewExecutor(10 * time.Second)
	code := `
import "plotkit"

func Paint() {
	plotkit.Current.Bar([]string{"a"}, []float64{1})
}
`
	err := e.Render(context.Background(), code, filepath.Join(t.TempDir(), "out.png"))
	require.Error(t, err)
	var re *RenderError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrTypeExecution, re.Type)
}

func TestRenderFailsWhenNothingDrawn(t *testing.T) {
	e := NewExecutor(10 * time.Second)
	code := `
func Draw() {}
`
	err := e.Render(context.Background(), code, filepath.Join(t.TempDir(), "out.png"))
	require.Error(t, err)
	var re *RenderError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrTypeExecution, re.Type)
}

func TestRenderContainsPanics(t *testing.T) {
	e := NewExecutor(10 * time.Second)
	code := `
import "plotkit"

func Draw() {
	var values []float64
	plotkit.Current.Bar([]string{"a"}, []float64{values[3]})
}
`
	err := e.Render(context.Background(), code, filepath.Join(t.TempDir(), "out.png"))
	require.Error(t, err)
}

func TestRenderRejectsEmptyCode(t *testing.T) {
	e := NewExecutor(10 * time.Second)
	err := e.Render(context.Background(), "   ", filepath.Join(t.TempDir(), "out.png"))
	require.Error(t, err)
}
