// File: internal/services/chart/executor.go
package chart

import (
    "context"
    "fmt"
    "reflect"
    "regexp"
    "strings"
    "time"

    "github.com/traefik/yaegi/interp"
    "github.com/traefik/yaegi/stdlib"

    "github.com/hyewonk/go-datatalk/internal/plotkit"
)

// Executor runs model-generated Go plotting code in an isolated interpreter.
// The code must define `func Draw()` and may import plotkit plus a small
// stdlib whitelist; everything with filesystem, network or process reach is
// blocked. Each invocation gets a fresh figure, so earlier runs cannot leak
// into the new artifact.
type Executor struct {
    timeout time.Duration
    // Whitelist of importable packages inside the sandbox.
    allowedImports map[string]bool
}

func NewExecutor(timeout time.Duration) *Executor {
    if timeout <= 0 {
        timeout = 15 * time.Second
    }
    return &Executor{
        timeout: timeout,
        allowedImports: map[string]bool{
            "fmt":     true,
            "math":    true,
            "sort":    true,
            "strconv": true,
            "strings": true,
            "time":    true,
            "plotkit": true,
        },
    }
}

var importPattern = regexp.MustCompile(`(?m)^\s*import\s+(?:\(\s*((?:[^)]*\n?)*)\)|"([^"]+)")`)
var importLinePattern = regexp.MustCompile(`"([^"]+)"`)

// Render executes code and writes the resulting PNG to outputPath.
func (e *Executor) Render(ctx context.Context, code, outputPath string) error {
    if strings.TrimSpace(code) == "" {
        return newRenderError(ErrTypeValidation, "render", "empty chart code", nil)
    }

    if err := e.validateImports(code); err != nil {
        return newRenderError(ErrTypeValidation, "render", "invalid imports", err)
    }

    // Fresh figure per run: resets any prior state.
    fig := plotkit.NewFigure()

    i := interp.New(interp.Options{})
    if err := i.Use(stdlib.Symbols); err != nil {
        return newRenderError(ErrTypeExecution, "render", "failed to load stdlib symbols", err)
    }
    err := i.Use(interp.Exports{
        "plotkit/plotkit": {
            "Current":   reflect.ValueOf(fig),
            "NewFigure": reflect.ValueOf(plotkit.NewFigure),
            "Figure":    reflect.ValueOf((*plotkit.Figure)(nil)),
        },
    })
    if err != nil {
        return newRenderError(ErrTypeExecution, "render", "failed to register plotting handle", err)
    }

    if _, err := i.Eval(wrapCode(code)); err != nil {
        return newRenderError(ErrTypeExecution, "render", "chart code evaluation failed", err)
    }

    drawVal, err := i.Eval("main.Draw")
    if err != nil {
        return newRenderError(ErrTypeExecution, "render", "Draw function not found", err)
    }
    draw, ok := drawVal.Interface().(func())
    if !ok {
        return newRenderError(ErrTypeExecution, "render", "Draw has incorrect signature (expected: func())", nil)
    }

    if err := e.runDraw(ctx, draw); err != nil {
        return err
    }

    if !fig.Drawn() {
        return newRenderError(ErrTypeExecution, "render", "chart code drew nothing", nil)
    }
    if err := fig.Save(outputPath); err != nil {
        return newRenderError(ErrTypeSave, "save", "failed to save chart artifact", err)
    }
    return nil
}

// runDraw calls the interpreted function with panic containment and a
// timeout, since interpreted code has no cancellation primitive of its own.
func (e *Executor) runDraw(ctx context.Context, draw func()) error {
    ctx, cancel := context.WithTimeout(ctx, e.timeout)
    defer cancel()

    errCh := make(chan error, 1)
    go func() {
        defer func() {
            if r := recover(); r != nil {
                errCh <- fmt.Errorf("chart code panicked: %v", r)
            }
        }()
        draw()
        errCh <- nil
    }()

    select {
    case err := <-errCh:
        if err != nil {
            return newRenderError(ErrTypeExecution, "render", "chart code raised", err)
        }
        return nil
    case <-ctx.Done():
        return newRenderError(ErrTypeTimeout, "render", "chart code execution timed out", ctx.Err())
    }
}

func (e *Executor) validateImports(code string) error {
    for _, match := range importPattern.FindAllStringSubmatch(code, -1) {
        block := match[1]
        if block == "" {
            block = fmt.Sprintf("%q", match[2])
        }
        for _, imp := range importLinePattern.FindAllStringSubmatch(block, -1) {
            if !e.allowedImports[imp[1]] {
                return fmt.Errorf("import %q is not allowed", imp[1])
            }
        }
    }
    return nil
}

func wrapCode(code string) string {
    if strings.Contains(code, "package ") {
        return code
    }
    return "package main\n\n" + code
}
