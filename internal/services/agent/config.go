// File: internal/services/agent/config.go
package agent

import "fmt"

type Config struct {
    // MaxIterations bounds the number of model turns for one user request.
    MaxIterations int
    // ChartDir is where rendered chart artifacts are written.
    ChartDir string
    // ChartURLPrefix is prepended to artifact file names to build the
    // reference URL returned to callers.
    ChartURLPrefix string
}

func (c *Config) Validate() error {
    if c.MaxIterations < 1 {
        return fmt.Errorf("max_iterations must be at least 1")
    }
    if c.MaxIterations > 20 {
        return fmt.Errorf("max_iterations cannot exceed 20")
    }
    if c.ChartDir == "" {
        return fmt.Errorf("chart_dir is required")
    }
    return nil
}

func DefaultConfig() *Config {
    return &Config{
        MaxIterations:  6,
        ChartDir:       "data/charts",
        ChartURLPrefix: "/charts/",
    }
}
