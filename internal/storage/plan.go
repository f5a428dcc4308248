// Package storage persists phaseops state on the local filesystem: the plan
// and team inputs, the daily report documents, and the completion ledger.
package storage

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/valter-silva-au/phaseops/pkg/models"
	"gopkg.in/yaml.v3"
)

//go:embed defaultplan.yaml
var defaultPlanYAML []byte

// DefaultPlan returns the plan compiled into the binary.
func DefaultPlan() (models.Plan, error) {
	return parsePlan(defaultPlanYAML)
}

// LoadPlan reads a plan from a YAML file. An empty path or a missing file
// yields the embedded default plan; the second return value reports whether
// the default was used.
func LoadPlan(path string) (models.Plan, bool, error) {
	if path == "" {
		plan, err := DefaultPlan()
		return plan, true, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			plan, err := DefaultPlan()
			return plan, true, err
		}
		return models.Plan{}, false, fmt.Errorf("reading plan %s: %w", path, err)
	}
	plan, err := parsePlan(data)
	if err != nil {
		return models.Plan{}, false, fmt.Errorf("parsing plan %s: %w", path, err)
	}
	return plan, false, nil
}

func parsePlan(data []byte) (models.Plan, error) {
	var plan models.Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return models.Plan{}, err
	}
	return plan, nil
}

// LoadTeam reads the team roster from a YAML file.
func LoadTeam(path string) (models.Team, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Team{}, fmt.Errorf("reading team %s: %w", path, err)
	}
	var team models.Team
	if err := yaml.Unmarshal(data, &team); err != nil {
		return models.Team{}, fmt.Errorf("parsing team %s: %w", path, err)
	}
	return team, nil
}
