package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/valter-silva-au/phaseops/pkg/models"
	"gopkg.in/yaml.v3"
)

// Workspace file names written by InitWorkspace.
const (
	ConfigFile = ".phaseops.yaml"
	PlanFile   = "plan.yaml"
	TeamFile   = "team.yaml"
	ReportsDir = "reports"
)

// InitResult lists the paths created and skipped by InitWorkspace.
type InitResult struct {
	Created []string
	Skipped []string
}

type workspaceConfig struct {
	Phase struct {
		StartDate   string `yaml:"start_date"`
		HorizonDays int    `yaml:"horizon_days"`
	} `yaml:"phase"`
	Plan struct {
		File string `yaml:"file"`
	} `yaml:"plan"`
	Team struct {
		File string `yaml:"file"`
	} `yaml:"team"`
	Reports struct {
		Dir string `yaml:"dir"`
	} `yaml:"reports"`
}

// InitWorkspace scaffolds a phaseops workspace in dir: a configuration file
// starting the phase on start, a copy of the default plan, a team roster with
// one member per plan owner, and the reports directory. Existing files are
// skipped and never overwritten.
func InitWorkspace(dir string, start time.Time, horizon int) (InitResult, error) {
	var res InitResult

	plan, err := DefaultPlan()
	if err != nil {
		return res, fmt.Errorf("loading default plan: %w", err)
	}

	var cfg workspaceConfig
	cfg.Phase.StartDate = start.Format("2006-01-02")
	cfg.Phase.HorizonDays = horizon
	cfg.Plan.File = PlanFile
	cfg.Team.File = TeamFile
	cfg.Reports.Dir = ReportsDir
	cfgData, err := yaml.Marshal(cfg)
	if err != nil {
		return res, fmt.Errorf("encoding configuration: %w", err)
	}

	teamData, err := yaml.Marshal(teamFromPlan(plan))
	if err != nil {
		return res, fmt.Errorf("encoding team: %w", err)
	}

	files := []struct {
		name string
		data []byte
	}{
		{ConfigFile, cfgData},
		{PlanFile, defaultPlanYAML},
		{TeamFile, teamData},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		exists, err := pathExists(path)
		if err != nil {
			return res, err
		}
		if exists {
			res.Skipped = append(res.Skipped, path)
			continue
		}
		if err := writeFileAtomic(path, f.data, 0o644); err != nil {
			return res, fmt.Errorf("writing %s: %w", f.name, err)
		}
		res.Created = append(res.Created, path)
	}

	reports := filepath.Join(dir, ReportsDir)
	exists, err := pathExists(reports)
	if err != nil {
		return res, err
	}
	if exists {
		res.Skipped = append(res.Skipped, reports)
	} else {
		if err := os.MkdirAll(reports, 0o755); err != nil {
			return res, fmt.Errorf("creating reports directory: %w", err)
		}
		res.Created = append(res.Created, reports)
	}

	return res, nil
}

// teamFromPlan returns one team member per distinct owner, sorted by name.
func teamFromPlan(plan models.Plan) models.Team {
	seen := make(map[string]bool)
	var names []string
	for _, w := range plan.Weeks {
		for _, t := range w.Tasks {
			if t.Owner != "" && !seen[t.Owner] {
				seen[t.Owner] = true
				names = append(names, t.Owner)
			}
		}
	}
	sort.Strings(names)

	team := models.Team{Members: make([]models.TeamMember, len(names))}
	for i, n := range names {
		team.Members[i] = models.TeamMember{Name: n}
	}
	return team
}

func pathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("checking %s: %w", path, err)
}
