package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/valter-silva-au/phaseops/internal/core"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

func TestDefaultPlan_IsValid(t *testing.T) {
	plan, err := DefaultPlan()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Weeks) != 3 {
		t.Fatalf("expected 3 weeks, got %d", len(plan.Weeks))
	}
	if _, err := core.NewPlanRepository(plan, core.DefaultHorizon); err != nil {
		t.Fatalf("embedded plan rejected: %v", err)
	}
}

func TestDefaultPlan_DayOneSelection(t *testing.T) {
	plan, _ := DefaultPlan()
	repo, err := core.NewPlanRepository(plan, core.DefaultHorizon)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := repo.TasksForDay(1)
	want := []string{"1.1", "1.2", "1.3"}
	if len(got) != len(want) {
		t.Fatalf("expected %d tasks on day 1, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id || len(got[i].Deps) != 0 {
			t.Errorf("task[%d] = %s deps=%v, want %s without deps", i, got[i].ID, got[i].Deps, id)
		}
	}
}

func TestDefaultPlan_WeeksMatchCalendar(t *testing.T) {
	plan, _ := DefaultPlan()
	for wi, week := range plan.Weeks {
		for _, task := range week.Tasks {
			for _, day := range task.Days {
				if core.WeekForDay(day) != wi+1 {
					t.Errorf("task %s on day %d sits in plan week %d but calendar week %d",
						task.ID, day, wi+1, core.WeekForDay(day))
				}
			}
		}
	}
}

func TestLoadPlan_EmptyPathUsesDefault(t *testing.T) {
	plan, usedDefault, err := LoadPlan("")
	if err != nil || !usedDefault {
		t.Fatalf("LoadPlan(\"\") = default=%v err=%v", usedDefault, err)
	}
	if len(plan.Weeks) == 0 {
		t.Error("expected default plan weeks")
	}
}

func TestLoadPlan_MissingFileUsesDefault(t *testing.T) {
	_, usedDefault, err := LoadPlan(filepath.Join(t.TempDir(), "plan.yaml"))
	if err != nil || !usedDefault {
		t.Fatalf("missing file: default=%v err=%v", usedDefault, err)
	}
}

func TestLoadPlan_ReadsFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "plan.yaml", `
phase: pilot
weeks:
  - name: Only
    tasks:
      - id: a
        name: Schema sketch
        owner: alice
        hours: 2
        days: [1, 2]
      - id: b
        name: Testing
        owner: bob
        days: [2]
        deps: [a]
`)
	plan, usedDefault, err := LoadPlan(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if usedDefault {
		t.Error("expected the file plan, got default")
	}
	if plan.Phase != "pilot" || len(plan.Weeks) != 1 || len(plan.Weeks[0].Tasks) != 2 {
		t.Fatalf("plan = %+v", plan)
	}
	b := plan.Weeks[0].Tasks[1]
	if len(b.Deps) != 1 || b.Deps[0] != "a" {
		t.Errorf("deps = %v, want [a]", b.Deps)
	}
}

func TestLoadPlan_InvalidYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "plan.yaml", "weeks: {not: [a list")
	if _, _, err := LoadPlan(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadTeam(t *testing.T) {
	path := writeFile(t, t.TempDir(), "team.yaml", `
members:
  - name: alice
    role: Architect
    focus: data model
  - name: bob
    role: Infrastructure
`)
	team, err := LoadTeam(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(team.Members) != 2 || team.Members[0].Focus != "data model" || team.Members[1].Role != "Infrastructure" {
		t.Errorf("team = %+v", team)
	}
}

func TestLoadTeam_Missing(t *testing.T) {
	if _, err := LoadTeam(filepath.Join(t.TempDir(), "team.yaml")); err == nil {
		t.Fatal("expected error for missing team file")
	}
}
