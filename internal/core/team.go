package core

import "github.com/valter-silva-au/phaseops/pkg/models"

// TeamState joins the team roster with the tasks scheduled for day. Owners
// that appear in the plan but not in the roster are appended in plan order.
func TeamState(team models.Team, plan *PlanRepository, day int) []models.TeamMemberState {
	byOwner := plan.TasksByOwner(day)
	seen := make(map[string]bool, len(team.Members))

	out := make([]models.TeamMemberState, 0, len(team.Members))
	for _, m := range team.Members {
		seen[m.Name] = true
		out = append(out, memberState(m, byOwner[m.Name]))
	}
	for _, t := range plan.TasksForDay(day) {
		if seen[t.Owner] {
			continue
		}
		seen[t.Owner] = true
		out = append(out, memberState(models.TeamMember{Name: t.Owner}, byOwner[t.Owner]))
	}
	return out
}

func memberState(m models.TeamMember, tasks []string) models.TeamMemberState {
	state := "idle"
	if len(tasks) > 0 {
		state = "active"
	}
	if tasks == nil {
		tasks = []string{}
	}
	return models.TeamMemberState{TeamMember: m, State: state, TasksToday: tasks}
}
