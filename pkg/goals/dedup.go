package goals

import "sort"

// Active collapses siblings that share a recurrence identity into a single
// representative: the first in-progress member if any, else the most recently
// created one. Representatives come back in creation order.
func Active(tasks []*Task) []*Task {
	if len(tasks) == 0 {
		return nil
	}

	groups := make(map[string][]*Task)
	var order []string
	for _, t := range tasks {
		key := t.recurrenceKey()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], t)
	}

	reps := make([]*Task, 0, len(order))
	for _, key := range order {
		reps = append(reps, representative(groups[key]))
	}
	sort.SliceStable(reps, func(i, j int) bool {
		return reps[i].CreatedAt.Before(reps[j].CreatedAt)
	})
	return reps
}

func representative(siblings []*Task) *Task {
	var latest *Task
	for _, t := range siblings {
		if !t.IsCompleted() {
			return t
		}
		if latest == nil || t.CreatedAt.After(latest.CreatedAt) {
			latest = t
		}
	}
	return latest
}

// ActiveSubtasks is Active applied to t's children.
func ActiveSubtasks(t *Task) []*Task {
	return Active(t.Subtasks)
}

// ActiveRootTasks is Active applied to g's root tasks.
func ActiveRootTasks(g *Goal) []*Task {
	return Active(g.Tasks)
}
