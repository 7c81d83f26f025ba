package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanpenner/anchor/pkg/cadence"
	"github.com/stefanpenner/anchor/pkg/goals"
)

func TestParseFrontmatter(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		check   func(t *testing.T, g *goals.Goal)
	}{
		{
			name: "goal with task tree and motivation",
			input: `---
id: g1
title: "Run a marathon"
categories: [health]
start_date: 2026-02-08T10:00:00Z
state: in-progress
hard_deadline: 2026-06-01T23:59:59Z
current_deadline: 2026-06-01T23:59:59Z
cadence: Never
tasks:
  - id: t1
    title: Train
    state: in-progress
    difficulty: difficult
    cadence: Weekly
    recurrence_id: r1
    tier: 1
    created_at: 2026-02-08T10:00:00Z
    subtasks:
      - id: t2
        title: Buy shoes
        state: completed-on-time
        difficulty: easy
        cadence: Never
        tier: 2
        created_at: 2026-02-08T10:00:00Z
        completed_at: 2026-02-09T08:00:00Z
---

# Why

Because it is there.
`,
			check: func(t *testing.T, g *goals.Goal) {
				assert.Equal(t, "g1", g.ID)
				assert.Equal(t, "Run a marathon", g.Title)
				assert.Equal(t, []goals.Category{goals.CategoryHealth}, g.Categories)
				assert.Equal(t, goals.StateInProgress, g.State)
				require.NotNil(t, g.HardDeadline)
				assert.Equal(t, time.Date(2026, 6, 1, 23, 59, 59, 0, time.UTC), g.HardDeadline.UTC())
				assert.Equal(t, "# Why\n\nBecause it is there.", g.Motivation)

				require.Len(t, g.Tasks, 1)
				train := g.Tasks[0]
				assert.Equal(t, cadence.Weekly, train.Cadence)
				assert.Equal(t, "r1", train.RecurrenceID)
				assert.Same(t, g, train.Goal)

				require.Len(t, train.Subtasks, 1)
				shoes := train.Subtasks[0]
				assert.Equal(t, goals.StateCompletedOnTime, shoes.State)
				assert.Same(t, train, shoes.Parent)
				assert.Same(t, g, shoes.Goal)
			},
		},
		{
			name:    "no frontmatter",
			input:   "Just some notes without frontmatter.",
			wantErr: true,
		},
		{
			name:    "missing id",
			input:   "---\ntitle: anonymous\n---\n",
			wantErr: true,
		},
		{
			name:    "unclosed frontmatter",
			input:   "---\ntitle: broken\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ParseFrontmatter(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, g)
		})
	}
}

func TestSerializeFrontmatter(t *testing.T) {
	g := sampleGoal("g1", "Ship it")

	content, err := SerializeFrontmatter(g)
	require.NoError(t, err)
	assert.Contains(t, content, "id: g1")
	assert.NotContains(t, content, "motivation")

	// Round-trip: parse back
	parsed, err := ParseFrontmatter(content)
	require.NoError(t, err)
	assertSameTree(t, g, parsed)
}
