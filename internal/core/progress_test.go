package core

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestBuildRouteStages(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	tmpl := &RouteTemplate{ID: 7, Name: "Ток → Фр → Св", Stages: []Stage{
		{ID: 1, Name: "Ток"}, {ID: 2, Name: "Фр"}, {ID: 3, Name: "Св"},
	}}

	tests := []struct {
		name string
		tmpl *RouteTemplate
		done []StageCompletion
		want []RouteStage
	}{
		{name: "no route", tmpl: nil, want: nil},
		{name: "empty route", tmpl: &RouteTemplate{ID: 1}, want: nil},
		{
			name: "nothing done",
			tmpl: tmpl,
			want: []RouteStage{
				{Position: 0, StageID: 1, Name: "Ток", Status: StageNext},
				{Position: 1, StageID: 2, Name: "Фр", Status: StagePending},
				{Position: 2, StageID: 3, Name: "Св", Status: StagePending},
			},
		},
		{
			name: "first done",
			tmpl: tmpl,
			done: []StageCompletion{{Position: 0, CompletedBy: "admin", CompletedAt: at}},
			want: []RouteStage{
				{Position: 0, StageID: 1, Name: "Ток", Status: StageCompleted, CompletedBy: "admin", CompletedAt: &at},
				{Position: 1, StageID: 2, Name: "Фр", Status: StageNext},
				{Position: 2, StageID: 3, Name: "Св", Status: StagePending},
			},
		},
		{
			name: "all done",
			tmpl: tmpl,
			done: []StageCompletion{
				{Position: 2, CompletedBy: "ivanov", CompletedAt: at},
				{Position: 0, CompletedBy: "admin", CompletedAt: at},
				{Position: 1, CompletedBy: "admin", CompletedAt: at},
			},
			want: []RouteStage{
				{Position: 0, StageID: 1, Name: "Ток", Status: StageCompleted, CompletedBy: "admin", CompletedAt: &at},
				{Position: 1, StageID: 2, Name: "Фр", Status: StageCompleted, CompletedBy: "admin", CompletedAt: &at},
				{Position: 2, StageID: 3, Name: "Св", Status: StageCompleted, CompletedBy: "ivanov", CompletedAt: &at},
			},
		},
		{
			name: "completion past the route is ignored",
			tmpl: &RouteTemplate{ID: 2, Stages: []Stage{{ID: 1, Name: "Ток"}}},
			done: []StageCompletion{{Position: 4, CompletedBy: "admin", CompletedAt: at}},
			want: []RouteStage{
				{Position: 0, StageID: 1, Name: "Ток", Status: StageNext},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildRouteStages(tt.tmpl, tt.done)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("BuildRouteStages() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildRouteStages_SingleNext(t *testing.T) {
	tmpl := &RouteTemplate{ID: 3, Stages: []Stage{{ID: 1, Name: "Ток"}, {ID: 2, Name: "Фр"}, {ID: 1, Name: "Ток"}}}

	next := 0
	for _, st := range BuildRouteStages(tmpl, nil) {
		if st.Status == StageNext {
			next++
		}
	}
	assert.Equal(t, 1, next)
}
