package reconcile

import "github.com/ytqm/ytqm/internal/models"

// DropTarget is where a drag gesture ended, expressed in list terms.
type DropTarget struct {
	List    models.List
	OverID  string
	HasOver bool
	Edge    models.Edge
}

// TargetFromPointer derives the drop target from the hovered row and
// the pointer's vertical position: above the row's midpoint means the
// item lands before it, below means after.
func TargetFromPointer(list models.List, overID string, rowTop, rowHeight, pointerY float64) DropTarget {
	edge := models.EdgeAfter
	if pointerY < rowTop+rowHeight/2 {
		edge = models.EdgeBefore
	}
	return DropTarget{List: list, OverID: overID, HasOver: true, Edge: edge}
}

// TargetEmptyList is a drop onto an empty list container.
func TargetEmptyList(list models.List) DropTarget {
	return DropTarget{List: list, Edge: models.EdgeEmpty}
}

// Gesture is one completed drag: the member that was dragged, where it
// was dropped, and the reorder mode.
type Gesture struct {
	SourceID string
	Target   DropTarget
	Mode     models.Mode
}

func (g Gesture) op(sourceList models.List) models.ReorderOp {
	mode := g.Mode
	if mode == "" {
		mode = models.ModeInsert
	}
	dest := models.ReorderDest{List: g.Target.List, Edge: g.Target.Edge}
	if g.Target.HasOver {
		over := g.Target.OverID
		dest.OverID = &over
	}
	return models.ReorderOp{
		Source: models.ReorderSource{List: sourceList, ID: g.SourceID},
		Dest:   dest,
		Mode:   mode,
	}
}
