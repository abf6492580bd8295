package services

import (
	"fmt"

	"committeesync/internal/domain"
)

// LinkAction is the resolver's verdict for one link field.
type LinkAction int

const (
	// ActionNone touches nothing.
	ActionNone LinkAction = iota
	// ActionCreate provisions a new external resource and links it.
	ActionCreate
	// ActionAdopt links an existing resource and pushes parameters to it.
	ActionAdopt
	// ActionUpdate refreshes parameters on the currently linked resource.
	ActionUpdate
	// ActionDelete deletes the linked resource and clears the link.
	ActionDelete
	// ActionRecreate deletes the linked resource, then provisions a new one.
	ActionRecreate
	// ActionReadopt deletes the linked resource, then adopts a different one.
	ActionReadopt
)

func (a LinkAction) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionCreate:
		return "create"
	case ActionAdopt:
		return "adopt"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	case ActionRecreate:
		return "recreate"
	case ActionReadopt:
		return "readopt"
	}
	return fmt.Sprintf("LinkAction(%d)", int(a))
}

// Deletes reports whether the action removes the currently linked resource.
func (a LinkAction) Deletes() bool {
	return a == ActionDelete || a == ActionRecreate || a == ActionReadopt
}

// ResolveLink decides what to do with one link field given its current value
// and the requested change. The table is identical for all three resource
// kinds; only the parameter builders and clients differ.
//
//	current  requested      action
//	absent   unchanged      none
//	absent   provision      create
//	absent   adopt          adopt
//	absent   unlink         none (already gone)
//	present  unchanged      update (refresh parameters in place)
//	present  provision      recreate
//	present  adopt same     update
//	present  adopt other    readopt
//	present  unlink         delete
func ResolveLink(current *domain.Link, change domain.LinkChange) LinkAction {
	if current == nil {
		switch change.Kind {
		case domain.LinkProvision:
			return ActionCreate
		case domain.LinkAdopt:
			return ActionAdopt
		default:
			return ActionNone
		}
	}
	switch change.Kind {
	case domain.LinkUnchanged:
		return ActionUpdate
	case domain.LinkProvision:
		return ActionRecreate
	case domain.LinkAdopt:
		if current.Equal(change.Target) {
			return ActionUpdate
		}
		return ActionReadopt
	case domain.LinkUnlink:
		return ActionDelete
	}
	return ActionNone
}
