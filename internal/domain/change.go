package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// LinkChangeKind enumerates what a change request asks for on one link field.
type LinkChangeKind int

const (
	// LinkUnchanged leaves the link alone (field absent on the wire).
	LinkUnchanged LinkChangeKind = iota
	// LinkUnlink clears the link and best-effort deletes the external
	// resource (explicit null on the wire).
	LinkUnlink
	// LinkProvision provisions a brand-new external resource and links to it
	// (the "create" sentinel on the wire).
	LinkProvision
	// LinkAdopt links to an already-existing external resource, updating its
	// parameters (a concrete id on the wire).
	LinkAdopt
)

func (k LinkChangeKind) String() string {
	switch k {
	case LinkUnchanged:
		return "unchanged"
	case LinkUnlink:
		return "unlink"
	case LinkProvision:
		return "provision"
	case LinkAdopt:
		return "adopt"
	}
	return fmt.Sprintf("LinkChangeKind(%d)", int(k))
}

// LinkChange is the tagged union replacing the informal
// absent / null / "create" / concrete-id wire encoding.
//
// Target is meaningful for LinkAdopt (the resource to adopt) and optionally
// for LinkProvision (the account to provision under; empty means the
// configured default account).
type LinkChange struct {
	Kind   LinkChangeKind
	Target Link
}

// Provision returns a change that provisions a new resource under accountID
// (empty = default account).
func Provision(accountID string) LinkChange {
	return LinkChange{Kind: LinkProvision, Target: Link{AccountID: accountID}}
}

// Adopt returns a change that adopts the given existing resource.
func Adopt(l Link) LinkChange { return LinkChange{Kind: LinkAdopt, Target: l} }

// Unlink returns a change that clears the link.
func Unlink() LinkChange { return LinkChange{Kind: LinkUnlink} }

const provisionSentinel = "create"

// UnmarshalJSON decodes the wire encoding used by the committee UI:
//
//	(field absent)                    -> LinkUnchanged (zero value; no call)
//	null                              -> LinkUnlink
//	"create"                          -> LinkProvision under default account
//	{"account_id":"a","id":"create"}  -> LinkProvision under account a
//	{"account_id":"a","id":"x"}       -> LinkAdopt of (a, x)
func (c *LinkChange) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*c = Unlink()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != provisionSentinel {
			return fmt.Errorf("%w: link change string must be %q", ErrInvalidInput, provisionSentinel)
		}
		*c = Provision("")
		return nil
	}
	var l Link
	if err := json.Unmarshal(data, &l); err != nil {
		return fmt.Errorf("%w: link change must be null, %q, or an object", ErrInvalidInput, provisionSentinel)
	}
	if l.ID == provisionSentinel {
		*c = Provision(l.AccountID)
		return nil
	}
	if l.AccountID == "" || l.ID == "" {
		return fmt.Errorf("%w: link change object requires account_id and id", ErrInvalidInput)
	}
	*c = Adopt(l)
	return nil
}

// MarshalJSON is the inverse of UnmarshalJSON. LinkUnchanged marshals as
// null for lack of a way to omit; callers wanting true absence should use
// pointer fields.
func (c LinkChange) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case LinkUnlink, LinkUnchanged:
		return []byte("null"), nil
	case LinkProvision:
		if c.Target.AccountID == "" {
			return json.Marshal(provisionSentinel)
		}
		return json.Marshal(Link{AccountID: c.Target.AccountID, ID: provisionSentinel})
	case LinkAdopt:
		return json.Marshal(c.Target)
	}
	return nil, fmt.Errorf("unknown link change kind %d", int(c.Kind))
}
