// Package host holds the process-wide view of the host binary: the table of
// addresses resolved at attach time, the foreign call primitive, and the
// binding to the host's own allocator.
package host

import (
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/modhook/hostlink/types"
)

// Role names a resolved host address.
type Role string

const (
	// RoleGMalloc is the address of the host's global allocator pointer (FMalloc**).
	RoleGMalloc Role = "GMalloc"
	// RoleFrameStep is FFrame::Step(UObject* Context, void* Result).
	RoleFrameStep Role = "FFrame::Step"
	// RoleFrameStepExplicitProperty is FFrame::StepExplicitProperty(void* Result, FProperty* Property).
	RoleFrameStepExplicitProperty Role = "FFrame::StepExplicitProperty"
	// RoleNameInit is FName::FName(const TCHAR* Name, EFindName FindType).
	RoleNameInit Role = "FName::FName"
	// RoleNameToString is FName::ToString(FString& Out).
	RoleNameToString Role = "FName::ToString"
	// RoleGetPathName is UObjectBaseUtility::GetPathName(const UObject* StopOuter, FString& Result).
	RoleGetPathName Role = "UObjectBaseUtility::GetPathName"
)

// RequiredRoles lists every role the core dereferences after initialization.
var RequiredRoles = []Role{
	RoleGMalloc,
	RoleFrameStep,
	RoleFrameStepExplicitProperty,
	RoleNameInit,
	RoleNameToString,
	RoleGetPathName,
}

// ErrAlreadyInstalled is returned by Install when a table was published before.
var ErrAlreadyInstalled = errors.New("address table already installed")

// Table maps roles to the addresses resolved for one host binary release.
// It is immutable after construction.
type Table struct {
	caller Caller
	addrs  map[Role]uintptr
}

// NewTable copies addrs into a new table. Zero addresses are dropped so that
// lookups report them as unresolved.
func NewTable(caller Caller, addrs map[Role]uintptr) *Table {
	t := &Table{
		caller: caller,
		addrs:  make(map[Role]uintptr, len(addrs)),
	}
	for role, addr := range addrs {
		if addr != 0 {
			t.addrs[role] = addr
		}
	}
	return t
}

// Caller returns the primitive used to invoke host functions.
func (t *Table) Caller() Caller {
	return t.caller
}

// Address returns the address resolved for role.
func (t *Table) Address(role Role) (uintptr, error) {
	addr, ok := t.addrs[role]
	if !ok {
		return 0, types.MissingRoleError{Role: string(role)}
	}
	return addr, nil
}

// MustAddress is like Address but panics when the role was not resolved.
// Everything past initialization assumes a complete table.
func (t *Table) MustAddress(role Role) uintptr {
	addr, err := t.Address(role)
	if err != nil {
		panic(err)
	}
	return addr
}

// Call invokes the host function resolved for role.
func (t *Table) Call(role Role, args ...uintptr) uintptr {
	return t.caller.Call(t.MustAddress(role), args...)
}

// Validate reports every role in roles that has no address.
func (t *Table) Validate(roles ...Role) error {
	var errs []error
	for _, role := range roles {
		if _, err := t.Address(role); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Roles returns the resolved roles in lexical order.
func (t *Table) Roles() []Role {
	roles := make([]Role, 0, len(t.addrs))
	for role := range t.addrs {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

func (t *Table) String() string {
	return fmt.Sprintf("Table(%d roles)", len(t.addrs))
}

var installed atomic.Pointer[Table]

// Install publishes t as the process-wide table. It succeeds exactly once;
// re-initialization is not supported.
func Install(t *Table) error {
	if t == nil {
		return errors.New("cannot install nil address table")
	}
	if !installed.CompareAndSwap(nil, t) {
		return ErrAlreadyInstalled
	}
	return nil
}

// Installed returns the published table, if any.
func Installed() (*Table, bool) {
	t := installed.Load()
	return t, t != nil
}
