package auth

import (
	"fmt"
	"maps"
	"sync"
)

// PermissionPolicy decides how a permission probe that could not run is reported.
type PermissionPolicy int

const (
	// FailOpen passes an unverifiable check with a warning.
	FailOpen PermissionPolicy = iota
	// FailClosed fails an unverifiable check.
	FailClosed
)

func (p PermissionPolicy) String() string {
	if p == FailClosed {
		return "fail-closed"
	}
	return "fail-open"
}

// PolicyFor maps the strict setting to a policy.
func PolicyFor(strict bool) PermissionPolicy {
	if strict {
		return FailClosed
	}
	return FailOpen
}

// Resolve turns a probe result into the reported check. A nil err returns
// check unchanged.
func (p PermissionPolicy) Resolve(check PermissionCheck, err error) PermissionCheck {
	if err == nil {
		return check
	}
	if p == FailClosed {
		return PermissionCheck{
			Checked: check.Checked,
			Message: fmt.Sprintf("Permission check failed: %v", err),
		}
	}
	return PermissionCheck{
		HasAllPermissions: true,
		IsWarning:         true,
		Checked:           check.Checked,
		Message:           fmt.Sprintf("Permission check skipped: %v. Missing permissions will surface during deployment.", err),
	}
}

// PermissionCache keeps the last permission check together with the provider
// credentials it ran against.
type PermissionCache struct {
	mu    sync.Mutex
	check *PermissionCheck
	creds Credentials
}

// Store records res as the check for the p fields of creds.
func (c *PermissionCache) Store(p Provider, creds Credentials, res PermissionCheck) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.check = &res
	c.creds = creds.Only(p)
}

// Last returns the last stored check, nil when there is none.
func (c *PermissionCache) Last() *PermissionCheck {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.check
}

// Reset drops the stored check.
func (c *PermissionCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.check = nil
	c.creds = nil
}

// Reusable returns the stored check when it passed and the p fields of creds
// are unchanged since. A failed check is never reused.
func (c *PermissionCache) Reusable(p Provider, creds Credentials) *PermissionCheck {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.check == nil || !c.check.HasAllPermissions {
		return nil
	}
	if !maps.Equal(c.creds, creds.Only(p)) {
		return nil
	}
	return c.check
}
