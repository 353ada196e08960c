package azure

import "sync"

// ResourceGroup is a resource group descriptor.
type ResourceGroup struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// ResourceGroupCache holds the resource groups of at most one subscription.
// An entry is only trusted while its key equals the subscription in view.
type ResourceGroupCache struct {
	mu     sync.Mutex
	key    string
	groups []ResourceGroup
}

// Get returns the cached groups for key. It misses on any other key and on
// an empty entry.
func (c *ResourceGroupCache) Get(key string) ([]ResourceGroup, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if key == "" || key != c.key || len(c.groups) == 0 {
		return nil, false
	}
	return c.groups, true
}

// Put replaces the entry.
func (c *ResourceGroupCache) Put(key string, groups []ResourceGroup) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.key = key
	c.groups = groups
}

// Key returns the key of the entry.
func (c *ResourceGroupCache) Key() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key
}
