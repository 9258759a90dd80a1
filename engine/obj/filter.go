package obj

// Filter is a composable visibility predicate over VRObjects. Filters
// are pure; scenes compose them per query and never cache a composed
// filter across world mutations.
type Filter func(o *VRObject) bool

// IsActive passes objects with the active flag set
func IsActive() Filter {
	return func(o *VRObject) bool {
		return o.IsActive()
	}
}

// IsOwned passes objects owned by c
func IsOwned(c *Client) Filter {
	return func(o *VRObject) bool {
		return c.IsOwner(o)
	}
}

// IsActiveOrOwned is the standard visibility predicate: owners see their
// own inactive objects, everyone sees active objects
func IsActiveOrOwned(c *Client) Filter {
	return func(o *VRObject) bool {
		return o.IsActive() || c.IsOwner(o)
	}
}

// RemoveOfflineClients passes any non-client object, and client objects
// only while their session is active
func RemoveOfflineClients() Filter {
	return func(o *VRObject) bool {
		return o.Client() == nil || o.Client().IsActive()
	}
}

// And composes filters; all must pass
func And(filters ...Filter) Filter {
	return func(o *VRObject) bool {
		for _, f := range filters {
			if !f(o) {
				return false
			}
		}
		return true
	}
}
