package design

import "github.com/stackcanvas/engine/internal/catalog"

// ValidatePlacement decides whether a service may live inside the given
// container. A nil container means top-level canvas.
//
// Two rule families apply. A required parent is a hard constraint: the
// service goes in exactly that container type and nowhere else. A
// subnet rule only bites when the target actually is a subnet; such
// services may still sit on the open canvas or in any non-subnet
// container.
func ValidatePlacement(service catalog.ServiceDefinition, container *catalog.ServiceDefinition) bool {
	if service.RequiredParent != "" {
		return container != nil && container.ID == service.RequiredParent
	}
	if container != nil && container.SubnetRole != "" && service.Subnet != nil {
		switch container.SubnetRole {
		case "public":
			return service.Subnet.Public
		case "private":
			return service.Subnet.Private
		}
	}
	return true
}

// ConnectionAllowed reports whether nodes of the two service types may
// be wired together. The catalog rules are directional; a connection is
// accepted when either direction allows it.
func ConnectionAllowed(cat *catalog.Catalog, aServiceID, bServiceID string) bool {
	return cat.CanConnect(aServiceID, bServiceID) || cat.CanConnect(bServiceID, aServiceID)
}
