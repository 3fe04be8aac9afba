package geo

// EntityType names the class of entity a presence or location belongs to.
type EntityType string

const (
	EntityTypeDriver EntityType = "driver"
	EntityTypeUser   EntityType = "user"
)

// String returns the string representation of the EntityType.
func (entityType EntityType) String() string {
	return string(entityType)
}

func (entityType EntityType) IsDriver() bool { return entityType == EntityTypeDriver }
