package events

import "fmt"

// practice.resources.<resourceType>.<action>
const subjectResource = "practice.resources.%s.%s"

// Actions carried on resource change events.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// ResourceSubject returns the subject a change to resourceType is published on.
func ResourceSubject(resourceType, action string) string {
	return fmt.Sprintf(subjectResource, resourceType, action)
}
